package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendFile = "file"
	BackendXLSX = "xlsx"
	BackendDB   = "db"
)

type Config struct {
	Port string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	SnapshotBackend string
	SnapshotDir     string
	MasterBackend   string
	MasterFile      string

	LogLevel  string
	LogFormat string

	VerifyToken               string
	WhatsAppToken             string
	PhoneNumberID             string
	WhatsAppBusinessAccountID string
	GraphAPIURL               string
	TemplateLanguage          string
	DispatchOnSubmit          bool
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Debug("no .env file loaded, using process environment")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBDriver:   getEnv("DB_DRIVER", DriverSQLite),
		DBPath:     getEnv("DB_PATH", "./outreach.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "outreach"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", BackendFile),
		SnapshotDir:     getEnv("SNAPSHOT_DIR", "data"),
		MasterBackend:   getEnv("MASTER_BACKEND", BackendXLSX),
		MasterFile:      getEnv("MASTER_FILE", "master_file_A.xlsx"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		VerifyToken:               getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:             getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
		GraphAPIURL:               getEnv("GRAPH_API_URL", "https://graph.facebook.com/v19.0"),
		TemplateLanguage:          getEnv("TEMPLATE_LANGUAGE", "en_US"),
		DispatchOnSubmit:          getEnvAsBool("DISPATCH_ON_SUBMIT", false),
	}
}

// Validate rejects unknown drivers and backends before anything is opened.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.SnapshotBackend {
	case BackendFile, BackendDB:
	default:
		return errors.Errorf("unsupported SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}

	switch c.MasterBackend {
	case BackendXLSX, BackendDB:
	default:
		return errors.Errorf("unsupported MASTER_BACKEND %q", c.MasterBackend)
	}

	if c.SnapshotBackend == BackendFile && c.SnapshotDir == "" {
		return errors.New("SNAPSHOT_DIR is required for the file snapshot backend")
	}
	if c.MasterBackend == BackendXLSX && c.MasterFile == "" {
		return errors.New("MASTER_FILE is required for the xlsx master backend")
	}

	return nil
}

// WhatsAppEnabled reports whether enough credentials are present to call the Cloud API.
func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsAppToken != "" && c.PhoneNumberID != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

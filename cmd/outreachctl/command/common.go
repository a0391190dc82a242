package command

import (
	"os"
	"strings"
	"time"

	"outreach-desk/internal/app"
	"outreach-desk/internal/config"
	"outreach-desk/internal/snapshot"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// open builds the app and, when date is set, pins both services to it.
func open(cfg *config.Config, logger *log.Logger, date string) (*app.App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if date == "" {
		return a, nil
	}

	day, err := time.Parse(snapshot.DateLayout, date)
	if err != nil {
		a.Close()
		return nil, errors.Errorf("--date must be YYYY-MM-DD, got %q", date)
	}
	clock := func() time.Time { return day }
	a.Differ.WithClock(clock)
	a.Service.WithClock(clock)
	return a, nil
}

// templateText returns the inline repository, or the contents of path.
func templateText(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read templates from %s", path)
	}
	if strings.TrimSpace(inline) != "" {
		return inline + "\n" + string(raw), nil
	}
	return string(raw), nil
}

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"outreach-desk/internal/api"
	"outreach-desk/internal/app"
	"outreach-desk/internal/config"
	"outreach-desk/internal/logging"
	"outreach-desk/internal/webhook"
	"outreach-desk/internal/whatsapp"
	"outreach-desk/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	var (
		templates   api.TemplateSource
		broadcaster *api.Broadcaster
	)
	if cfg.WhatsAppEnabled() {
		client := whatsapp.NewClient(cfg)
		if cfg.WhatsAppBusinessAccountID != "" {
			templates = client
		}
		if cfg.DispatchOnSubmit {
			broadcaster = api.NewBroadcaster(client, cfg.TemplateLanguage, logger)
		}
	} else if cfg.DispatchOnSubmit {
		logger.Warn("DISPATCH_ON_SUBMIT is set but WhatsApp credentials are missing; sends are recorded only")
	}

	webhookHandler := webhook.NewHandler(cfg.VerifyToken, a.Service, hub, logger)
	snapshotHandler := api.NewSnapshotHandler(a.Differ, a.Snapshots, hub, logger)
	sessionHandler := api.NewSessionHandler(a.Service, templates, broadcaster, hub, logger)
	masterHandler := api.NewMasterHandler(a.Service, "", logger)
	dashboardHandler := api.NewDashboardHandler(a.Snapshots, a.Service, logger)
	whatsappHandler := api.NewWhatsAppHandler(templates, logger)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleMessage)

	// Live dashboard events
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/dashboard", dashboardHandler.GetSummary)

		// Daily snapshots
		apiGroup.POST("/snapshots", snapshotHandler.Upload)
		apiGroup.GET("/snapshots", snapshotHandler.ListDates)
		apiGroup.GET("/snapshots/:date/new-customers", snapshotHandler.NewCustomers)

		// Lead nurturing sessions
		apiGroup.POST("/sessions", sessionHandler.Stage)
		apiGroup.GET("/sessions/:id", sessionHandler.Get)
		apiGroup.POST("/sessions/:id/submit", sessionHandler.Submit)

		// Master record
		apiGroup.GET("/master", masterHandler.GetMaster)
		apiGroup.GET("/master/export", masterHandler.ExportMaster)

		apiGroup.GET("/templates/whatsapp", whatsappHandler.GetTemplates)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("server shutdown")
		}
	}()

	logger.WithField("port", cfg.Port).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("failed to run server")
	}
	logger.Info("server stopped")
}

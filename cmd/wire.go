package cmd

import (
	"fmt"
	"log/slog"

	"studio-orders/config"
	"studio-orders/database"
	"studio-orders/internal/dispatch"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/infra/mailer"
	"studio-orders/internal/infra/supabase"
	"studio-orders/internal/logging"
	"studio-orders/internal/metrics"
	"studio-orders/internal/production"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// app holds the long-lived components shared by the subcommands.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	metrics    *metrics.Metrics
	svc        *production.Service
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.Module("app")

	if err := database.InitDB(cfg.DBURL, cfg.SlowQuery); err != nil {
		return nil, err
	}
	db := database.DB

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	var storage production.Storage
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		storage = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseKey)
	} else {
		log.Warn("SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set, uploads are disabled")
	}

	svc := production.New(db, storage, production.Config{
		AdminEmail: cfg.AdminEmail,
		Bucket:     cfg.Bucket,
	}, m)

	d := dispatch.New(db, dispatch.Config{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		BaseBackoff:  cfg.OutboxBaseBackoff,
		MaxBackoff:   cfg.OutboxMaxBackoff,
	}, m)
	if len(cfg.NotifyURLs) > 0 {
		mail, err := mailer.New(cfg.NotifyURLs, cfg.NotifyTimeout, cfg.AppURL)
		if err != nil {
			return nil, err
		}
		d.Register(outbox.TypeNotification, dispatch.NotificationHandler(mail))
	} else {
		// events stay in the outbox as failed and can be retried from /admin/outbox
		log.Warn("NOTIFY_URLS not set, notifications will not be delivered")
	}
	d.Register(outbox.TypeIssueLicense, dispatch.LicenseHandler(db))
	d.Register(outbox.TypeRecordTalentEarning, dispatch.EarningHandler(db, cfg.TalentShare))

	return &app{cfg: cfg, db: db, metrics: m, svc: svc, dispatcher: d, log: log}, nil
}

package database

import (
	"errors"
	"fmt"
	"time"

	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/users"
	"studio-orders/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		// accounts
		&users.User{},
		&plans.Plan{},

		// workflow
		&orders.Order{},
		&orders.Version{},
		&orders.Annotation{},
		&orders.Deliverable{},
		&outbox.Event{},

		// downstream records
		&billing.Payment{},
		&billing.TalentEarning{},
		&orders.LicenseCertificate{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Open connects to postgres with the slog-backed gorm logger.
func Open(dsn string, slowQuery time.Duration) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logging.NewGormLogger(slowQuery, gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// InitDB opens the database, migrates it and publishes it as DB.
func InitDB(dsn string, slowQuery time.Duration) error {
	db, err := Open(dsn, slowQuery)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	logging.Module("database").Info("connected and migrated")
	return nil
}

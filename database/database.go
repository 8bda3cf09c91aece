package database

import (
	"fmt"

	"tourism-app/config"
	"tourism-app/internal/domain/audit"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/media"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/domain/reviews"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Models lists every table owned by the application, in migration order.
func Models() []any {
	return []any{
		// core
		&users.User{},
		&plans.StripePrice{},

		// billing
		&billing.PaymentMethod{},
		&billing.Subscription{},
		&billing.Invoice{},
		&billing.WebhookEvent{},

		// catalog
		&destinations.Region{},
		&destinations.Category{},
		&destinations.Destination{},
		&promotions.Promotion{},
		&reviews.Review{},
		&media.Image{},

		&audit.Entry{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Open connects to Postgres. Duplicate-key errors are translated to
// gorm.ErrDuplicatedKey so the partial unique indexes surface as domain
// conflicts.
func Open(dsn string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if config.APP_ENV == "development" {
		level = gormlogger.Info
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
}

func InitDB() {
	db, err := Open(config.DB_URL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	DB = db

	if err := Migrate(DB); err != nil {
		logger.Fatal("auto-migrate failed", "error", err)
	}

	logger.Info("database connected and migrated", "tables", len(Models()))
}

// Ping reports whether the pool can reach the server.
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialised")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

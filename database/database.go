package database

import (
	"context"

	"tiertrainer-backend/config"
	"tiertrainer-backend/internal/domain/admins"
	"tiertrainer-backend/internal/domain/analytics"
	"tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/checkout"
	"tiertrainer-backend/internal/domain/community"
	"tiertrainer-backend/internal/domain/devices"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/support"
	"tiertrainer-backend/internal/domain/users"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	if config.DB_URL == "" {
		zap.L().Fatal("DB_URL not set")
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if config.APP_ENV == "production" {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(config.DB_URL), &gorm.Config{Logger: gormLogger})
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}

	DB = db

	if err := Migrate(DB); err != nil {
		zap.L().Fatal("AutoMigrate error", zap.Error(err))
	}

	zap.L().Info("Connected and migrated successfully")
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// accounts
		&users.User{},
		&users.SignupVerificationCode{},
		&admins.AdminUser{},

		// billing
		&subscribers.Subscriber{},
		&plans.Plan{},
		&billing.Payment{},
		&checkout.Intent{},

		// product
		&pets.Profile{},
		&devices.Binding{},
		&support.Ticket{},
		&support.Message{},
		&community.Post{},
		&community.Comment{},
		&analytics.Event{},
	)
}

func Ping(ctx context.Context) error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

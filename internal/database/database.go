package database

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/storefront/internal/models"
)

// Connect opens the database, creating it first when missing, and runs
// migrations.
func Connect(ctx context.Context, dsn, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	if err := ensureDatabase(ctx, dsn); err != nil {
		return nil, errors.Wrap(err, "ensure database")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(LogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, errors.Wrap(err, "sql handle")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Warn("failed to ensure uuid-ossp extension", zap.Error(err))
	}

	if err := migrate(conn.WithContext(ctx)); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return conn, nil
}

// LogLevel maps DB_LOG_LEVEL to the GORM logger level.
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&models.Account{},
		&models.Address{},
		&models.Product{},
		&models.InventoryHistory{},
		&models.Order{},
		&models.OrderItem{},
		&models.Coupon{},
		&models.Cart{},
		&models.CartItem{},
		&models.Review{},
	}
}

func migrate(conn *gorm.DB) error {
	for _, migration := range Models() {
		if err := conn.AutoMigrate(migration); err != nil {
			return errors.Wrapf(err, "auto-migrate %T", migration)
		}
	}
	return nil
}

func ensureDatabase(ctx context.Context, dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	return err
}

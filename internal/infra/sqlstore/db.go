// Package sqlstore implements the store ports on MySQL through gorm.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps a gorm connection and satisfies UserStore, PlanStore and
// CompanyStore.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to MySQL, verifies the connection and migrates the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return New(ctx, db, logger)
}

// New wraps an already opened gorm connection.
func New(ctx context.Context, db *gorm.DB, logger *zap.Logger) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, logger: logger}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&userRow{}, &planRow{}, &companyRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("mysql store ready")
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package client

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"token-vending-service/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// InitDBClient opens MySQL for a DSN and SQLite for "sqlite:<path>"
// (":memory:" works too), then migrates the schema.
func InitDBClient(databaseURL string) (*gorm.DB, error) {
	gormLogger := newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags))
	return openDB(dialectorFor(databaseURL), strings.HasPrefix(databaseURL, sqlitePrefix), gormLogger)
}

// newGormLogger logs slow queries and errors; a missing row is an expected
// answer for lookups and stays quiet.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func openDB(dialector gorm.Dialector, singleWriter bool, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if singleWriter {
		// one writer at a time or sqlite returns SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		// Connection pool (important for gateway notifications)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.PendingTransaction{},
		&model.GeneratedToken{},
		&model.Customer{},
		&model.CustomerService{},
		&model.TokenSetting{},
		&model.AppSetting{},
		&model.WebhookEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func dialectorFor(databaseURL string) gorm.Dialector {
	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		return sqlite.Open(path)
	}
	return mysql.Open(databaseURL)
}

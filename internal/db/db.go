package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"usercrud/internal/config"
	"usercrud/internal/model"
)

// Open connects to the backend selected by cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return NewMySQL(cfg.MySQLDSN, cfg.DBDebug)
	case config.DriverSQLite:
		return NewSQLite(cfg.SQLitePath, cfg.DBDebug)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string, debug bool) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// NewSQLite opens (creating if needed) a SQLite database at path.
// A path starting with "file:" is passed through as a DSN, which allows
// in-memory databases.
func NewSQLite(path string, debug bool) (*gorm.DB, error) {
	dsn := path
	if len(path) < 5 || path[:5] != "file:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite serializes writers; one connection keeps transactions and
	// in-memory databases consistent.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops all tables owned by the service.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&model.User{}); err != nil {
		return fmt.Errorf("drop users: %w", err)
	}
	return nil
}

func gormConfig(debug bool) *gorm.Config {
	l := logger.Discard
	if debug {
		l = logger.Default.LogMode(logger.Info)
	}
	return &gorm.Config{Logger: l}
}

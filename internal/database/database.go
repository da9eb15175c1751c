// Package database manages the in-memory SQLite reporting database.
package database

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/tollsim/tollsim/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoDumpPath is returned by DumpToDisk when no destination is set.
var ErrNoDumpPath = errors.New("sqlite dump path not set")

var pragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

var memoryDBSeq atomic.Uint64

// Manager owns one SQLite database handle.
type Manager struct {
	DB     *gorm.DB
	Path   string // "" for in-memory
	Logger zerolog.Logger
}

// Open opens the database at path, or a fresh private in-memory database
// when path is empty, and applies the write-oriented pragmas.
func Open(path string, log zerolog.Logger) (*Manager, error) {
	dsn := path
	if dsn == "" {
		// each manager gets its own named in-memory db
		dsn = fmt.Sprintf("file:tollsim-%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// a single connection keeps the shared-cache database free of table locks
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if path == "" {
		log.Info().Msg("Using SQLite DB in memory")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	return &Manager{DB: db, Path: path, Logger: log}, nil
}

// Setup migrates the reporting schema.
func (m *Manager) Setup() error {
	m.Logger.Debug().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpToDisk writes a point-in-time copy of the database to dest via
// VACUUM INTO, replacing any existing file.
func (m *Manager) DumpToDisk(dest string) error {
	if dest == "" {
		return ErrNoDumpPath
	}

	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	start := time.Now()
	quoted := strings.ReplaceAll(dest, "'", "''")
	if err := m.DB.Exec("VACUUM INTO '" + quoted + "';").Error; err != nil {
		return fmt.Errorf("error dumping DB to disk: %w", err)
	}

	m.Logger.Debug().Str("path", dest).Dur("duration", time.Since(start)).Msg("Dumped DB to disk")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

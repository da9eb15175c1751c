// Package sqlitestorage records runs into an in-memory SQLite database via
// GORM. Records are queued and written in batches; the database can be
// dumped to disk with VACUUM INTO when a run ends.
package sqlitestorage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tollsim/tollsim/internal/database"
	"github.com/tollsim/tollsim/internal/model"
	"github.com/tollsim/tollsim/internal/queue"
	"github.com/tollsim/tollsim/pkg/core"
)

// DefaultBatchSize is the number of queued rows that triggers a write.
const DefaultBatchSize = 500

// ErrNoRun is returned when records arrive outside StartRun/EndRun.
var ErrNoRun = errors.New("no run started")

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpPath  string // VACUUM INTO destination on EndRun; empty disables the dump
	BatchSize int
}

// Backend is the SQLite reporting backend.
type Backend struct {
	cfg Config
	log zerolog.Logger
	db  *database.Manager

	mu    sync.Mutex
	runID uint
	moves *queue.Queue[model.Movement]
	tolls *queue.Queue[model.TollCollection]
}

// New creates the backend. The database is opened by Init.
func New(cfg Config, log zerolog.Logger) *Backend {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Backend{
		cfg:   cfg,
		log:   log.With().Str("backend", "sqlite").Logger(),
		moves: queue.New[model.Movement](cfg.BatchSize),
		tolls: queue.New[model.TollCollection](cfg.BatchSize),
	}
}

// Init opens the in-memory database and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.Open("", b.log)
	if err != nil {
		return fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if err := db.Setup(); err != nil {
		db.Close()
		return err
	}
	b.db = db
	return nil
}

// Close flushes pending rows and closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	flushErr := b.flush()
	return errors.Join(flushErr, b.db.Close())
}

// StartRun inserts the run row and assigns run.ID.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := model.NewRun(run)
	if err != nil {
		return err
	}
	if err := b.db.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	run.ID = row.ID
	b.runID = row.ID
	b.log.Debug().Uint("runId", row.ID).Str("name", run.Name).Msg("Run started")
	return nil
}

func (b *Backend) RecordMovement(r core.MovementRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runID == 0 {
		return ErrNoRun
	}
	if b.moves.Push(model.NewMovement(b.runID, r)) {
		return b.flush()
	}
	return nil
}

func (b *Backend) RecordTollCollection(r core.TollCollectionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runID == 0 {
		return ErrNoRun
	}
	if b.tolls.Push(model.NewTollCollection(b.runID, r)) {
		return b.flush()
	}
	return nil
}

// EndRun flushes, stores end time and final balances, and dumps to disk
// when a dump path is configured.
func (b *Backend) EndRun(result core.RunResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runID == 0 {
		return ErrNoRun
	}

	if err := b.flush(); err != nil {
		return err
	}

	err := b.db.DB.Model(&model.Run{}).Where("id = ?", b.runID).
		Update("end_time", sql.NullInt64{Int64: int64(result.EndTime), Valid: true}).Error
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if len(result.Balances) > 0 {
		rows := make([]model.Balance, 0, len(result.Balances))
		for id, amount := range result.Balances {
			rows = append(rows, model.Balance{RunID: b.runID, VehicleID: id, Amount: amount})
		}
		if err := b.db.DB.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert balances: %w", err)
		}
	}

	b.log.Info().Uint("runId", b.runID).Int("endTime", result.EndTime).Msg("Run stored")

	if b.cfg.DumpPath != "" {
		if err := b.db.DumpToDisk(b.cfg.DumpPath); err != nil {
			return err
		}
		b.log.Info().Str("path", b.cfg.DumpPath).Msg("Dumped run database")
	}
	return nil
}

// RunID returns the id of the current run, or 0.
func (b *Backend) RunID() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runID
}

// flush writes all queued rows. Caller holds b.mu.
func (b *Backend) flush() error {
	if moves := b.moves.Drain(0); len(moves) > 0 {
		if err := b.db.DB.CreateInBatches(moves, b.cfg.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d movements: %w", len(moves), err)
		}
		b.log.Trace().Int("rows", len(moves)).Msg("Wrote movements")
	}
	if tolls := b.tolls.Drain(0); len(tolls) > 0 {
		if err := b.db.DB.CreateInBatches(tolls, b.cfg.BatchSize).Error; err != nil {
			return fmt.Errorf("failed to write %d toll collections: %w", len(tolls), err)
		}
		b.log.Trace().Int("rows", len(tolls)).Msg("Wrote toll collections")
	}
	return nil
}

// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sort"
	"sync"

	"github.com/tollsim/tollsim/internal/config"
	"github.com/tollsim/tollsim/pkg/core"
)

// ErrNoRun is returned when records arrive outside StartRun/EndRun.
var ErrNoRun = errors.New("no run started")

// Backend keeps every record of the current run in memory and exports the
// run to JSON when it ends.
type Backend struct {
	cfg    config.MemoryConfig
	run    *core.Run
	result *core.RunResult

	movements   []core.MovementRecord
	tracks      map[int][]int // vehicle id -> indexes into movements
	collections []core.TollCollectionRecord

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		tracks: make(map[int][]int),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun resets all collections for a new run.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.result = nil
	b.movements = nil
	b.tracks = make(map[int][]int)
	b.collections = nil
	b.lastExportPath = ""
	return nil
}

// EndRun stores the result and exports the run when enabled.
func (b *Backend) EndRun(result core.RunResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.result = &result
	if !b.cfg.Export {
		return nil
	}
	return b.exportJSON()
}

func (b *Backend) RecordMovement(r core.MovementRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.tracks[r.VehicleID] = append(b.tracks[r.VehicleID], len(b.movements))
	b.movements = append(b.movements, r)
	return nil
}

func (b *Backend) RecordTollCollection(r core.TollCollectionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.collections = append(b.collections, r)
	return nil
}

// Run returns the current run, or nil.
func (b *Backend) Run() *core.Run {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.run
}

// Result returns the final result once EndRun was called.
func (b *Backend) Result() (core.RunResult, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.result == nil {
		return core.RunResult{}, false
	}
	return *b.result, true
}

// Movements returns every movement record in arrival order.
func (b *Backend) Movements() []core.MovementRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.MovementRecord(nil), b.movements...)
}

// TollCollections returns every toll record in arrival order.
func (b *Backend) TollCollections() []core.TollCollectionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TollCollectionRecord(nil), b.collections...)
}

// Track returns one vehicle's movement records in time order.
func (b *Backend) Track(vehicleID int) []core.MovementRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	idx := b.tracks[vehicleID]
	out := make([]core.MovementRecord, len(idx))
	for i, j := range idx {
		out[i] = b.movements[j]
	}
	return out
}

// VehicleIDs returns the ids of vehicles that moved, ascending.
func (b *Backend) VehicleIDs() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]int, 0, len(b.tracks))
	for id := range b.tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ExportedFilePath returns the path of the last export, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

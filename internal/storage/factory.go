// internal/storage/factory.go
package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tollsim/tollsim/internal/config"
	"github.com/tollsim/tollsim/internal/dispatcher"
	influxstorage "github.com/tollsim/tollsim/internal/storage/influx"
	"github.com/tollsim/tollsim/internal/storage/memory"
	sqlitestorage "github.com/tollsim/tollsim/internal/storage/sqlite"
	"github.com/tollsim/tollsim/pkg/core"
)

// Backend names accepted in report.backends.
const (
	NameMemory = "memory"
	NameSQLite = "sqlite"
	NameInflux = "influx"
)

// ErrUnknownBackend is returned for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Named pairs a backend with its configured name.
type Named struct {
	Name string
	Backend
}

// Set is the group of backends used for one run. Memory is always present
// because the console summary reads from it.
type Set struct {
	Memory *memory.Backend
	// SQLite is set when the sqlite backend is enabled.
	SQLite   *sqlitestorage.Backend
	Backends []Named
}

// NewBackends creates the backends listed in cfg.Backends. Names are
// case-insensitive and duplicates are ignored.
func NewBackends(cfg config.ReportConfig, influxCfg config.InfluxConfig, log zerolog.Logger) (*Set, error) {
	mem := memory.New(cfg.Memory)
	set := &Set{
		Memory:   mem,
		Backends: []Named{{Name: NameMemory, Backend: mem}},
	}
	seen := map[string]bool{NameMemory: true}

	for _, raw := range cfg.Backends {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case NameSQLite:
			set.SQLite = sqlitestorage.New(sqlitestorage.Config{DumpPath: cfg.SQLite.DumpPath}, log)
			set.Backends = append(set.Backends, Named{Name: name, Backend: set.SQLite})
		case NameInflux:
			set.Backends = append(set.Backends, Named{
				Name:    name,
				Backend: influxstorage.New(influxCfg, log),
			})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, raw)
		}
	}
	return set, nil
}

// Names returns the backend names in order.
func (s *Set) Names() []string {
	out := make([]string, len(s.Backends))
	for i, b := range s.Backends {
		out[i] = b.Name
	}
	return out
}

// Init initializes every backend. On failure the already initialized ones
// are closed.
func (s *Set) Init() error {
	for i, b := range s.Backends {
		if err := b.Init(); err != nil {
			for _, done := range s.Backends[:i] {
				done.Close()
			}
			return fmt.Errorf("%s: init: %w", b.Name, err)
		}
	}
	return nil
}

// StartRun starts the run on every backend.
func (s *Set) StartRun(run *core.Run) error {
	for _, b := range s.Backends {
		if err := b.StartRun(run); err != nil {
			return fmt.Errorf("%s: start run: %w", b.Name, err)
		}
	}
	return nil
}

// EndRun ends the run on every backend, continuing past failures.
func (s *Set) EndRun(result core.RunResult) error {
	var errs []error
	for _, b := range s.Backends {
		if err := b.EndRun(result); err != nil {
			errs = append(errs, fmt.Errorf("%s: end run: %w", b.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend, continuing past failures.
func (s *Set) Close() error {
	var errs []error
	for _, b := range s.Backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", b.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Attach registers every backend on d for both record kinds. bufferSize > 0
// gives each backend its own blocking queue and worker, so a slow backend
// does not hold up the others.
func (s *Set) Attach(d *dispatcher.Dispatcher, bufferSize int) {
	var opts []dispatcher.Option
	if bufferSize > 0 {
		opts = append(opts, dispatcher.Buffered(bufferSize), dispatcher.Blocking())
	}
	for _, b := range s.Backends {
		backend := b.Backend
		d.Register(dispatcher.KindMovement, b.Name, func(e dispatcher.Event) error {
			return backend.RecordMovement(*e.Movement)
		}, opts...)
		d.Register(dispatcher.KindToll, b.Name, func(e dispatcher.Event) error {
			return backend.RecordTollCollection(*e.Toll)
		}, opts...)
	}
}

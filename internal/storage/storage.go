// internal/storage/storage.go
package storage

import "github.com/tollsim/tollsim/pkg/core"

// Backend is the interface all reporting backends must satisfy.
// Record methods are called in emission order from a single goroutine.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management. StartRun may assign run.ID.
	StartRun(run *core.Run) error
	EndRun(result core.RunResult) error

	// Record ingestion
	RecordMovement(r core.MovementRecord) error
	RecordTollCollection(r core.TollCollectionRecord) error
}

// Exportable is an optional interface for backends that write a file per run.
type Exportable interface {
	ExportedFilePath() string
}

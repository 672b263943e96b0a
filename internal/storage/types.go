package storage

import (
	"context"
	"errors"
	"time"

	"fieldops/internal/schedule"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON document backend (jobs/technicians/dedup files)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the services and the CLI.
//
// ListJobs/ListTechnicians return normalized values; raw-shape handling
// is a driver concern.
type Store interface {
	ListJobs(ctx context.Context) ([]schedule.Job, error)
	ListTechnicians(ctx context.Context) ([]schedule.Technician, error)

	// UpsertJobs inserts or replaces jobs by ID (series materialization,
	// imports).
	UpsertJobs(ctx context.Context, jobs []schedule.Job) error

	// Dedup bookkeeping: suppress a key until the given time.
	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (until time.Time, ok bool, err error)

	Close() error
}

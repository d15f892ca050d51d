// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/thUser005/project-stocks-profits/internal/models"
)

// DataStore defines the persistence the tracker needs: an append-only
// event journal and the end-of-day report. Losing the store never stops
// tracking; the engine treats it as best-effort.
type DataStore interface {
	// Events
	SaveEvent(ctx context.Context, date string, event models.Event) error
	GetEvents(ctx context.Context, date string) ([]models.Event, error)

	// Daily report
	SaveDailyResults(ctx context.Context, results []models.DailyResult) error
	GetDailyResults(ctx context.Context, date string) ([]models.DailyResult, error)

	// Lifecycle
	Close() error
}

// EventFilter narrows event queries.
type EventFilter struct {
	Symbol string
	Kind   models.EventKind
	After  time.Time
	Limit  int
}

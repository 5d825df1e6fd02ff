// Package enrich backfills bibliographic details for books that were
// registered at the desk before any metadata was available.
package enrich

import (
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the bookkeeping row for one enrichment pass.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     Status     `json:"status"`
	BatchSize  int        `json:"batch_size"`
	Scanned    int        `json:"scanned"`
	Enriched   int        `json:"enriched"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

// Package store persists analysis runs so reports can be compared across
// time and served without rescanning.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentpm/modgraph/pkg/analysis"
	"github.com/agentpm/modgraph/pkg/graph"
)

// Run is one persisted analysis: the report plus enough context to know
// what was analyzed and when. The graph document is optional; it is only
// kept when the caller asked for it, since it dwarfs the report on large
// projects.
type Run struct {
	ID        string           `json:"id" bson:"_id"`
	Root      string           `json:"root" bson:"root"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Report    *analysis.Report `json:"report" bson:"report"`
	Graph     *graph.Document  `json:"graph,omitempty" bson:"graph,omitempty"`
}

// NewRun stamps a run with a fresh ID and timestamp.
func NewRun(root string, report *analysis.Report, doc *graph.Document) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Root:      root,
		CreatedAt: time.Now().UTC(),
		Report:    report,
		Graph:     doc,
	}
}

// Store is the persistence interface for runs.
type Store interface {
	// Save persists the run. The run must carry an ID.
	Save(ctx context.Context, run *Run) error
	// Get returns the run by ID, or an ErrCodeRunNotFound error.
	Get(ctx context.Context, id string) (*Run, error)
	// List returns runs newest first, optionally filtered by root.
	// limit <= 0 means no limit.
	List(ctx context.Context, root string, limit int) ([]*Run, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}

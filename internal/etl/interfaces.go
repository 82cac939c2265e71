package etl

import (
	"context"

	"github.com/BartekS5/lakecheck/internal/metrics"
	"github.com/BartekS5/lakecheck/pkg/models"
)

// Sink persists the result of a completed run.
type Sink interface {
	Write(ctx context.Context, summary *models.RunSummary) error
	Close() error
}

// Checkpointer caches finished partition results so an interrupted run can
// resume without re-reading them. options identifies the validation settings
// a result was computed under; a cached result is only reused for the same
// options.
type Checkpointer interface {
	Load(p models.Partition, options string) (*models.PartitionResult, bool, error)
	Save(result *models.PartitionResult, options string) error
	Clear() error
}

// StreamOptions configures one dataset stream.
type StreamOptions struct {
	// RecoverParseErrors logs an undecodable line and stops reading the file,
	// keeping what was read so far. When false the failure aborts the run.
	RecoverParseErrors bool
	// Strict enables transaction id uniqueness and total cost reconciliation.
	Strict  bool
	Metrics *metrics.Registry
}

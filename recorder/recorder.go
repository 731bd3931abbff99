/*
Package recorder persists per-period execution records.

PURPOSE:
  The orchestrator produces one engine.ExecutionRecord per period closed.
  A Recorder consumes that stream so a run can be audited after the fact.
  Recording is strictly append-only: records are written once at period
  close and never updated.

IMPLEMENTATIONS:
  - Noop: discards everything (the default for library callers)
  - SQLite: one database per run, one row per step/trigger/fee snapshot
*/
package recorder

import (
	"context"

	"github.com/warp/cashflow-engine/engine"
)

// Recorder consumes the period audit stream of a deal run.
type Recorder interface {
	// Record persists one closed period's execution record.
	Record(ctx context.Context, deal string, rec engine.ExecutionRecord) error

	Close() error
}

// Noop discards every record.
type Noop struct{}

var _ Recorder = Noop{}

func (Noop) Record(context.Context, string, engine.ExecutionRecord) error { return nil }
func (Noop) Close() error                                                 { return nil }

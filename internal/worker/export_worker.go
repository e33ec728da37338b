// Package worker runs the budget snapshot export loop: it consumes
// snapshot requests from AMQP, rebuilds the month view from the database
// and pushes it to the configured writer.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dontoisme/zeroed/internal/amqp"
	"github.com/dontoisme/zeroed/internal/budget"
	"github.com/dontoisme/zeroed/internal/core"
)

// SnapshotWriter receives a rebuilt month view. The Google Sheets client is
// the production implementation.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, view *budget.MonthView) error
}

// ExportWorker turns snapshot requests into exported month views.
type ExportWorker struct {
	engine *budget.Engine
	writer SnapshotWriter
}

func NewExportWorker(engine *budget.Engine, writer SnapshotWriter) *ExportWorker {
	return &ExportWorker{engine: engine, writer: writer}
}

// HandleSnapshotRequest processes a single snapshot request. The view is
// always recomputed from storage; the message carries nothing but the month.
func (w *ExportWorker) HandleSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequest) error {
	// Checked before BudgetMonth, which would silently normalize month 13
	// into January of the next year.
	if msg.Month < 1 || msg.Month > 12 {
		return fmt.Errorf("snapshot request month out of range: %d", msg.Month)
	}
	month := msg.BudgetMonth()

	slog.InfoContext(ctx, "Processing snapshot request", "month", month.String())

	// The worker runs long; drop memoized aggregates so the snapshot sees
	// writes made by the CLI since the last request.
	w.engine.Invalidate()

	view, err := w.engine.View(ctx, month)
	if err != nil {
		return fmt.Errorf("build month view: %w", err)
	}

	if err := w.writer.WriteSnapshot(ctx, view); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot exported",
		"month", month.String(),
		"groups", len(view.Groups),
		"ready_to_assign", view.ReadyToAssign.Fixed2())
	return nil
}

// ExportCurrent builds and writes a snapshot directly, bypassing the queue.
// Used at worker startup so a fresh deployment exports something before the
// first request arrives.
func (w *ExportWorker) ExportCurrent(ctx context.Context, month core.Month) error {
	return w.HandleSnapshotRequest(ctx, amqp.NewSnapshotRequest(month))
}

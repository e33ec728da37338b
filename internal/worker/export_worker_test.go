package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dontoisme/zeroed/internal/amqp"
	"github.com/dontoisme/zeroed/internal/budget"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger/memory"
)

type captureWriter struct {
	views []*budget.MonthView
	err   error
}

func (w *captureWriter) WriteSnapshot(ctx context.Context, view *budget.MonthView) error {
	if w.err != nil {
		return w.err
	}
	w.views = append(w.views, view)
	return nil
}

func newWorkerFixture(t *testing.T) (*ExportWorker, *captureWriter, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	account := &core.Account{Name: "Checking", Type: core.Checking, OnBudget: true}
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	group := &core.CategoryGroup{Name: "Everyday"}
	if err := store.CreateCategoryGroup(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	cat := &core.Category{GroupID: group.ID, Name: "Groceries"}
	if err := store.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("create category: %v", err)
	}

	writer := &captureWriter{}
	return NewExportWorker(budget.NewEngine(store), writer), writer, store
}

func TestExportWorker_HandleSnapshotRequest(t *testing.T) {
	worker, writer, store := newWorkerFixture(t)
	ctx := context.Background()
	march := core.NewMonth(2026, time.March)

	cat, err := store.FindCategory(ctx, "Groceries")
	if err != nil || cat == nil {
		t.Fatalf("find category: %v", err)
	}
	if err := store.UpsertBudgetEntry(ctx, cat.ID, march, core.Money{Cents: 30000}); err != nil {
		t.Fatalf("upsert entry: %v", err)
	}

	if err := worker.HandleSnapshotRequest(ctx, amqp.NewSnapshotRequest(march)); err != nil {
		t.Fatalf("HandleSnapshotRequest error = %v", err)
	}
	if len(writer.views) != 1 {
		t.Fatalf("writer received %d views, want 1", len(writer.views))
	}

	view := writer.views[0]
	if view.Month != march {
		t.Errorf("view month = %v, want %v", view.Month, march)
	}
	if len(view.Groups) != 1 || len(view.Groups[0].Categories) != 1 {
		t.Fatalf("view shape = %+v, want one group with one category", view.Groups)
	}
	if got := view.Groups[0].Categories[0].Budgeted.Cents; got != 30000 {
		t.Errorf("budgeted = %d, want 30000", got)
	}
}

func TestExportWorker_SeesWritesBetweenRequests(t *testing.T) {
	worker, writer, store := newWorkerFixture(t)
	ctx := context.Background()
	march := core.NewMonth(2026, time.March)

	if err := worker.ExportCurrent(ctx, march); err != nil {
		t.Fatalf("first export: %v", err)
	}

	// A write from another process between requests; the second snapshot
	// must pick it up even though the first one warmed the cache.
	cat, _ := store.FindCategory(ctx, "Groceries")
	if err := store.UpsertBudgetEntry(ctx, cat.ID, march, core.Money{Cents: 12345}); err != nil {
		t.Fatalf("upsert entry: %v", err)
	}

	if err := worker.ExportCurrent(ctx, march); err != nil {
		t.Fatalf("second export: %v", err)
	}
	if len(writer.views) != 2 {
		t.Fatalf("writer received %d views, want 2", len(writer.views))
	}
	if got := writer.views[1].Groups[0].Categories[0].Budgeted.Cents; got != 12345 {
		t.Errorf("second snapshot budgeted = %d, want 12345", got)
	}
}

func TestExportWorker_Errors(t *testing.T) {
	worker, writer, _ := newWorkerFixture(t)
	ctx := context.Background()

	if err := worker.HandleSnapshotRequest(ctx, &amqp.SnapshotRequest{Year: 2026, Month: 13}); err == nil {
		t.Error("month 13 should fail")
	}
	if len(writer.views) != 0 {
		t.Error("invalid request must not reach the writer")
	}

	writer.err = errors.New("sheets down")
	err := worker.ExportCurrent(ctx, core.NewMonth(2026, time.March))
	if !errors.Is(err, writer.err) {
		t.Errorf("writer failure not propagated: %v", err)
	}
}

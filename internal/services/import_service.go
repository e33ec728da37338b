// Package services orchestrates the domain engines over the storage ports:
// CSV import with deduplication, transaction entry and account maintenance.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dontoisme/zeroed/internal/categorize"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/importer"
	"github.com/dontoisme/zeroed/internal/ledger"
)

// ImportResult summarizes one import run. Parsed counts candidates out of
// the file; Imported + DuplicatesSkipped equals the candidates considered
// after in-batch deduplication collapsed repeats.
type ImportResult struct {
	BatchID           string
	Format            string
	Parsed            int
	Imported          int
	DuplicatesSkipped int
	Categorized       int
	Preview           []core.Transaction
}

// ImportService drives a whole CSV import: parse, dedup, categorize, write.
type ImportService struct {
	store    ledger.Store
	registry *importer.Registry
	engine   *categorize.Engine
}

func NewImportService(store ledger.Store, registry *importer.Registry, engine *categorize.Engine) *ImportService {
	return &ImportService{store: store, registry: registry, engine: engine}
}

// Formats lists the registered import formats.
func (s *ImportService) Formats() []importer.ImporterInfo {
	return s.registry.List()
}

// Resolve picks the importer: an explicit format name wins, otherwise header
// detection, otherwise the generic fallback.
func (s *ImportService) Resolve(path, format string) (importer.Importer, bool, error) {
	if format != "" {
		imp, err := s.registry.Get(format)
		return imp, false, err
	}
	if name := s.registry.DetectFormat(path); name != "" {
		imp, err := s.registry.Get(name)
		return imp, true, err
	}
	return s.registry.Fallback(), false, nil
}

// ImportCSV parses the file for the account and, unless dryRun is set,
// writes the surviving candidates in one transaction: duplicates (in-batch
// and already-stored) are skipped, the rest are auto-categorized and the
// account's current balance moves by the imported net. A failure rolls the
// whole batch back.
func (s *ImportService) ImportCSV(ctx context.Context, path, format string, account *core.Account, dryRun bool) (*ImportResult, error) {
	imp, _, err := s.Resolve(path, format)
	if err != nil {
		return nil, err
	}

	candidates, err := imp.Parse(path, account.ID)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	result := &ImportResult{
		BatchID: uuid.NewString(),
		Format:  imp.Name(),
		Parsed:  len(candidates),
		Preview: candidates,
	}
	if dryRun || len(candidates) == 0 {
		return result, nil
	}

	err = s.store.WithinTx(ctx, func(tx ledger.Store) error {
		seen := make(map[string]bool)
		var net core.Money

		for _, txn := range candidates {
			// First occurrence wins inside one file.
			if txn.ImportID != "" {
				if seen[txn.ImportID] {
					result.DuplicatesSkipped++
					continue
				}
				seen[txn.ImportID] = true

				exists, err := tx.ImportIDExists(ctx, txn.ImportID)
				if err != nil {
					return err
				}
				if exists {
					result.DuplicatesSkipped++
					continue
				}
			}

			category, err := s.engine.Categorize(ctx, txn.RawPayee)
			if err != nil {
				return fmt.Errorf("categorize %q: %w", txn.RawPayee, err)
			}
			if category != nil {
				txn.CategoryID = category.ID
				result.Categorized++
			}

			txn.ImportBatch = result.BatchID
			if err := tx.CreateTransaction(ctx, &txn); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
			net = net.Add(txn.Amount)
			result.Imported++
		}

		if result.Imported > 0 {
			if err := tx.AdjustAccountBalances(ctx, account.ID, net, core.Money{}); err != nil {
				return fmt.Errorf("adjust balance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Import completed",
		"batch", result.BatchID,
		"format", result.Format,
		"account", account.Name,
		"parsed", result.Parsed,
		"imported", result.Imported,
		"duplicates", result.DuplicatesSkipped,
		"categorized", result.Categorized)
	return result, nil
}

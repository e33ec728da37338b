package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

const transactionColumns = `id, account_id, category_id, payee_id, transfer_account_id,
	date, amount_cents, cleared, reconciled,
	import_id, import_source, import_batch, raw_payee, memo`

func scanTransaction(row interface{ Scan(...any) error }) (*core.Transaction, error) {
	var t core.Transaction
	var categoryID, payeeID, transferID sql.NullInt64
	var importID sql.NullString
	var date string
	err := row.Scan(&t.ID, &t.AccountID, &categoryID, &payeeID, &transferID,
		&date, &t.Amount.Cents, &t.Cleared, &t.Reconciled,
		&importID, &t.ImportSource, &t.ImportBatch, &t.RawPayee, &t.Memo)
	if err != nil {
		return nil, err
	}
	t.CategoryID = fromNullID(categoryID)
	t.PayeeID = fromNullID(payeeID)
	t.TransferAccountID = fromNullID(transferID)
	if importID.Valid {
		t.ImportID = importID.String
	}
	t.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	return &t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if t.ImportID != "" {
		exists, err := r.ImportIDExists(ctx, t.ImportID)
		if err != nil {
			return err
		}
		if exists {
			return core.ErrAlreadyExists
		}
	}

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, payee_id, transfer_account_id,
			date, amount_cents, cleared, reconciled,
			import_id, import_source, import_batch, raw_payee, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullID(t.CategoryID), nullID(t.PayeeID), nullID(t.TransferAccountID),
		t.Date.Format(dateLayout), t.Amount.Cents, t.Cleared, t.Reconciled,
		nullString(t.ImportID), t.ImportSource, t.ImportBatch, t.RawPayee, t.Memo)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	var where []string
	var args []any
	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.UncategorizedOnly {
		where = append(where, "category_id IS NULL")
	}
	if !f.Month.IsZero() {
		where = append(where, "date >= ? AND date < ?")
		args = append(args, f.Month.Start().Format(dateLayout), f.Month.End().Format(dateLayout))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ImportIDExists(ctx context.Context, importID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE import_id = ?`, importID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check import id: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) SetTransactionCategory(ctx context.Context, id, categoryID int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`, nullID(categoryID), id)
	if err != nil {
		return fmt.Errorf("set transaction category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) MarkTransactionCleared(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE transactions SET cleared = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction cleared: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountUncategorized(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count uncategorized: %w", err)
	}
	return n, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

// sumCents wraps the COALESCE(SUM(...), 0) idiom every aggregate here uses.
func (r *SQLiteRepository) sumCents(ctx context.Context, query string, args ...any) (core.Money, error) {
	var cents int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// --- budget entries ---

func (r *SQLiteRepository) BudgetedInMonth(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(budgeted_cents), 0) FROM budget_entries
		WHERE category_id = ? AND month = ?`, categoryID, month.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("budgeted in month: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) UpsertBudgetEntry(ctx context.Context, categoryID int64, month core.Month, amount core.Money) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budget_entries (category_id, month, budgeted_cents)
		VALUES (?, ?, ?)
		ON CONFLICT (category_id, month) DO UPDATE SET budgeted_cents = excluded.budgeted_cents`,
		categoryID, month.String(), amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SumBudgetedInMonth(ctx context.Context, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(budgeted_cents), 0) FROM budget_entries WHERE month = ?`,
		month.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("sum budgeted in month: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumBudgetedBefore(ctx context.Context, month core.Month) (core.Money, error) {
	// Months are "YYYY-MM" strings; lexicographic order is chronological.
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(budgeted_cents), 0) FROM budget_entries WHERE month < ?`,
		month.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("sum budgeted before: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumCategoryBudgetedBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(budgeted_cents), 0) FROM budget_entries
		WHERE category_id = ? AND month < ?`, categoryID, month.String())
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category budgeted before: %w", err)
	}
	return m, nil
}

// --- activity ---

func (r *SQLiteRepository) SumCategoryActivityIn(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE category_id = ? AND date >= ? AND date < ?`,
		categoryID, month.Start().Format(dateLayout), month.End().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category activity in: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumCategoryActivityBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE category_id = ? AND date < ?`,
		categoryID, month.Start().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category activity before: %w", err)
	}
	return m, nil
}

const onBudgetJoin = `FROM transactions t JOIN accounts a ON a.id = t.account_id AND a.on_budget = 1`

func (r *SQLiteRepository) SumOnBudgetInflowsIn(ctx context.Context, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0) `+onBudgetJoin+`
		WHERE t.amount_cents > 0 AND t.date >= ? AND t.date < ?`,
		month.Start().Format(dateLayout), month.End().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum on-budget inflows in: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumOnBudgetInflowsBefore(ctx context.Context, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0) `+onBudgetJoin+`
		WHERE t.amount_cents > 0 AND t.date < ?`,
		month.Start().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum on-budget inflows before: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumOnBudgetOutflowsBefore(ctx context.Context, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0) `+onBudgetJoin+`
		WHERE t.amount_cents < 0 AND t.date < ?`,
		month.Start().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum on-budget outflows before: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumOnBudgetOutflowsIn(ctx context.Context, month core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0) `+onBudgetJoin+`
		WHERE t.amount_cents < 0 AND t.date >= ? AND t.date < ?`,
		month.Start().Format(dateLayout), month.End().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum on-budget outflows in: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) SumCategoryOutflowsBetween(ctx context.Context, categoryID int64, from, to core.Month) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE category_id = ? AND amount_cents < 0 AND date >= ? AND date < ?`,
		categoryID, from.Start().Format(dateLayout), to.Start().Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category outflows between: %w", err)
	}
	return m, nil
}

// --- goals ---

func (r *SQLiteRepository) UpsertGoal(ctx context.Context, g *core.Goal) error {
	var targetDate any
	if !g.TargetDate.IsZero() {
		targetDate = g.TargetDate.Format(dateLayout)
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO goals (category_id, type, target_cents, target_date, monthly_funding_cents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category_id) DO UPDATE SET
			type = excluded.type,
			target_cents = excluded.target_cents,
			target_date = excluded.target_date,
			monthly_funding_cents = excluded.monthly_funding_cents`,
		g.CategoryID, string(g.Type), g.TargetAmount.Cents, targetDate, g.MonthlyFunding.Cents)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	if g.ID == 0 {
		if id, err := res.LastInsertId(); err == nil {
			g.ID = id
		}
	}
	return nil
}

func (r *SQLiteRepository) GoalForCategory(ctx context.Context, categoryID int64) (*core.Goal, error) {
	var g core.Goal
	var goalType string
	var targetDate sql.NullString
	err := r.q.QueryRowContext(ctx, `
		SELECT id, category_id, type, target_cents, target_date, monthly_funding_cents
		FROM goals WHERE category_id = ?`, categoryID).
		Scan(&g.ID, &g.CategoryID, &goalType, &g.TargetAmount.Cents, &targetDate, &g.MonthlyFunding.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("goal for category: %w", err)
	}
	g.Type = core.GoalType(goalType)
	if targetDate.Valid {
		if t, err := time.Parse(dateLayout, targetDate.String); err == nil {
			g.TargetDate = t
		}
	}
	return &g, nil
}

// --- reports ---

func (r *SQLiteRepository) SpendingByCategory(ctx context.Context, since time.Time) ([]ledger.CategorySpend, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.name, g.name, COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		JOIN category_groups g ON g.id = c.group_id
		WHERE t.amount_cents < 0 AND t.date >= ?
		GROUP BY c.id, c.name, g.name
		ORDER BY SUM(t.amount_cents) ASC`,
		since.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	defer rows.Close()

	var out []ledger.CategorySpend
	for rows.Next() {
		var cs ledger.CategorySpend
		if err := rows.Scan(&cs.CategoryID, &cs.CategoryName, &cs.GroupName, &cs.Outflow.Cents); err != nil {
			return nil, fmt.Errorf("scan spending row: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountTransactionsIn(ctx context.Context, categoryID int64, month core.Month) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE category_id = ? AND date >= ? AND date < ?`,
		categoryID, month.Start().Format(dateLayout), month.End().Format(dateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions in month: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumOnBudgetBalances(ctx context.Context) (core.Money, error) {
	m, err := r.sumCents(ctx, `
		SELECT COALESCE(SUM(current_balance_cents), 0) FROM accounts
		WHERE on_budget = 1 AND closed = 0`)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum on-budget balances: %w", err)
	}
	return m, nil
}

// Package storage is the SQLite adapter behind ledger.Store. All SQL lives
// here; schema changes go through embedded migrations, never ad hoc DDL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method works
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn against a repository bound to one SQLite transaction.
// Called on an already-transactional repository it reuses the transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ledger.Store) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// nullID maps the zero-means-absent ID convention onto SQL NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNullID(n sql.NullInt64) int64 {
	if !n.Valid {
		return 0
	}
	return n.Int64
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	var exists int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE name = ? COLLATE NOCASE`, a.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account name: %w", err)
	}
	if exists > 0 {
		return core.ErrAlreadyExists
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (name, type, institution, current_balance_cents, cleared_balance_cents, on_budget, closed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), a.Institution,
		a.CurrentBalance.Cents, a.ClearedBalance.Cents,
		a.OnBudget, a.Closed, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	return nil
}

const accountColumns = `id, name, type, institution, current_balance_cents, cleared_balance_cents, on_budget, closed, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*core.Account, error) {
	var a core.Account
	var accountType, createdAt string
	err := row.Scan(&a.ID, &a.Name, &accountType, &a.Institution,
		&a.CurrentBalance.Cents, &a.ClearedBalance.Cents,
		&a.OnBudget, &a.Closed, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Type = core.AccountType(accountType)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}

func (r *SQLiteRepository) FindAccount(ctx context.Context, name string) (*core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE name LIKE '%' || ? || '%' ORDER BY id LIMIT 1`, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, includeClosed bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeClosed {
		query += ` WHERE closed = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AdjustAccountBalances(ctx context.Context, accountID int64, currentDelta, clearedDelta core.Money) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET current_balance_cents = current_balance_cents + ?,
		    cleared_balance_cents = cleared_balance_cents + ?
		WHERE id = ?`,
		currentDelta.Cents, clearedDelta.Cents, accountID)
	if err != nil {
		return fmt.Errorf("adjust account balances: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CloseAccount(ctx context.Context, accountID int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE accounts SET closed = 1 WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("close account: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- category groups and categories ---

func (r *SQLiteRepository) CreateCategoryGroup(ctx context.Context, g *core.CategoryGroup) error {
	var exists int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_groups WHERE name = ? COLLATE NOCASE`, g.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check group name: %w", err)
	}
	if exists > 0 {
		return core.ErrAlreadyExists
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO category_groups (name, sort_order, hidden) VALUES (?, ?, ?)`,
		g.Name, g.SortOrder, g.Hidden)
	if err != nil {
		return fmt.Errorf("insert category group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category group id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	var exists int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE group_id = ? AND name = ? COLLATE NOCASE`,
		c.GroupID, c.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if exists > 0 {
		return core.ErrAlreadyExists
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (group_id, name, sort_order, hidden) VALUES (?, ?, ?, ?)`,
		c.GroupID, c.Name, c.SortOrder, c.Hidden)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	return nil
}

func scanCategory(row interface{ Scan(...any) error }) (*core.Category, error) {
	var c core.Category
	if err := row.Scan(&c.ID, &c.GroupID, &c.Name, &c.SortOrder, &c.Hidden); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) FindCategory(ctx context.Context, name string) (*core.Category, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, group_id, name, sort_order, hidden FROM categories
		WHERE name LIKE '%' || ? || '%' ORDER BY id LIMIT 1`, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, group_id, name, sort_order, hidden FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategoryGroups(ctx context.Context, includeHidden bool) ([]core.CategoryGroup, error) {
	query := `SELECT id, name, sort_order, hidden FROM category_groups`
	if !includeHidden {
		query += ` WHERE hidden = 0`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryGroup
	for rows.Next() {
		var g core.CategoryGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.SortOrder, &g.Hidden); err != nil {
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, groupID int64, includeHidden bool) ([]core.Category, error) {
	query := `SELECT id, group_id, name, sort_order, hidden FROM categories WHERE group_id = ?`
	if !includeHidden {
		query += ` AND hidden = 0`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func (r *SQLiteRepository) ListAllCategories(ctx context.Context, includeHidden bool) ([]core.Category, error) {
	query := `SELECT id, group_id, name, sort_order, hidden FROM categories`
	if !includeHidden {
		query += ` WHERE hidden = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all categories: %w", err)
	}
	defer rows.Close()
	return collectCategories(rows)
}

func collectCategories(rows *sql.Rows) ([]core.Category, error) {
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RenameCategory(ctx context.Context, id int64, name string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) SetCategoryHidden(ctx context.Context, id int64, hidden bool) error {
	res, err := r.q.ExecContext(ctx, `UPDATE categories SET hidden = ? WHERE id = ?`, hidden, id)
	if err != nil {
		return fmt.Errorf("set category hidden: %w", err)
	}
	return requireRow(res)
}

// --- payees ---

func (r *SQLiteRepository) CreatePayee(ctx context.Context, p *core.Payee) error {
	var exists int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payees WHERE name = ? COLLATE NOCASE`, p.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check payee name: %w", err)
	}
	if exists > 0 {
		return core.ErrAlreadyExists
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO payees (name, default_category_id, auto_categorize) VALUES (?, ?, ?)`,
		p.Name, nullID(p.DefaultCategoryID), p.AutoCategorize)
	if err != nil {
		return fmt.Errorf("insert payee: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payee id: %w", err)
	}
	return nil
}

func scanPayee(row interface{ Scan(...any) error }) (*core.Payee, error) {
	var p core.Payee
	var defaultCategory sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &defaultCategory, &p.AutoCategorize); err != nil {
		return nil, err
	}
	p.DefaultCategoryID = fromNullID(defaultCategory)
	return &p, nil
}

func (r *SQLiteRepository) PayeeByName(ctx context.Context, name string) (*core.Payee, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, default_category_id, auto_categorize FROM payees
		WHERE name = ? COLLATE NOCASE LIMIT 1`, name)
	p, err := scanPayee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payee by name: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetPayee(ctx context.Context, id int64) (*core.Payee, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, default_category_id, auto_categorize FROM payees WHERE id = ?`, id)
	p, err := scanPayee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payee: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SetPayeeDefaultCategory(ctx context.Context, payeeID, categoryID int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE payees SET default_category_id = ?, auto_categorize = 1 WHERE id = ?`,
		nullID(categoryID), payeeID)
	if err != nil {
		return fmt.Errorf("set payee default category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) SearchPayees(ctx context.Context, fragment string, limit int) ([]core.Payee, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, default_category_id, auto_categorize FROM payees
		WHERE default_category_id IS NOT NULL AND name LIKE '%' || ? || '%'
		ORDER BY id LIMIT ?`, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("search payees: %w", err)
	}
	defer rows.Close()
	return collectPayees(rows)
}

func (r *SQLiteRepository) ListPayeesWithDefaults(ctx context.Context) ([]core.Payee, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, default_category_id, auto_categorize FROM payees
		WHERE default_category_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	defer rows.Close()
	return collectPayees(rows)
}

func collectPayees(rows *sql.Rows) ([]core.Payee, error) {
	var out []core.Payee
	for rows.Next() {
		p, err := scanPayee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// --- match rules ---

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule *core.MatchRule) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO match_rules (payee_id, pattern, match_type, priority) VALUES (?, ?, ?, ?)`,
		rule.PayeeID, rule.Pattern, string(rule.Type), rule.Priority)
	if err != nil {
		return fmt.Errorf("insert match rule: %w", err)
	}
	rule.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("match rule id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM match_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete match rule: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.MatchRule, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, payee_id, pattern, match_type, priority FROM match_rules
		ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list match rules: %w", err)
	}
	defer rows.Close()

	var out []core.MatchRule
	for rows.Next() {
		var rule core.MatchRule
		var matchType string
		if err := rows.Scan(&rule.ID, &rule.PayeeID, &rule.Pattern, &matchType, &rule.Priority); err != nil {
			return nil, fmt.Errorf("scan match rule: %w", err)
		}
		rule.Type = core.MatchType(matchType)
		out = append(out, rule)
	}
	return out, rows.Err()
}

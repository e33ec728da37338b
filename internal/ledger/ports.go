// Package ledger defines the storage ports consumed by the budget,
// categorization and import engines. Adapters live in internal/storage
// (SQLite) and internal/ledger/memory.
package ledger

import (
	"context"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
)

// Single-entity lookups (Find*, Get*, PayeeByName, GoalForCategory) return
// (nil, nil) when nothing matches; absence is data, not an error. Callers
// that require presence wrap core.ErrNotFound themselves.

// TransactionFilter narrows ListTransactions. Zero fields are ignored.
type TransactionFilter struct {
	AccountID         int64
	CategoryID        int64
	Month             core.Month
	UncategorizedOnly bool
	Limit             int
}

type (
	AccountStore interface {
		CreateAccount(ctx context.Context, a *core.Account) error
		// FindAccount resolves by case-insensitive substring; first match wins.
		FindAccount(ctx context.Context, name string) (*core.Account, error)
		ListAccounts(ctx context.Context, includeClosed bool) ([]core.Account, error)
		// AdjustAccountBalances adds deltas to the cached balances.
		AdjustAccountBalances(ctx context.Context, accountID int64, currentDelta, clearedDelta core.Money) error
		CloseAccount(ctx context.Context, accountID int64) error
	}

	CategoryStore interface {
		CreateCategoryGroup(ctx context.Context, g *core.CategoryGroup) error
		CreateCategory(ctx context.Context, c *core.Category) error
		// FindCategory resolves by case-insensitive substring; first match wins.
		FindCategory(ctx context.Context, name string) (*core.Category, error)
		GetCategory(ctx context.Context, id int64) (*core.Category, error)
		ListCategoryGroups(ctx context.Context, includeHidden bool) ([]core.CategoryGroup, error)
		ListCategories(ctx context.Context, groupID int64, includeHidden bool) ([]core.Category, error)
		ListAllCategories(ctx context.Context, includeHidden bool) ([]core.Category, error)
		RenameCategory(ctx context.Context, id int64, name string) error
		SetCategoryHidden(ctx context.Context, id int64, hidden bool) error
	}

	PayeeStore interface {
		CreatePayee(ctx context.Context, p *core.Payee) error
		// PayeeByName is a case-insensitive exact lookup.
		PayeeByName(ctx context.Context, name string) (*core.Payee, error)
		SetPayeeDefaultCategory(ctx context.Context, payeeID, categoryID int64) error
		// SearchPayees finds payees whose name contains the fragment
		// (case-insensitive) and that have a default category set.
		SearchPayees(ctx context.Context, fragment string, limit int) ([]core.Payee, error)
		ListPayeesWithDefaults(ctx context.Context) ([]core.Payee, error)
	}

	RuleStore interface {
		CreateRule(ctx context.Context, r *core.MatchRule) error
		DeleteRule(ctx context.Context, id int64) error
		// ListRules returns every rule ordered by priority descending,
		// then by ID ascending (creation order) for stable ties.
		ListRules(ctx context.Context) ([]core.MatchRule, error)
		GetPayee(ctx context.Context, id int64) (*core.Payee, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t *core.Transaction) error
		GetTransaction(ctx context.Context, id int64) (*core.Transaction, error)
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		ImportIDExists(ctx context.Context, importID string) (bool, error)
		SetTransactionCategory(ctx context.Context, id, categoryID int64) error
		MarkTransactionCleared(ctx context.Context, id int64) error
		CountUncategorized(ctx context.Context) (int64, error)
	}

	// BudgetStore exposes the aggregate queries the budget engine runs.
	// All sums are signed cents; absent rows sum to zero.
	BudgetStore interface {
		BudgetedInMonth(ctx context.Context, categoryID int64, month core.Month) (core.Money, error)
		UpsertBudgetEntry(ctx context.Context, categoryID int64, month core.Month, amount core.Money) error
		SumBudgetedInMonth(ctx context.Context, month core.Month) (core.Money, error)
		SumBudgetedBefore(ctx context.Context, month core.Month) (core.Money, error)
		SumCategoryBudgetedBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error)
		SumCategoryActivityIn(ctx context.Context, categoryID int64, month core.Month) (core.Money, error)
		SumCategoryActivityBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error)
		// On-budget flows join transactions against on-budget accounts.
		SumOnBudgetInflowsIn(ctx context.Context, month core.Month) (core.Money, error)
		SumOnBudgetInflowsBefore(ctx context.Context, month core.Month) (core.Money, error)
		SumOnBudgetOutflowsBefore(ctx context.Context, month core.Month) (core.Money, error)
		SumOnBudgetOutflowsIn(ctx context.Context, month core.Month) (core.Money, error)
		// SumCategoryOutflowsBetween sums negative amounts dated in
		// [from.Start(), to.Start()).
		SumCategoryOutflowsBetween(ctx context.Context, categoryID int64, from, to core.Month) (core.Money, error)
	}

	GoalStore interface {
		UpsertGoal(ctx context.Context, g *core.Goal) error
		// GoalForCategory returns nil with no error when the category has
		// no goal.
		GoalForCategory(ctx context.Context, categoryID int64) (*core.Goal, error)
	}

	ReportStore interface {
		// SpendingByCategory sums outflows per category since a date,
		// most-spent first.
		SpendingByCategory(ctx context.Context, since time.Time) ([]CategorySpend, error)
		CountTransactionsIn(ctx context.Context, categoryID int64, month core.Month) (int64, error)
		SumOnBudgetBalances(ctx context.Context) (core.Money, error)
	}
)

// CategorySpend is one row of a spending report.
type CategorySpend struct {
	CategoryID   int64
	CategoryName string
	GroupName    string
	Outflow      core.Money
}

// Store is the full persistence surface. WithinTx runs fn against a
// store bound to one transaction; fn returning an error rolls everything
// back, leaving no partial state.
type Store interface {
	AccountStore
	CategoryStore
	PayeeStore
	RuleStore
	TransactionStore
	BudgetStore
	GoalStore
	ReportStore

	WithinTx(ctx context.Context, fn func(Store) error) error
}

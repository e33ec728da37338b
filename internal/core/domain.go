package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	CreditCard AccountType = "credit_card"
	Cash       AccountType = "cash"
	Investment AccountType = "investment"
)

const (
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchExact      MatchType = "exact"
	MatchRegex      MatchType = "regex"
)

const (
	GoalTargetBalance  GoalType = "target_balance"
	GoalTargetByDate   GoalType = "target_by_date"
	GoalMonthlyFunding GoalType = "monthly_funding"
	GoalSpending       GoalType = "spending"
)

type (
	AccountType string
	MatchType   string
	GoalType    string

	// Account is a bank account, credit card or cash pool. On-budget
	// accounts feed the budget; tracking accounts only affect net worth.
	Account struct {
		ID             int64
		Name           string
		Type           AccountType
		Institution    string
		CurrentBalance Money
		ClearedBalance Money
		OnBudget       bool
		Closed         bool
		CreatedAt      time.Time
	}

	// CategoryGroup owns an ordered set of categories.
	CategoryGroup struct {
		ID        int64
		Name      string
		SortOrder int
		Hidden    bool
	}

	Category struct {
		ID        int64
		GroupID   int64
		Name      string
		SortOrder int
		Hidden    bool
	}

	// Payee is a canonical merchant identity. A zero DefaultCategoryID
	// means no default; AutoCategorize gates the exact-match shortcut.
	Payee struct {
		ID                int64
		Name              string
		DefaultCategoryID int64
		AutoCategorize    bool
	}

	// MatchRule maps raw payee text to a payee and, through the payee's
	// default category, to a category. Higher priority rules are
	// evaluated first; ties break by creation order.
	MatchRule struct {
		ID       int64
		PayeeID  int64
		Pattern  string
		Type     MatchType
		Priority int
	}

	// Transaction amounts are signed cents: positive inflow, negative
	// outflow. Zero CategoryID means uncategorized. ImportID, when set,
	// is unique across all transactions; that uniqueness is the
	// deduplication guarantee.
	Transaction struct {
		ID                int64
		AccountID         int64
		CategoryID        int64
		PayeeID           int64
		TransferAccountID int64
		Date              time.Time
		Amount            Money
		Cleared           bool
		Reconciled        bool
		ImportID          string
		ImportSource      string
		ImportBatch       string
		RawPayee          string
		Memo              string
	}

	// BudgetEntry holds the budgeted amount for one (category, month)
	// pair, unique on that pair.
	BudgetEntry struct {
		ID         int64
		CategoryID int64
		Month      Month
		Budgeted   Money
	}

	// Goal attaches a savings or spending target to a category, at most
	// one per category. A zero TargetDate means no date was set.
	Goal struct {
		ID             int64
		CategoryID     int64
		Type           GoalType
		TargetAmount   Money
		TargetDate     time.Time
		MonthlyFunding Money
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrEmptyName      = errors.New("empty name")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAccount = errors.New("invalid account type")
	ErrInvalidMatch   = errors.New("invalid match type")
	ErrInvalidGoal    = errors.New("invalid goal type")
)

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, CreditCard, Cash, Investment:
		return true
	}
	return false
}

func (t MatchType) Valid() bool {
	switch t {
	case MatchContains, MatchStartsWith, MatchExact, MatchRegex:
		return true
	}
	return false
}

func (t GoalType) Valid() bool {
	switch t {
	case GoalTargetBalance, GoalTargetByDate, GoalMonthlyFunding, GoalSpending:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccount
	}
	return nil
}

func (r MatchRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return errors.New("empty pattern")
	}
	if !r.Type.Valid() {
		return ErrInvalidMatch
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return errors.New("transaction without account")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if g.CategoryID == 0 {
		return errors.New("goal without category")
	}
	if !g.Type.Valid() {
		return ErrInvalidGoal
	}
	switch g.Type {
	case GoalMonthlyFunding:
		if g.MonthlyFunding.Cents <= 0 {
			return ErrInvalidAmount
		}
	default:
		if g.TargetAmount.Cents <= 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// Uncategorized reports whether the transaction has no category assigned.
// Absence of a category is a normal state, not an error.
func (t Transaction) Uncategorized() bool {
	return t.CategoryID == 0
}

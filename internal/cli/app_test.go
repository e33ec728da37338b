package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dontoisme/zeroed/internal/config"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger/memory"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	out := &bytes.Buffer{}
	cfg := &config.Config{DataBackend: "memory", SuggestLookbackMonths: 3}
	return NewApp(store, cfg, out), out, store
}

func mustCreateAccount(t *testing.T, store *memory.Store, a core.Account) *core.Account {
	t.Helper()
	if err := store.CreateAccount(context.Background(), &a); err != nil {
		t.Fatalf("create account %s: %v", a.Name, err)
	}
	return &a
}

func mustCreateCategory(t *testing.T, store *memory.Store, groupID int64, name string) *core.Category {
	t.Helper()
	cat := &core.Category{GroupID: groupID, Name: name}
	if err := store.CreateCategory(context.Background(), cat); err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return cat
}

func mustCreateGroup(t *testing.T, store *memory.Store, name string) *core.CategoryGroup {
	t.Helper()
	group := &core.CategoryGroup{Name: name}
	if err := store.CreateCategoryGroup(context.Background(), group); err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	return group
}

func TestAccountsBalances(t *testing.T) {
	app, out, store := newTestApp(t)
	ctx := context.Background()

	mustCreateAccount(t, store, core.Account{
		Name: "Main Checking", Type: core.Checking, OnBudget: true,
		CurrentBalance: core.Money{Cents: 100000},
	})
	mustCreateAccount(t, store, core.Account{
		Name: "Emergency Fund", Type: core.Savings, OnBudget: true,
		CurrentBalance: core.Money{Cents: 500000},
	})
	mustCreateAccount(t, store, core.Account{
		Name: "Visa", Type: core.CreditCard, OnBudget: true,
		CurrentBalance: core.Money{Cents: -25000},
	})
	old := mustCreateAccount(t, store, core.Account{
		Name: "Old Checking", Type: core.Checking, OnBudget: true,
		CurrentBalance: core.Money{Cents: 777700},
	})
	if err := store.CloseAccount(ctx, old.ID); err != nil {
		t.Fatalf("close account: %v", err)
	}

	if err := app.Run(ctx, []string{"accounts", "balances"}); err != nil {
		t.Fatalf("accounts balances error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"checking", "Main Checking", "savings", "credit_card",
		"-$250.00", "NET WORTH", "$5750.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Old Checking") {
		t.Errorf("closed account listed in balances:\n%s", got)
	}
}

func TestReportsCategory(t *testing.T) {
	app, out, store := newTestApp(t)
	ctx := context.Background()

	account := mustCreateAccount(t, store, core.Account{
		Name: "Checking", Type: core.Checking, OnBudget: true,
	})
	group := mustCreateGroup(t, store, "Everyday")
	cat := mustCreateCategory(t, store, group.ID, "Groceries")
	other := mustCreateCategory(t, store, group.ID, "Dining Out")

	current := core.CurrentMonth()
	prior := current.AddMonths(-1)
	for _, txn := range []core.Transaction{
		{AccountID: account.ID, CategoryID: cat.ID, Date: prior.Start(), Amount: core.Money{Cents: -5000}, RawPayee: "GROCERY MART"},
		{AccountID: account.ID, CategoryID: cat.ID, Date: current.Start(), Amount: core.Money{Cents: -3000}, RawPayee: "GROCERY MART"},
		{AccountID: account.ID, CategoryID: other.ID, Date: current.Start(), Amount: core.Money{Cents: -9999}, RawPayee: "CHIPOTLE"},
	} {
		txn := txn
		if err := store.CreateTransaction(ctx, &txn); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	if err := app.Run(ctx, []string{"reports", "category", "Groceries", "--months", "2"}); err != nil {
		t.Fatalf("reports category error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		prior.String(), current.String(),
		"-$50.00", "-$30.00",
		// average of -5000 and -3000 cents over two months
		"AVERAGE", "-$40.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "99.99") {
		t.Errorf("other category's spending leaked into the report:\n%s", got)
	}

	out.Reset()
	if err := app.Run(ctx, []string{"reports", "category"}); err == nil {
		t.Error("reports category without a name should fail")
	}
}

func TestInitCommand(t *testing.T) {
	app, out, store := newTestApp(t)
	ctx := context.Background()

	group := mustCreateGroup(t, store, "Everyday")
	mustCreateCategory(t, store, group.ID, "Groceries")
	mustCreateCategory(t, store, group.ID, "Dining Out")

	if err := app.Run(ctx, []string{"init"}); err != nil {
		t.Fatalf("init error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Database ready") {
		t.Errorf("output missing readiness line:\n%s", got)
	}
	if !strings.Contains(got, "1 category groups, 2 categories") {
		t.Errorf("output missing seeded counts:\n%s", got)
	}
}

func TestBudgetSuggestApplyTargetsResolvedCategory(t *testing.T) {
	app, out, store := newTestApp(t)
	ctx := context.Background()

	account := mustCreateAccount(t, store, core.Account{
		Name: "Checking", Type: core.Checking, OnBudget: true,
	})
	group := mustCreateGroup(t, store, "Everyday")
	// "Dining Out" is created first, so a substring lookup for "Dining"
	// would resolve to it instead of the category that actually spent.
	diningOut := mustCreateCategory(t, store, group.ID, "Dining Out")
	dining := mustCreateCategory(t, store, group.ID, "Dining")

	current := core.CurrentMonth()
	txn := core.Transaction{
		AccountID: account.ID, CategoryID: dining.ID,
		Date: current.AddMonths(-1).Start(), Amount: core.Money{Cents: -9000},
		RawPayee: "LOCAL BISTRO",
	}
	if err := store.CreateTransaction(ctx, &txn); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := app.Run(ctx, []string{"budget", "suggest", "--apply"}); err != nil {
		t.Fatalf("budget suggest --apply error = %v", err)
	}
	if !strings.Contains(out.String(), "Applied 1 suggestions") {
		t.Fatalf("apply summary missing:\n%s", out.String())
	}

	// 9000 cents over the 3-month lookback.
	budgeted, err := store.BudgetedInMonth(ctx, dining.ID, current)
	if err != nil {
		t.Fatalf("budgeted lookup: %v", err)
	}
	if budgeted.Cents != 3000 {
		t.Errorf("Dining budgeted = %d, want 3000", budgeted.Cents)
	}

	otherBudgeted, err := store.BudgetedInMonth(ctx, diningOut.ID, current)
	if err != nil {
		t.Fatalf("budgeted lookup: %v", err)
	}
	if otherBudgeted.Cents != 0 {
		t.Errorf("Dining Out budgeted = %d, want 0 (suggestion applied to the wrong category)", otherBudgeted.Cents)
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

func seedAccount(t *testing.T, s *Store) int64 {
	t.Helper()
	a := &core.Account{Name: "Checking", Type: core.Checking, OnBudget: true}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	account := seedAccount(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx ledger.Store) error {
		txn := &core.Transaction{
			AccountID: account,
			Date:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			Amount:    core.Money{Cents: -500},
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := tx.AdjustAccountBalances(ctx, account, core.Money{Cents: -500}, core.Money{}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx error = %v, want boom", err)
	}

	txns, _ := s.ListTransactions(ctx, ledger.TransactionFilter{})
	if len(txns) != 0 {
		t.Errorf("rolled-back transaction still visible: %d rows", len(txns))
	}
	a, _ := s.FindAccount(ctx, "Checking")
	if !a.CurrentBalance.IsZero() {
		t.Errorf("rolled-back balance delta still visible: %d", a.CurrentBalance.Cents)
	}
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	account := seedAccount(t, s)

	err := s.WithinTx(ctx, func(tx ledger.Store) error {
		txn := &core.Transaction{
			AccountID: account,
			Date:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			Amount:    core.Money{Cents: -500},
		}
		return tx.CreateTransaction(ctx, txn)
	})
	if err != nil {
		t.Fatalf("WithinTx error = %v", err)
	}

	txns, _ := s.ListTransactions(ctx, ledger.TransactionFilter{})
	if len(txns) != 1 {
		t.Errorf("committed transaction missing: %d rows", len(txns))
	}
}

func TestStore_NameUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedAccount(t, s)

	dup := &core.Account{Name: "CHECKING", Type: core.Savings}
	if err := s.CreateAccount(ctx, dup); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("case-folded duplicate account error = %v, want ErrAlreadyExists", err)
	}

	g := &core.CategoryGroup{Name: "Bills"}
	if err := s.CreateCategoryGroup(ctx, g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := s.CreateCategory(ctx, &core.Category{GroupID: g.ID, Name: "Rent"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := s.CreateCategory(ctx, &core.Category{GroupID: g.ID, Name: "rent"}); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("duplicate category in group error = %v, want ErrAlreadyExists", err)
	}

	// The same name in another group is fine.
	g2 := &core.CategoryGroup{Name: "Business"}
	if err := s.CreateCategoryGroup(ctx, g2); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := s.CreateCategory(ctx, &core.Category{GroupID: g2.ID, Name: "Rent"}); err != nil {
		t.Errorf("same name in different group: %v", err)
	}
}

func TestStore_ImportIDUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	account := seedAccount(t, s)
	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	first := &core.Transaction{AccountID: account, Date: date, Amount: core.Money{Cents: -100}, ImportID: "abc"}
	if err := s.CreateTransaction(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &core.Transaction{AccountID: account, Date: date, Amount: core.Money{Cents: -100}, ImportID: "abc"}
	if err := s.CreateTransaction(ctx, dup); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("duplicate import id error = %v, want ErrAlreadyExists", err)
	}

	// Transactions without import ids never collide.
	for i := 0; i < 2; i++ {
		manual := &core.Transaction{AccountID: account, Date: date, Amount: core.Money{Cents: -100}}
		if err := s.CreateTransaction(ctx, manual); err != nil {
			t.Errorf("manual transaction %d: %v", i, err)
		}
	}

	exists, err := s.ImportIDExists(ctx, "abc")
	if err != nil || !exists {
		t.Errorf("ImportIDExists(abc) = %v, %v, want true", exists, err)
	}
	exists, _ = s.ImportIDExists(ctx, "nope")
	if exists {
		t.Error("ImportIDExists(nope) = true, want false")
	}
}

func TestStore_ListTransactionsOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	account := seedAccount(t, s)

	days := []int{5, 1, 5, 3}
	for _, day := range days {
		txn := &core.Transaction{
			AccountID: account,
			Date:      time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC),
			Amount:    core.Money{Cents: -100},
		}
		if err := s.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	txns, err := s.ListTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Date descending, then insertion order descending for ties.
	wantDays := []int{5, 5, 3, 1}
	for i, txn := range txns {
		if txn.Date.Day() != wantDays[i] {
			t.Fatalf("position %d day = %d, want %d", i, txn.Date.Day(), wantDays[i])
		}
	}
	if txns[0].ID < txns[1].ID {
		t.Error("same-day rows should list newest insertion first")
	}

	limited, _ := s.ListTransactions(ctx, ledger.TransactionFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d rows", len(limited))
	}
}

func TestStore_ListRulesOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	priorities := []int{1, 10, 5, 10}
	for _, p := range priorities {
		r := &core.MatchRule{PayeeID: 1, Pattern: "x", Type: core.MatchContains, Priority: p}
		if err := s.CreateRule(ctx, r); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}

	rules, err := s.ListRules(ctx)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	wantPriorities := []int{10, 10, 5, 1}
	for i, r := range rules {
		if r.Priority != wantPriorities[i] {
			t.Fatalf("position %d priority = %d, want %d", i, r.Priority, wantPriorities[i])
		}
	}
	// Priority ties keep creation order.
	if rules[0].ID > rules[1].ID {
		t.Error("tied priorities should list oldest rule first")
	}
}

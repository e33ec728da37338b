package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
	"github.com/dontoisme/zeroed/internal/ledger/memory"
)

func newLedgerFixture(t *testing.T, store ledger.Store) (*LedgerService, int64) {
	t.Helper()
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
	return NewLedgerService(store), cat.ID
}

func addGroceryRun(t *testing.T, svc *LedgerService) *core.Transaction {
	t.Helper()
	txn, err := svc.AddTransaction(context.Background(), AddTransactionParams{
		AccountName: "Checking",
		Amount:      core.Money{Cents: -4250},
		PayeeName:   "GROCERY MART",
		Date:        time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return txn
}

func TestLedgerService_CategorizeWithLearn(t *testing.T) {
	store := memory.NewStore()
	svc, catID := newLedgerFixture(t, store)
	ctx := context.Background()
	txn := addGroceryRun(t, svc)

	category, err := svc.CategorizeTransaction(ctx, txn.ID, "Groceries", true)
	if err != nil {
		t.Fatalf("CategorizeTransaction error = %v", err)
	}
	if category.ID != catID {
		t.Errorf("resolved category %d, want %d", category.ID, catID)
	}

	stored, err := store.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if stored.CategoryID != catID {
		t.Errorf("transaction category = %d, want %d", stored.CategoryID, catID)
	}

	payee, err := store.PayeeByName(ctx, "GROCERY MART")
	if err != nil || payee == nil {
		t.Fatalf("payee lookup: %v, %v", payee, err)
	}
	if payee.DefaultCategoryID != catID {
		t.Errorf("payee default = %d, want %d (learned)", payee.DefaultCategoryID, catID)
	}
}

// payeeWriteFailStore fails payee default updates, inside and outside
// transactions.
type payeeWriteFailStore struct {
	ledger.Store
	err error
}

func (s *payeeWriteFailStore) SetPayeeDefaultCategory(ctx context.Context, payeeID, categoryID int64) error {
	return s.err
}

func (s *payeeWriteFailStore) WithinTx(ctx context.Context, fn func(ledger.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx ledger.Store) error {
		return fn(&payeeWriteFailStore{Store: tx, err: s.err})
	})
}

func TestLedgerService_CategorizeLearnFailureRollsBack(t *testing.T) {
	base := memory.NewStore()
	failing := &payeeWriteFailStore{Store: base, err: errors.New("payee write refused")}
	svc, _ := newLedgerFixture(t, failing)
	ctx := context.Background()
	txn := addGroceryRun(t, svc)

	if _, err := svc.CategorizeTransaction(ctx, txn.ID, "Groceries", true); !errors.Is(err, failing.err) {
		t.Fatalf("CategorizeTransaction error = %v, want the payee write failure", err)
	}

	// The category assignment commits together with the learned default;
	// a failed learn must leave the transaction uncategorized.
	stored, err := base.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if stored.CategoryID != 0 {
		t.Errorf("transaction category = %d after failed learn, want 0", stored.CategoryID)
	}
}

func TestLedgerService_CategorizeWithoutLearn(t *testing.T) {
	store := memory.NewStore()
	svc, catID := newLedgerFixture(t, store)
	ctx := context.Background()
	txn := addGroceryRun(t, svc)

	if _, err := svc.CategorizeTransaction(ctx, txn.ID, "Groceries", false); err != nil {
		t.Fatalf("CategorizeTransaction error = %v", err)
	}

	stored, err := store.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if stored.CategoryID != catID {
		t.Errorf("transaction category = %d, want %d", stored.CategoryID, catID)
	}
	payee, err := store.PayeeByName(ctx, "GROCERY MART")
	if err != nil || payee == nil {
		t.Fatalf("payee lookup: %v, %v", payee, err)
	}
	if payee.DefaultCategoryID != 0 {
		t.Errorf("payee default = %d without learn, want 0", payee.DefaultCategoryID)
	}
}

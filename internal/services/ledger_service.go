package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dontoisme/zeroed/internal/categorize"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

// LedgerService covers manual ledger maintenance: accounts, hand-entered
// transactions, categorization and clearing.
type LedgerService struct {
	store ledger.Store
}

func NewLedgerService(store ledger.Store) *LedgerService {
	return &LedgerService{store: store}
}

// CreateAccount opens an account with its starting balance counted as both
// current and cleared.
func (s *LedgerService) CreateAccount(ctx context.Context, name string, accountType core.AccountType, institution string, balance core.Money, onBudget bool) (*core.Account, error) {
	account := &core.Account{
		Name:           name,
		Type:           accountType,
		Institution:    institution,
		CurrentBalance: balance,
		ClearedBalance: balance,
		OnBudget:       onBudget,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"name", account.Name,
		"type", string(account.Type),
		"on_budget", account.OnBudget)
	return account, nil
}

// RequireAccount resolves an account by substring or fails with
// core.ErrNotFound.
func (s *LedgerService) RequireAccount(ctx context.Context, name string) (*core.Account, error) {
	account, err := s.store.FindAccount(ctx, name)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %q: %w", name, core.ErrNotFound)
	}
	return account, nil
}

// AddTransactionParams is the manual-entry surface. CategoryName is
// optional; an unresolvable category leaves the transaction uncategorized
// rather than failing.
type AddTransactionParams struct {
	AccountName  string
	Amount       core.Money
	PayeeName    string
	CategoryName string
	Date         time.Time
	Memo         string
}

// AddTransaction writes one manual transaction and moves the account's
// current balance. The payee is created on first use.
func (s *LedgerService) AddTransaction(ctx context.Context, p AddTransactionParams) (*core.Transaction, error) {
	account, err := s.RequireAccount(ctx, p.AccountName)
	if err != nil {
		return nil, err
	}

	if p.Date.IsZero() {
		p.Date = time.Now()
	}

	txn := &core.Transaction{
		AccountID: account.ID,
		Date:      p.Date,
		Amount:    p.Amount,
		RawPayee:  p.PayeeName,
		Memo:      p.Memo,
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx ledger.Store) error {
		payee, err := tx.PayeeByName(ctx, p.PayeeName)
		if err != nil {
			return fmt.Errorf("lookup payee: %w", err)
		}
		if payee == nil {
			payee = &core.Payee{Name: p.PayeeName}
			if err := tx.CreatePayee(ctx, payee); err != nil {
				return fmt.Errorf("create payee: %w", err)
			}
		}
		txn.PayeeID = payee.ID

		if p.CategoryName != "" {
			category, err := tx.FindCategory(ctx, p.CategoryName)
			if err != nil {
				return err
			}
			if category != nil {
				txn.CategoryID = category.ID
			}
		}

		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return tx.AdjustAccountBalances(ctx, account.ID, p.Amount, core.Money{})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction added",
		"account", account.Name,
		"payee", p.PayeeName,
		"amount", p.Amount.Fixed2(),
		"date", p.Date.Format("2006-01-02"))
	return txn, nil
}

// CategorizeTransaction assigns a category by substring lookup. With learn
// set, the payee's default category is updated so future imports match.
func (s *LedgerService) CategorizeTransaction(ctx context.Context, id int64, categoryName string, learn bool) (*core.Category, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}

	category, err := s.store.FindCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %q: %w", categoryName, core.ErrNotFound)
	}

	// Category assignment and the learned payee default commit together;
	// a failed learn must not leave the transaction categorized.
	err = s.store.WithinTx(ctx, func(tx ledger.Store) error {
		if err := tx.SetTransactionCategory(ctx, id, category.ID); err != nil {
			return err
		}
		if learn && txn.RawPayee != "" {
			if _, err := categorize.LearnPayeeDefault(ctx, tx, txn.RawPayee, category.ID); err != nil {
				return fmt.Errorf("learn payee default: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// ClearTransaction marks a transaction cleared and moves the account's
// cleared balance by its amount. Clearing twice would double-count, so an
// already-cleared transaction is a no-op.
func (s *LedgerService) ClearTransaction(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(tx ledger.Store) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		if txn.Cleared {
			return nil
		}
		if err := tx.MarkTransactionCleared(ctx, id); err != nil {
			return err
		}
		return tx.AdjustAccountBalances(ctx, txn.AccountID, core.Money{}, txn.Amount)
	})
}

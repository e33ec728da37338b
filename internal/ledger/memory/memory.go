// Package memory is an in-memory ledger.Store used by tests and the
// throwaway sandbox backend. Semantics mirror the SQLite adapter, including
// ordering and uniqueness; WithinTx rolls back by snapshot.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

type Store struct {
	mu sync.RWMutex

	accounts     map[int64]*core.Account
	groups       map[int64]*core.CategoryGroup
	categories   map[int64]*core.Category
	payees       map[int64]*core.Payee
	rules        map[int64]*core.MatchRule
	transactions map[int64]*core.Transaction
	entries      map[int64]*core.BudgetEntry
	goals        map[int64]*core.Goal

	nextID map[string]int64
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]*core.Account),
		groups:       make(map[int64]*core.CategoryGroup),
		categories:   make(map[int64]*core.Category),
		payees:       make(map[int64]*core.Payee),
		rules:        make(map[int64]*core.MatchRule),
		transactions: make(map[int64]*core.Transaction),
		entries:      make(map[int64]*core.BudgetEntry),
		goals:        make(map[int64]*core.Goal),
		nextID:       make(map[string]int64),
	}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) id(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Name, a.Name) {
			return core.ErrAlreadyExists
		}
	}
	a.ID = s.id("account")
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) FindAccount(ctx context.Context, name string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(name)
	for _, id := range sortedKeys(s.accounts) {
		a := s.accounts[id]
		if strings.Contains(strings.ToLower(a.Name), needle) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAccounts(ctx context.Context, includeClosed bool) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Account
	for _, id := range sortedKeys(s.accounts) {
		a := s.accounts[id]
		if a.Closed && !includeClosed {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *Store) AdjustAccountBalances(ctx context.Context, accountID int64, currentDelta, clearedDelta core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(currentDelta)
	a.ClearedBalance = a.ClearedBalance.Add(clearedDelta)
	return nil
}

func (s *Store) CloseAccount(ctx context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return core.ErrNotFound
	}
	a.Closed = true
	return nil
}

// --- categories ---

func (s *Store) CreateCategoryGroup(ctx context.Context, g *core.CategoryGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if strings.EqualFold(existing.Name, g.Name) {
			return core.ErrAlreadyExists
		}
	}
	g.ID = s.id("group")
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[c.GroupID]; !ok {
		return core.ErrNotFound
	}
	for _, existing := range s.categories {
		if existing.GroupID == c.GroupID && strings.EqualFold(existing.Name, c.Name) {
			return core.ErrAlreadyExists
		}
	}
	c.ID = s.id("category")
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *Store) FindCategory(ctx context.Context, name string) (*core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(name)
	for _, id := range sortedKeys(s.categories) {
		c := s.categories[id]
		if strings.Contains(strings.ToLower(c.Name), needle) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCategoryGroups(ctx context.Context, includeHidden bool) ([]core.CategoryGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.CategoryGroup
	for _, id := range sortedKeys(s.groups) {
		g := s.groups[id]
		if g.Hidden && !includeHidden {
			continue
		}
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context, groupID int64, includeHidden bool) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Category
	for _, id := range sortedKeys(s.categories) {
		c := s.categories[id]
		if c.GroupID != groupID {
			continue
		}
		if c.Hidden && !includeHidden {
			continue
		}
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) ListAllCategories(ctx context.Context, includeHidden bool) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Category
	for _, id := range sortedKeys(s.categories) {
		c := s.categories[id]
		if c.Hidden && !includeHidden {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) RenameCategory(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return core.ErrNotFound
	}
	c.Name = name
	return nil
}

func (s *Store) SetCategoryHidden(ctx context.Context, id int64, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return core.ErrNotFound
	}
	c.Hidden = hidden
	return nil
}

// --- payees ---

func (s *Store) CreatePayee(ctx context.Context, p *core.Payee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.payees {
		if strings.EqualFold(existing.Name, p.Name) {
			return core.ErrAlreadyExists
		}
	}
	p.ID = s.id("payee")
	cp := *p
	s.payees[p.ID] = &cp
	return nil
}

func (s *Store) PayeeByName(ctx context.Context, name string) (*core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.payees) {
		p := s.payees[id]
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetPayee(ctx context.Context, id int64) (*core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payees[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SetPayeeDefaultCategory(ctx context.Context, payeeID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payees[payeeID]
	if !ok {
		return core.ErrNotFound
	}
	p.DefaultCategoryID = categoryID
	p.AutoCategorize = true
	return nil
}

func (s *Store) SearchPayees(ctx context.Context, fragment string, limit int) ([]core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(fragment)
	var out []core.Payee
	for _, id := range sortedKeys(s.payees) {
		p := s.payees[id]
		if p.DefaultCategoryID == 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		out = append(out, *p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListPayeesWithDefaults(ctx context.Context) ([]core.Payee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Payee
	for _, id := range sortedKeys(s.payees) {
		p := s.payees[id]
		if p.DefaultCategoryID == 0 {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// --- rules ---

func (s *Store) CreateRule(ctx context.Context, r *core.MatchRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id("rule")
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) ListRules(ctx context.Context) ([]core.MatchRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.MatchRule
	for _, id := range sortedKeys(s.rules) {
		out = append(out, *s.rules[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

// --- transactions ---

func (s *Store) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[t.AccountID]; !ok {
		return core.ErrNotFound
	}
	if t.ImportID != "" {
		for _, existing := range s.transactions {
			if existing.ImportID == t.ImportID {
				return core.ErrAlreadyExists
			}
		}
	}
	t.ID = s.id("transaction")
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Transaction
	for _, id := range sortedKeys(s.transactions) {
		t := s.transactions[id]
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
			continue
		}
		if f.UncategorizedOnly && !t.Uncategorized() {
			continue
		}
		if !f.Month.IsZero() && !f.Month.Contains(t.Date) {
			continue
		}
		out = append(out, *t)
	}
	// Newest first; same-day rows by insertion order, newest first.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ImportIDExists(ctx context.Context, importID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.ImportID != "" && t.ImportID == importID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SetTransactionCategory(ctx context.Context, id, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	t.CategoryID = categoryID
	return nil
}

func (s *Store) MarkTransactionCleared(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.ErrNotFound
	}
	t.Cleared = true
	return nil
}

func (s *Store) CountUncategorized(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.transactions {
		if t.Uncategorized() {
			n++
		}
	}
	return n, nil
}

// --- budget entries ---

func (s *Store) BudgetedInMonth(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.CategoryID == categoryID && e.Month == month {
			return e.Budgeted, nil
		}
	}
	return core.Money{}, nil
}

func (s *Store) UpsertBudgetEntry(ctx context.Context, categoryID int64, month core.Month, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[categoryID]; !ok {
		return core.ErrNotFound
	}
	for _, e := range s.entries {
		if e.CategoryID == categoryID && e.Month == month {
			e.Budgeted = amount
			return nil
		}
	}
	id := s.id("entry")
	s.entries[id] = &core.BudgetEntry{ID: id, CategoryID: categoryID, Month: month, Budgeted: amount}
	return nil
}

func (s *Store) SumBudgetedInMonth(ctx context.Context, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, e := range s.entries {
		if e.Month == month {
			sum = sum.Add(e.Budgeted)
		}
	}
	return sum, nil
}

func (s *Store) SumBudgetedBefore(ctx context.Context, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, e := range s.entries {
		if e.Month.Before(month) {
			sum = sum.Add(e.Budgeted)
		}
	}
	return sum, nil
}

func (s *Store) SumCategoryBudgetedBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, e := range s.entries {
		if e.CategoryID == categoryID && e.Month.Before(month) {
			sum = sum.Add(e.Budgeted)
		}
	}
	return sum, nil
}

func (s *Store) SumCategoryActivityIn(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, t := range s.transactions {
		if t.CategoryID == categoryID && month.Contains(t.Date) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (s *Store) SumCategoryActivityBefore(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, t := range s.transactions {
		if t.CategoryID == categoryID && t.Date.Before(month.Start()) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

func (s *Store) SumOnBudgetInflowsIn(ctx context.Context, month core.Month) (core.Money, error) {
	return s.sumOnBudget(func(t *core.Transaction) bool {
		return t.Amount.Cents > 0 && month.Contains(t.Date)
	}), nil
}

func (s *Store) SumOnBudgetInflowsBefore(ctx context.Context, month core.Month) (core.Money, error) {
	return s.sumOnBudget(func(t *core.Transaction) bool {
		return t.Amount.Cents > 0 && t.Date.Before(month.Start())
	}), nil
}

func (s *Store) SumOnBudgetOutflowsBefore(ctx context.Context, month core.Month) (core.Money, error) {
	return s.sumOnBudget(func(t *core.Transaction) bool {
		return t.Amount.Cents < 0 && t.Date.Before(month.Start())
	}), nil
}

func (s *Store) SumOnBudgetOutflowsIn(ctx context.Context, month core.Month) (core.Money, error) {
	return s.sumOnBudget(func(t *core.Transaction) bool {
		return t.Amount.Cents < 0 && month.Contains(t.Date)
	}), nil
}

func (s *Store) sumOnBudget(keep func(*core.Transaction) bool) core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, t := range s.transactions {
		a, ok := s.accounts[t.AccountID]
		if !ok || !a.OnBudget {
			continue
		}
		if keep(t) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func (s *Store) SumCategoryOutflowsBetween(ctx context.Context, categoryID int64, from, to core.Month) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, t := range s.transactions {
		if t.CategoryID != categoryID || t.Amount.Cents >= 0 {
			continue
		}
		if t.Date.Before(from.Start()) || !t.Date.Before(to.Start()) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}

// --- goals ---

func (s *Store) UpsertGoal(ctx context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[g.CategoryID]; !ok {
		return core.ErrNotFound
	}
	for _, existing := range s.goals {
		if existing.CategoryID == g.CategoryID {
			g.ID = existing.ID
			cp := *g
			s.goals[existing.ID] = &cp
			return nil
		}
	}
	g.ID = s.id("goal")
	cp := *g
	s.goals[g.ID] = &cp
	return nil
}

func (s *Store) GoalForCategory(ctx context.Context, categoryID int64) (*core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.goals {
		if g.CategoryID == categoryID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

// --- reports ---

func (s *Store) SpendingByCategory(ctx context.Context, since time.Time) ([]ledger.CategorySpend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[int64]core.Money)
	for _, t := range s.transactions {
		if t.Amount.Cents >= 0 || t.Uncategorized() || t.Date.Before(since) {
			continue
		}
		byCategory[t.CategoryID] = byCategory[t.CategoryID].Add(t.Amount)
	}

	var out []ledger.CategorySpend
	for catID, outflow := range byCategory {
		cat, ok := s.categories[catID]
		if !ok {
			continue
		}
		var groupName string
		if g, ok := s.groups[cat.GroupID]; ok {
			groupName = g.Name
		}
		out = append(out, ledger.CategorySpend{
			CategoryID:   catID,
			CategoryName: cat.Name,
			GroupName:    groupName,
			Outflow:      outflow,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Outflow.Cents < out[j].Outflow.Cents })
	return out, nil
}

func (s *Store) CountTransactionsIn(ctx context.Context, categoryID int64, month core.Month) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.transactions {
		if t.CategoryID == categoryID && month.Contains(t.Date) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumOnBudgetBalances(ctx context.Context) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Money
	for _, a := range s.accounts {
		if a.OnBudget && !a.Closed {
			sum = sum.Add(a.CurrentBalance)
		}
	}
	return sum, nil
}

// --- transactions (store-level) ---

// WithinTx snapshots all state, runs fn, and restores the snapshot when fn
// fails. Serialized by design; nested calls would deadlock the snapshot so
// fn receives the same store and must not call WithinTx again.
func (s *Store) WithinTx(ctx context.Context, fn func(ledger.Store) error) error {
	snapshot := s.clone()
	if err := fn(s); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := NewStore()
	for k, v := range s.accounts {
		c := *v
		cp.accounts[k] = &c
	}
	for k, v := range s.groups {
		c := *v
		cp.groups[k] = &c
	}
	for k, v := range s.categories {
		c := *v
		cp.categories[k] = &c
	}
	for k, v := range s.payees {
		c := *v
		cp.payees[k] = &c
	}
	for k, v := range s.rules {
		c := *v
		cp.rules[k] = &c
	}
	for k, v := range s.transactions {
		c := *v
		cp.transactions[k] = &c
	}
	for k, v := range s.entries {
		c := *v
		cp.entries[k] = &c
	}
	for k, v := range s.goals {
		c := *v
		cp.goals[k] = &c
	}
	for k, v := range s.nextID {
		cp.nextID[k] = v
	}
	return cp
}

func (s *Store) restore(from *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = from.accounts
	s.groups = from.groups
	s.categories = from.categories
	s.payees = from.payees
	s.rules = from.rules
	s.transactions = from.transactions
	s.entries = from.entries
	s.goals = from.goals
	s.nextID = from.nextID
}

func sortedKeys[V any](m map[int64]*V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

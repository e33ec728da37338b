// Package budget implements the zero-based budgeting arithmetic: rolling
// per-category available balances, the global ready-to-assign figure, goal
// progress and spending-based suggestions.
//
// Every quantity is a pure aggregate over persisted transaction and budget
// entry history, anchored to the first calendar day of a month. Carryover
// recomputes from all history on every query; that full-history scan is the
// reference semantics. The engine layers a small LRU over it, purged on
// every write.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dontoisme/zeroed/internal/cache"
	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

const (
	// DefaultLookback is the month window for budget suggestions.
	DefaultLookback = 3

	availableCacheSize = 512
	availableCacheTTL  = 5 * time.Minute

	// monthViewConcurrency bounds the per-category fan-out when building
	// a month view. Reads only; writes stay strictly sequential.
	monthViewConcurrency = 4
)

type (
	// CategoryRow is one category's line in a month view.
	CategoryRow struct {
		CategoryID int64
		Name       string
		Budgeted   core.Money
		Activity   core.Money
		Available  core.Money
		Goal       *GoalProgress
	}

	GroupView struct {
		GroupID    int64
		Name       string
		Categories []CategoryRow
	}

	// MonthView is the full budget picture for one month.
	MonthView struct {
		Month         core.Month
		ReadyToAssign core.Money
		Groups        []GroupView
	}

	// Suggestion proposes a budget amount from average historical
	// outflow, alongside the current allocation so callers can diff.
	Suggestion struct {
		CategoryID int64
		Category   string
		Suggested  core.Money
		Current    core.Money
	}

	// GoalProgress reports a goal against the category's available
	// balance. Which fields are meaningful depends on Type.
	GoalProgress struct {
		Type            core.GoalType
		Target          core.Money
		Saved           core.Money
		ProgressPct     float64
		Remaining       core.Money
		MonthsRemaining int
		MonthlyNeeded   core.Money
		Budgeted        core.Money
		Funded          bool
		Available       core.Money
	}
)

type Engine struct {
	store     ledger.Store
	available cache.Cache[core.Money]
}

func NewEngine(store ledger.Store) *Engine {
	return &Engine{
		store:     store,
		available: cache.NewLRUCache[core.Money](availableCacheSize, availableCacheTTL),
	}
}

// Invalidate purges memoized aggregates. Every operation that writes
// transactions or budget entries must call this before the next read.
func (e *Engine) Invalidate() {
	e.available.Purge()
}

// Activity sums the category's transaction amounts dated within the month.
func (e *Engine) Activity(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	return e.store.SumCategoryActivityIn(ctx, categoryID, month)
}

// Budgeted is the category's allocation for the month, zero when no entry
// exists.
func (e *Engine) Budgeted(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	return e.store.BudgetedInMonth(ctx, categoryID, month)
}

// Carryover is the category's cumulative budgeted-plus-activity balance over
// every month strictly before the target, unbounded lookback. Overspending
// carries forward as a negative balance.
func (e *Engine) Carryover(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	budgeted, err := e.store.SumCategoryBudgetedBefore(ctx, categoryID, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum budgeted before %s: %w", month, err)
	}
	activity, err := e.store.SumCategoryActivityBefore(ctx, categoryID, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum activity before %s: %w", month, err)
	}
	return budgeted.Add(activity), nil
}

// Available is the headline per-category figure:
// budgeted + activity + carryover.
func (e *Engine) Available(ctx context.Context, categoryID int64, month core.Month) (core.Money, error) {
	key := "available:" + strconv.FormatInt(categoryID, 10) + ":" + month.String()
	if v, ok := e.available.Get(key); ok {
		return v, nil
	}

	budgeted, err := e.Budgeted(ctx, categoryID, month)
	if err != nil {
		return core.Money{}, err
	}
	activity, err := e.Activity(ctx, categoryID, month)
	if err != nil {
		return core.Money{}, err
	}
	carryover, err := e.Carryover(ctx, categoryID, month)
	if err != nil {
		return core.Money{}, err
	}

	available := budgeted.Add(activity).Add(carryover)
	e.available.Set(key, available)
	return available, nil
}

// ReadyToAssign is inflows this month plus the global carryover minus total
// budgeted this month. Negative means the user over-allocated relative to
// funds on hand.
func (e *Engine) ReadyToAssign(ctx context.Context, month core.Month) (core.Money, error) {
	inflows, err := e.store.SumOnBudgetInflowsIn(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum inflows: %w", err)
	}
	budgeted, err := e.store.SumBudgetedInMonth(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum budgeted: %w", err)
	}
	carryover, err := e.globalCarryover(ctx, month)
	if err != nil {
		return core.Money{}, err
	}
	return inflows.Add(carryover).Add(budgeted.Neg()), nil
}

// globalCarryover is all historical on-budget inflows plus outflows
// (negative) minus all historical budgeted amounts before the month. It is
// deliberately not reconciled against per-category carryover: an overspent
// category keeps its own negative balance and does not refund this pool.
func (e *Engine) globalCarryover(ctx context.Context, month core.Month) (core.Money, error) {
	inflows, err := e.store.SumOnBudgetInflowsBefore(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum historical inflows: %w", err)
	}
	outflows, err := e.store.SumOnBudgetOutflowsBefore(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum historical outflows: %w", err)
	}
	budgeted, err := e.store.SumBudgetedBefore(ctx, month)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum historical budgeted: %w", err)
	}
	return inflows.Add(outflows).Add(budgeted.Neg()), nil
}

// View builds the month budget view: every non-hidden group and category in
// sort order with budgeted/activity/available/goal, plus ready-to-assign.
func (e *Engine) View(ctx context.Context, month core.Month) (*MonthView, error) {
	view := &MonthView{Month: month}

	rta, err := e.ReadyToAssign(ctx, month)
	if err != nil {
		return nil, err
	}
	view.ReadyToAssign = rta

	groups, err := e.store.ListCategoryGroups(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for _, group := range groups {
		categories, err := e.store.ListCategories(ctx, group.ID, false)
		if err != nil {
			return nil, fmt.Errorf("list categories for %s: %w", group.Name, err)
		}

		rows := make([]CategoryRow, len(categories))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(monthViewConcurrency)
		for i, cat := range categories {
			g.Go(func() error {
				row, err := e.categoryRow(gctx, cat, month)
				if err != nil {
					return err
				}
				rows[i] = row
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		view.Groups = append(view.Groups, GroupView{GroupID: group.ID, Name: group.Name, Categories: rows})
	}
	return view, nil
}

func (e *Engine) categoryRow(ctx context.Context, cat core.Category, month core.Month) (CategoryRow, error) {
	budgeted, err := e.Budgeted(ctx, cat.ID, month)
	if err != nil {
		return CategoryRow{}, err
	}
	activity, err := e.Activity(ctx, cat.ID, month)
	if err != nil {
		return CategoryRow{}, err
	}
	available, err := e.Available(ctx, cat.ID, month)
	if err != nil {
		return CategoryRow{}, err
	}

	row := CategoryRow{
		CategoryID: cat.ID,
		Name:       cat.Name,
		Budgeted:   budgeted,
		Activity:   activity,
		Available:  available,
	}

	goal, err := e.store.GoalForCategory(ctx, cat.ID)
	if err != nil {
		return CategoryRow{}, fmt.Errorf("goal for %s: %w", cat.Name, err)
	}
	if goal != nil {
		progress, err := e.goalProgress(ctx, goal, month, available)
		if err != nil {
			return CategoryRow{}, err
		}
		row.Goal = &progress
	}
	return row, nil
}

// SetCategoryBudget resolves the category by case-insensitive substring
// (first match wins) and upserts its (category, month) entry.
func (e *Engine) SetCategoryBudget(ctx context.Context, categoryName string, month core.Month, amount core.Money) (*core.Category, error) {
	category, err := e.store.FindCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %q: %w", categoryName, core.ErrNotFound)
	}
	if err := e.SetBudget(ctx, category.ID, month, amount); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Budget entry set",
		"category", category.Name,
		"month", month.String(),
		"amount", amount.Fixed2())
	return category, nil
}

// SetBudget upserts a (category, month) entry by ID, for callers that have
// already resolved the category. Substring lookup is ambiguous when one
// category's name contains another's.
func (e *Engine) SetBudget(ctx context.Context, categoryID int64, month core.Month, amount core.Money) error {
	if err := e.store.UpsertBudgetEntry(ctx, categoryID, month, amount); err != nil {
		return fmt.Errorf("upsert budget entry: %w", err)
	}
	e.Invalidate()
	return nil
}

// SetGoal validates and upserts the category's goal, replacing any existing
// one.
func (e *Engine) SetGoal(ctx context.Context, g *core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return e.store.UpsertGoal(ctx, g)
}

// Suggest computes, for each non-hidden category with spending history, the
// average monthly outflow magnitude over the lookback months immediately
// preceding the target month. Categories with no outflows are omitted;
// results sort by suggested amount descending.
func (e *Engine) Suggest(ctx context.Context, month core.Month, lookback int) ([]Suggestion, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	from := month.AddMonths(-lookback)

	categories, err := e.store.ListAllCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var suggestions []Suggestion
	for _, cat := range categories {
		total, err := e.store.SumCategoryOutflowsBetween(ctx, cat.ID, from, month)
		if err != nil {
			return nil, fmt.Errorf("sum outflows for %s: %w", cat.Name, err)
		}
		if total.IsZero() {
			continue
		}
		lb := int64(lookback)
		avg := (total.Abs().Cents + lb/2) / lb
		current, err := e.Budgeted(ctx, cat.ID, month)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, Suggestion{
			CategoryID: cat.ID,
			Category:   cat.Name,
			Suggested:  core.Money{Cents: avg},
			Current:    current,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Suggested.Cents > suggestions[j].Suggested.Cents
	})
	return suggestions, nil
}

func (e *Engine) goalProgress(ctx context.Context, goal *core.Goal, month core.Month, available core.Money) (GoalProgress, error) {
	switch goal.Type {
	case core.GoalTargetBalance:
		return GoalProgress{
			Type:        goal.Type,
			Target:      goal.TargetAmount,
			Saved:       available,
			ProgressPct: progressPct(available, goal.TargetAmount),
			Remaining:   remaining(goal.TargetAmount, available),
		}, nil

	case core.GoalTargetByDate:
		months := 12 // no target date defaults to a year out
		if !goal.TargetDate.IsZero() {
			months = core.MonthsBetween(month, core.MonthOf(goal.TargetDate))
		}
		if months < 1 {
			months = 1
		}
		rem := remaining(goal.TargetAmount, available)
		return GoalProgress{
			Type:            goal.Type,
			Target:          goal.TargetAmount,
			Saved:           available,
			ProgressPct:     progressPct(available, goal.TargetAmount),
			Remaining:       rem,
			MonthsRemaining: months,
			MonthlyNeeded:   core.Money{Cents: rem.Cents / int64(months)},
		}, nil

	case core.GoalMonthlyFunding:
		budgeted, err := e.Budgeted(ctx, goal.CategoryID, month)
		if err != nil {
			return GoalProgress{}, err
		}
		return GoalProgress{
			Type:     goal.Type,
			Target:   goal.MonthlyFunding,
			Budgeted: budgeted,
			Funded:   budgeted.Cents >= goal.MonthlyFunding.Cents,
		}, nil

	case core.GoalSpending:
		// A spending cap, not a savings goal: no progress percentage.
		return GoalProgress{
			Type:      goal.Type,
			Target:    goal.TargetAmount,
			Available: available,
		}, nil
	}
	return GoalProgress{}, fmt.Errorf("goal type %q: %w", goal.Type, core.ErrInvalidGoal)
}

func progressPct(available, target core.Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	pct := float64(available.Cents) / float64(target.Cents) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func remaining(target, available core.Money) core.Money {
	r := target.Cents - available.Cents
	if r < 0 {
		r = 0
	}
	return core.Money{Cents: r}
}

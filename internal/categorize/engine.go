// Package categorize maps raw payee strings to categories using exact payee
// shortcuts and a priority-ordered rule list.
package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

// Engine resolves categories for payee strings. Lookup order:
//
//  1. exact payee match (case-insensitive) with auto-categorize set and a
//     default category, which short-circuits everything else;
//  2. match rules in descending priority, first match wins;
//  3. no match, which is a normal outcome, not an error.
type Engine struct {
	store ledger.Store
	cache *ruleCache
}

func NewEngine(store ledger.Store) *Engine {
	return &Engine{store: store, cache: newRuleCache(store)}
}

// Categorize returns the category for a raw payee name, or nil when nothing
// matches. It never fails on match misses; only storage errors surface.
func (e *Engine) Categorize(ctx context.Context, payeeName string) (*core.Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(payeeName))
	if normalized == "" {
		return nil, nil
	}

	// Exact payee shortcut. Wins over any rule, regardless of priority.
	payee, err := e.store.PayeeByName(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup payee: %w", err)
	}
	if payee != nil && payee.AutoCategorize && payee.DefaultCategoryID != 0 {
		return e.store.GetCategory(ctx, payee.DefaultCategoryID)
	}

	rules, err := e.cache.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	for _, rule := range rules {
		if !matchesRule(normalized, rule) {
			continue
		}
		owner, err := e.store.GetPayee(ctx, rule.PayeeID)
		if err != nil {
			return nil, fmt.Errorf("rule payee: %w", err)
		}
		if owner == nil || owner.DefaultCategoryID == 0 {
			return nil, nil
		}
		return e.store.GetCategory(ctx, owner.DefaultCategoryID)
	}
	return nil, nil
}

// matchesRule tests the normalized payee against one rule. Patterns compare
// lower-cased; a malformed regex is treated as non-matching, never as an
// error.
func matchesRule(payee string, rule core.MatchRule) bool {
	pattern := strings.ToLower(rule.Pattern)
	switch rule.Type {
	case core.MatchContains:
		return strings.Contains(payee, pattern)
	case core.MatchStartsWith:
		return strings.HasPrefix(payee, pattern)
	case core.MatchExact:
		return payee == pattern
	case core.MatchRegex:
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return false
		}
		// Anchored at the start: a match elsewhere in the string does
		// not count.
		loc := re.FindStringIndex(payee)
		return loc != nil && loc[0] == 0
	}
	return false
}

// CreateRule resolves the category by case-insensitive substring search,
// owns the rule through a synthetic payee named after the pattern, and
// invalidates the rule cache. A category that resolves to nothing fails
// with core.ErrNotFound.
func (e *Engine) CreateRule(ctx context.Context, pattern, categoryName string, matchType core.MatchType, priority int) (*core.MatchRule, error) {
	category, err := e.store.FindCategory(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %q: %w", categoryName, core.ErrNotFound)
	}

	payeeName := "Rule: " + pattern
	payee, err := e.store.PayeeByName(ctx, payeeName)
	if err != nil {
		return nil, fmt.Errorf("lookup rule payee: %w", err)
	}
	if payee == nil {
		payee = &core.Payee{
			Name:              payeeName,
			DefaultCategoryID: category.ID,
			AutoCategorize:    true,
		}
		if err := e.store.CreatePayee(ctx, payee); err != nil {
			return nil, fmt.Errorf("create rule payee: %w", err)
		}
	}

	rule := &core.MatchRule{
		PayeeID:  payee.ID,
		Pattern:  pattern,
		Type:     matchType,
		Priority: priority,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	e.cache.Invalidate()

	slog.InfoContext(ctx, "Created categorization rule",
		"pattern", pattern,
		"category", category.Name,
		"match_type", string(matchType),
		"priority", priority)
	return rule, nil
}

// DeleteRule removes a rule and invalidates the cache.
func (e *Engine) DeleteRule(ctx context.Context, id int64) error {
	if err := e.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	e.cache.Invalidate()
	return nil
}

// LearnFromCategorization upserts a payee's default category from an
// observed manual categorization, bootstrapping future exact-match
// shortcuts.
func (e *Engine) LearnFromCategorization(ctx context.Context, payeeName string, categoryID int64) (*core.Payee, error) {
	return LearnPayeeDefault(ctx, e.store, payeeName, categoryID)
}

// LearnPayeeDefault is LearnFromCategorization against an explicit store, so
// callers can run it inside a transaction alongside other writes.
func LearnPayeeDefault(ctx context.Context, store ledger.Store, payeeName string, categoryID int64) (*core.Payee, error) {
	payee, err := store.PayeeByName(ctx, payeeName)
	if err != nil {
		return nil, fmt.Errorf("lookup payee: %w", err)
	}
	if payee != nil {
		if err := store.SetPayeeDefaultCategory(ctx, payee.ID, categoryID); err != nil {
			return nil, fmt.Errorf("update payee: %w", err)
		}
		payee.DefaultCategoryID = categoryID
		return payee, nil
	}
	payee = &core.Payee{
		Name:              payeeName,
		DefaultCategoryID: categoryID,
		AutoCategorize:    true,
	}
	if err := store.CreatePayee(ctx, payee); err != nil {
		return nil, fmt.Errorf("create payee: %w", err)
	}
	return payee, nil
}

// SuggestCategories returns up to limit distinct categories used by payees
// whose names share the input's first five characters. A heuristic aid
// only; names shorter than three characters suggest nothing.
func (e *Engine) SuggestCategories(ctx context.Context, payeeName string, limit int) ([]core.Category, error) {
	if utf8.RuneCountInString(payeeName) < 3 {
		return nil, nil
	}
	// Slice runes, not bytes; a byte cut can split a multi-byte character
	// and produce a prefix that matches nothing.
	prefix := strings.ToLower(payeeName)
	if runes := []rune(prefix); len(runes) > 5 {
		prefix = string(runes[:5])
	}
	payees, err := e.store.SearchPayees(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("search payees: %w", err)
	}

	seen := make(map[int64]bool)
	var categories []core.Category
	for _, p := range payees {
		if p.DefaultCategoryID == 0 || seen[p.DefaultCategoryID] {
			continue
		}
		seen[p.DefaultCategoryID] = true
		cat, err := e.store.GetCategory(ctx, p.DefaultCategoryID)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			categories = append(categories, *cat)
		}
	}
	return categories, nil
}

// RulesLoaded reports whether the rule cache currently holds a list.
// Exposed so cache-invalidation timing is assertable.
func (e *Engine) RulesLoaded() bool { return e.cache.Loaded() }

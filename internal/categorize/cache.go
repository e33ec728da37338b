package categorize

import (
	"context"
	"sync"

	"github.com/dontoisme/zeroed/internal/core"
	"github.com/dontoisme/zeroed/internal/ledger"
)

// ruleCache holds the priority-ordered rule list. The reload point is
// explicit: rules load on first use and every mutation calls Invalidate,
// so the next lookup rereads from the store.
type ruleCache struct {
	mu     sync.Mutex
	store  ledger.RuleStore
	rules  []core.MatchRule
	loaded bool
}

func newRuleCache(store ledger.RuleStore) *ruleCache {
	return &ruleCache{store: store}
}

// Rules returns the cached rule list, loading it when stale. The store
// orders by priority descending with ID ascending ties, so evaluation
// order is a stable total order.
func (c *ruleCache) Rules(ctx context.Context) ([]core.MatchRule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		rules, err := c.store.ListRules(ctx)
		if err != nil {
			return nil, err
		}
		c.rules = rules
		c.loaded = true
	}
	return c.rules, nil
}

// Invalidate drops the cached list. Called by every mutating rule
// operation that goes through the engine.
func (c *ruleCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = nil
	c.loaded = false
}

// Loaded reports whether a rule list is currently cached.
func (c *ruleCache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

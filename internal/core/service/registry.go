package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

// RuleRegistry holds the validation rule battery. Rules register once at
// bootstrap; Rules() returns them sorted by id so the engine's output order
// never depends on registration order.
type RuleRegistry struct {
	mu    sync.RWMutex
	rules map[string]ports.Rule
}

func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{rules: make(map[string]ports.Rule)}
}

func (r *RuleRegistry) Register(rule ports.Rule) error {
	if rule == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil rule")
	}
	id := rule.ID()
	if id == "" {
		return errors.New(errors.CodeInternal, "rule id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("rule '%s' already registered", id))
	}
	r.rules[id] = rule
	return nil
}

func (r *RuleRegistry) Get(id string) (ports.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("rule '%s' not registered", id))
	}
	return rule, nil
}

func (r *RuleRegistry) Rules() []ports.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ports.Rule, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.rules[id])
	}
	return out
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
)

type stubRule struct {
	id string
}

func (r stubRule) ID() string { return r.id }
func (r stubRule) Check(context.Context, ports.RuleInput) []domain.Finding {
	return nil
}

func TestRuleRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		reg := NewRuleRegistry()
		require.NoError(t, reg.Register(stubRule{id: "a"}))

		rule, err := reg.Get("a")
		require.NoError(t, err)
		assert.Equal(t, "a", rule.ID())
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		reg := NewRuleRegistry()
		require.NoError(t, reg.Register(stubRule{id: "a"}))
		assert.Error(t, reg.Register(stubRule{id: "a"}))
	})

	t.Run("nil and empty id rejected", func(t *testing.T) {
		reg := NewRuleRegistry()
		assert.Error(t, reg.Register(nil))
		assert.Error(t, reg.Register(stubRule{}))
	})

	t.Run("unknown id", func(t *testing.T) {
		reg := NewRuleRegistry()
		_, err := reg.Get("missing")
		assert.Error(t, err)
	})

	t.Run("rules sorted by id regardless of registration order", func(t *testing.T) {
		reg := NewRuleRegistry()
		for _, id := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, reg.Register(stubRule{id: id}))
		}

		rules := reg.Rules()
		require.Len(t, rules, 3)
		assert.Equal(t, "alpha", rules[0].ID())
		assert.Equal(t, "mid", rules[1].ID())
		assert.Equal(t, "zeta", rules[2].ID())
	})
}

package ports

import (
	"context"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
)

// RuleInput is everything a validation rule may consult. Client is nil
// unless live cross-checks were requested; rules that need it must degrade
// to a no-op without it.
type RuleInput struct {
	Index  *domain.Index
	Client ResourceClient
	Target string
}

// Rule is one cross-document consistency check. Rules never abort the run;
// everything they detect is returned as findings (maximal-findings policy).
type Rule interface {
	ID() string
	Check(ctx context.Context, in RuleInput) []domain.Finding
}

package ports

import (
	"context"
	"time"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
)

// ResourceClient is the narrow command interface onto the external control
// plane. Every operation is synchronous and idempotent under retry: Apply is
// create-or-update by identity, Delete of an already-absent resource
// succeeds. Implementations map control-plane failures onto the typed error
// codes (not-found, conflict, transient, timeout) so the orchestrator can
// decide between retry and stage failure.
type ResourceClient interface {
	Get(ctx context.Context, ref domain.ResourceRef) (*domain.LiveResource, error)
	List(ctx context.Context, kind domain.ManifestKind, namespace, labelSelector string) ([]domain.LiveResource, error)
	Apply(ctx context.Context, manifest []byte) (*domain.LiveResource, error)
	Delete(ctx context.Context, ref domain.ResourceRef) error
	Restart(ctx context.Context, ref domain.ResourceRef) error
	WaitUntilReady(ctx context.Context, ref domain.ResourceRef, timeout time.Duration) error
}

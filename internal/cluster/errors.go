package cluster

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/sentinelops/manifest-sentry/internal/errors"
)

// classify maps a CLI failure onto the typed error codes the orchestrator
// retries or escalates on. The CLI reports failures as text, so this is
// string matching on stderr, the same way the control plane's own tooling
// distinguishes them.
func classify(operation string, err error, ctx context.Context) *errors.AppError {
	if err == nil {
		return nil
	}

	if ctx.Err() != nil || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeTimeout,
			fmt.Sprintf("%s did not complete in time", operation))
	}

	msg := err.Error()
	var cmdErr *CommandError
	if stderrs.As(err, &cmdErr) && cmdErr.Stderr != "" {
		msg = cmdErr.Stderr
	}

	switch {
	case containsAny(msg, "NotFound", "not found", "no objects passed"):
		return errors.Wrap(err, errors.CodeResourceNotFound,
			fmt.Sprintf("%s: resource not found", operation))
	case containsAny(msg, "Conflict", "the object has been modified", "field is immutable"):
		return errors.Wrap(err, errors.CodeResourceConflict,
			fmt.Sprintf("%s: conflicting concurrent change", operation))
	case containsAny(msg, "timed out waiting", "deadline exceeded"):
		return errors.Wrap(err, errors.CodeTimeout,
			fmt.Sprintf("%s timed out", operation))
	case containsAny(msg,
		"connection refused", "Unable to connect", "no such host",
		"i/o timeout", "TLS handshake", "EOF", "temporarily unavailable"):
		return errors.Wrap(err, errors.CodeTransientClient,
			fmt.Sprintf("%s: control plane unreachable", operation))
	}

	return errors.Wrap(err, errors.CodeTransientClient,
		fmt.Sprintf("%s failed", operation))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isRetryable(err error) bool {
	return errors.Is(err, errors.CodeTransientClient) || errors.Is(err, errors.CodeResourceConflict)
}

package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is the ResourceClient implementation over the platform CLI. Every
// operation is idempotent under retry; transient and conflict failures are
// retried with exponential backoff up to the configured bound before they
// escalate to the caller.
type Client struct {
	runner       Runner
	limiter      *rate.Limiter
	logger       ports.Logger
	attempts     int
	baseWait     time.Duration
	readyTimeout time.Duration
}

func NewClient(cfg Config, runner Runner, logger ports.Logger) *Client {
	def := DefaultConfig()
	if cfg.APIRateRPS <= 0 {
		cfg.APIRateRPS = def.APIRateRPS
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	return &Client{
		runner:       runner,
		limiter:      rate.NewLimiter(rate.Limit(cfg.APIRateRPS), cfg.APIRateRPS),
		logger:       logger.WithFields(map[string]any{"component": "resource_client"}),
		attempts:     cfg.RetryAttempts,
		baseWait:     cfg.RetryBaseDelay,
		readyTimeout: cfg.ReadyTimeout,
	}
}

// Ping checks control-plane reachability before any destructive action.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.run(ctx, nil, "version", "--output=json")
	if err != nil {
		return errors.WrapUserFacing(err, errors.CodeClusterUnreachable,
			"control plane is unreachable",
			"Check cluster connectivity and kubeconfig before retrying.")
	}
	return nil
}

func (c *Client) Get(ctx context.Context, ref domain.ResourceRef) (*domain.LiveResource, error) {
	args := []string{"get", kindArg(ref.Kind), ref.Name, "-o", "json"}
	args = appendNamespace(args, ref.Namespace)

	out, err := c.run(ctx, nil, args...)
	if err != nil {
		return nil, classify(fmt.Sprintf("get %s", ref), err, ctx)
	}
	return parseLiveResource(ref.Kind, out)
}

func (c *Client) List(ctx context.Context, kind domain.ManifestKind, namespace, labelSelector string) ([]domain.LiveResource, error) {
	args := []string{"get", kindArg(kind), "-o", "json"}
	args = appendNamespace(args, namespace)
	if labelSelector != "" {
		args = append(args, "-l", labelSelector)
	}

	out, err := c.run(ctx, nil, args...)
	if err != nil {
		return nil, classify(fmt.Sprintf("list %s", kind), err, ctx)
	}

	var list struct {
		Items []jsoniter.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(out, &list); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to decode list output")
	}

	resources := make([]domain.LiveResource, 0, len(list.Items))
	for _, item := range list.Items {
		res, err := parseLiveResource(kind, item)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *res)
	}
	return resources, nil
}

// Apply is create-or-update by identity: the control plane reconciles the
// document against whatever exists under the same name.
func (c *Client) Apply(ctx context.Context, manifest []byte) (*domain.LiveResource, error) {
	out, err := c.run(ctx, manifest, "apply", "-f", "-", "-o", "json")
	if err != nil {
		return nil, classify("apply", err, ctx)
	}
	return parseLiveResource(domain.KindOther, out)
}

// Delete succeeds when the resource is already absent; the desired state
// "gone" is reached either way.
func (c *Client) Delete(ctx context.Context, ref domain.ResourceRef) error {
	args := []string{"delete", kindArg(ref.Kind), ref.Name, "--ignore-not-found"}
	args = appendNamespace(args, ref.Namespace)

	if _, err := c.run(ctx, nil, args...); err != nil {
		appErr := classify(fmt.Sprintf("delete %s", ref), err, ctx)
		if appErr.Code == errors.CodeResourceNotFound {
			return nil
		}
		return appErr
	}
	return nil
}

func (c *Client) Restart(ctx context.Context, ref domain.ResourceRef) error {
	args := []string{"rollout", "restart", fmt.Sprintf("%s/%s", kindArg(ref.Kind), ref.Name)}
	args = appendNamespace(args, ref.Namespace)

	if _, err := c.run(ctx, nil, args...); err != nil {
		return classify(fmt.Sprintf("restart %s", ref), err, ctx)
	}
	return nil
}

func (c *Client) WaitUntilReady(ctx context.Context, ref domain.ResourceRef, timeout time.Duration) error {
	if !isWorkloadKind(ref.Kind) {
		return nil
	}
	if timeout <= 0 {
		timeout = c.readyTimeout
	}

	args := []string{
		"rollout", "status", fmt.Sprintf("%s/%s", kindArg(ref.Kind), ref.Name),
		fmt.Sprintf("--timeout=%s", timeout),
	}
	args = appendNamespace(args, ref.Namespace)

	waitCtx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	// No retry here: the CLI already polls internally for the full bound,
	// and a second pass would double the wait on a dead rollout.
	if err := c.limiter.Wait(waitCtx); err != nil {
		return classify(fmt.Sprintf("wait for %s", ref), err, waitCtx)
	}
	if _, err := c.runner.Run(waitCtx, nil, args...); err != nil {
		appErr := classify(fmt.Sprintf("wait for %s", ref), err, waitCtx)
		if appErr.Code == errors.CodeTransientClient {
			// Readiness not reached within the bound is a timeout, not a
			// retryable transient.
			return &errors.AppError{
				Code:         errors.CodeTimeout,
				Message:      fmt.Sprintf("%s did not become ready within %s", ref, timeout),
				WrappedError: err,
			}
		}
		return appErr
	}
	return nil
}

// run executes one CLI call through the rate limiter with bounded retry on
// transient and conflict failures.
func (c *Client) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.baseWait << (attempt - 1)
			c.logger.Debugf(ctx, "Retrying %v in %s (attempt %d/%d)", args, wait, attempt+1, c.attempts)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		out, err := c.runner.Run(ctx, stdin, args...)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(classify(strings.Join(args, " "), err, ctx)) {
			return nil, err
		}
	}
	return nil, lastErr
}

func parseLiveResource(kind domain.ManifestKind, raw []byte) (*domain.LiveResource, error) {
	var obj struct {
		Kind     string `json:"kind"`
		Metadata struct {
			Name      string            `json:"name"`
			Namespace string            `json:"namespace"`
			Labels    map[string]string `json:"labels"`
		} `json:"metadata"`
		Status struct {
			ReadyReplicas int `json:"readyReplicas"`
			Replicas      int `json:"replicas"`
		} `json:"status"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to decode resource output")
	}

	if kind == domain.KindOther && obj.Kind != "" {
		kind = domain.KindFromAPIValue(obj.Kind)
	}

	state := make([]byte, len(raw))
	copy(state, raw)
	return &domain.LiveResource{
		Ref:    domain.ResourceRef{Kind: kind, Namespace: obj.Metadata.Namespace, Name: obj.Metadata.Name},
		Labels: obj.Metadata.Labels,
		Ready:  obj.Status.Replicas > 0 && obj.Status.ReadyReplicas >= obj.Status.Replicas,
		State:  state,
	}, nil
}

func kindArg(kind domain.ManifestKind) string {
	switch kind {
	case domain.KindDeployment:
		return "deployment"
	case domain.KindConfigMap:
		return "configmap"
	case domain.KindSecret:
		return "secret"
	case domain.KindService:
		return "service"
	case domain.KindJob:
		return "job"
	default:
		return strings.ToLower(string(kind))
	}
}

func isWorkloadKind(kind domain.ManifestKind) bool {
	return kind == domain.KindDeployment
}

func appendNamespace(args []string, namespace string) []string {
	if namespace != "" {
		return append(args, "-n", namespace)
	}
	return args
}

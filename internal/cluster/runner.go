// Package cluster implements the resource client as a thin layer over the
// platform CLI, the narrow command interface this tool is allowed to reach
// the control plane through.
package cluster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

type Config struct {
	// Binary is the control-plane CLI to invoke.
	Binary     string `yaml:"binary" mapstructure:"binary"`
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
	Namespace  string `yaml:"namespace" mapstructure:"namespace"`

	APIRateRPS     int           `yaml:"api_rate_rps" mapstructure:"api_rate_rps"`
	RetryAttempts  int           `yaml:"retry_attempts" mapstructure:"retry_attempts" validate:"omitempty,min=1,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout" mapstructure:"ready_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Binary:         "kubectl",
		APIRateRPS:     20,
		RetryAttempts:  3,
		RetryBaseDelay: time.Second,
		ReadyTimeout:   2 * time.Minute,
	}
}

// Runner executes one control-plane CLI invocation. Injectable so tests can
// script and record every call without a live cluster.
type Runner interface {
	Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error)
}

// CommandError carries the CLI's stderr so failures can be classified.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %v failed: %v: %s", e.Args, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command %v failed: %v", e.Args, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct {
	binary     string
	globalArgs []string
}

// NewExecRunner builds a Runner invoking cfg.Binary. Kubeconfig and context
// are passed as flags on every call rather than mutating process env, so
// nothing about the run leaks into global state.
func NewExecRunner(cfg Config) Runner {
	binary := cfg.Binary
	if binary == "" {
		binary = DefaultConfig().Binary
	}
	var global []string
	if cfg.Kubeconfig != "" {
		global = append(global, "--kubeconfig", cfg.Kubeconfig)
	}
	if cfg.Context != "" {
		global = append(global, "--context", cfg.Context)
	}
	return &execRunner{binary: binary, globalArgs: global}
}

func (r *execRunner) Run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	full := append(append([]string{}, r.globalArgs...), args...)
	cmd := exec.CommandContext(ctx, r.binary, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &CommandError{Args: full, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

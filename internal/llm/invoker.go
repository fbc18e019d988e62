package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/common/metrics"
)

var ErrInvocationFailed = errors.New("LLM_INVOCATION_FAILED")

// InvocationError is returned once every attempt has failed.
type InvocationError struct {
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("llm invocation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocationFailed }

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig is three attempts with 2s then 4s between them.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// Invoker calls a Client with bounded exponential backoff. Every error is
// treated as transient; there is no jitter.
type Invoker struct {
	client Client
	config Config
	logger logger.Logger
	timer  backoff.Timer
}

type Option func(*Invoker)

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(i *Invoker) { i.timer = t }
}

func NewInvoker(client Client, config Config, log logger.Logger, opts ...Option) *Invoker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultConfig().BaseDelay
	}
	inv := &Invoker{
		client: client,
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "llm-invoker"}),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

func (i *Invoker) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.config.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = i.config.BaseDelay << uint(i.config.MaxAttempts)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(i.config.MaxAttempts-1)), ctx)
}

// Invoke sends the payload, retrying until it succeeds, attempts run out or
// ctx is done. Failures are returned as *InvocationError.
func (i *Invoker) Invoke(ctx context.Context, payload *Payload) (*Response, error) {
	attempts := 0
	var resp *Response

	operation := func() error {
		attempts++
		r, err := i.client.Converse(ctx, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		metrics.LLMInvocationAttempts.WithLabelValues("retry").Inc()
		i.logger.Warn("llm invocation failed, retrying", map[string]interface{}{
			"attempt":     attempts,
			"maxAttempts": i.config.MaxAttempts,
			"wait":        wait.String(),
			"error":       err.Error(),
		})
	}

	err := backoff.RetryNotifyWithTimer(operation, i.newBackOff(ctx), notify, i.timer)
	if err != nil {
		metrics.LLMInvocationAttempts.WithLabelValues("exhausted").Inc()
		i.logger.Error("llm invocation exhausted", map[string]interface{}{
			"attempts": attempts,
			"error":    err.Error(),
		})
		return nil, &InvocationError{Attempts: attempts, Err: err}
	}

	metrics.LLMInvocationAttempts.WithLabelValues("success").Inc()
	i.logger.Debug("llm invocation succeeded", map[string]interface{}{
		"attempts":     attempts,
		"stopReason":   resp.StopReason,
		"outputTokens": resp.Usage.OutputTokens,
	})
	return resp, nil
}

package resilience

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yjkwon-dev/policy-pilot/internal/core/domain"
)

func testExecutor(cfg Config) *Executor {
	return NewExecutor(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTemporaryErrors(t *testing.T) {
	exec := testExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "feed_fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.WrapError(domain.ErrTemporary, "fetch", fmt.Errorf("upstream 503"))
		}
		return nil
	}, TemporaryClassifier)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteDoesNotRetryHardErrors(t *testing.T) {
	exec := testExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "feed_fetch", func(context.Context) error {
		calls++
		return domain.WrapError(domain.ErrProvider, "fetch", fmt.Errorf("bad api key"))
	}, TemporaryClassifier)
	if !domain.IsKind(err, domain.ErrProvider) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("hard errors must not retry, got %d attempts", calls)
	}
}

func TestExecuteReturnsLastErrorAfterExhaustion(t *testing.T) {
	exec := testExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "feed_fetch", func(context.Context) error {
		calls++
		return domain.WrapError(domain.ErrTemporary, "fetch", fmt.Errorf("attempt %d", calls))
	}, TemporaryClassifier)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRatio = 0.5
	exec := testExecutor(cfg)

	fail := func(context.Context) error {
		return domain.WrapError(domain.ErrTemporary, "fetch", fmt.Errorf("down"))
	}
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "feed_fetch", fail, TemporaryClassifier)
	}

	err := exec.Execute(context.Background(), "feed_fetch", fail, TemporaryClassifier)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	exec := testExecutor(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Execute(ctx, "feed_fetch", func(context.Context) error {
		t.Fatalf("cancelled context must not invoke the operation")
		return nil
	}, TemporaryClassifier)
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestInvalidInputDoesNotRecordFailure(t *testing.T) {
	class := TemporaryClassifier(domain.WrapError(domain.ErrInvalidInput, "fetch", fmt.Errorf("bad page")))
	if class.Retryable || class.RecordFailure {
		t.Fatalf("invalid input must neither retry nor trip the breaker, got %+v", class)
	}
}

package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// guard bounds every call to one capability with a timeout and a circuit breaker.
type guard struct {
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	rec     Recorder
}

func newGuard(name string, timeout time.Duration, logger *zap.Logger, rec Recorder) *guard {
	if rec == nil {
		rec = nopRecorder{}
	}
	logger = logger.With(zap.String("component", "capability"), zap.String("capability", name))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A caller hanging up says nothing about the upstream's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &guard{name: name, timeout: timeout, cb: cb, logger: logger, rec: rec}
}

func (g *guard) state() string {
	return g.cb.State().String()
}

// run executes fn under the guard. Any error, timeout, open breaker or panic
// becomes a failed Result carrying failMsg; the upstream detail is only logged.
func run[T any](ctx context.Context, g *guard, failMsg string, fn func(ctx context.Context) (T, error)) (res Result[T]) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			g.logger.Error("capability call panicked", zap.Any("panic", p))
			g.rec.RecordCapabilityCall(g.name, "failure", time.Since(start))
			res = fail[T](failMsg)
		}
	}()

	v, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("capability call rejected by circuit breaker", zap.Error(err))
		g.rec.RecordCapabilityCall(g.name, "open", elapsed)
		return fail[T](failMsg)
	case err != nil:
		g.logger.Warn("capability call failed", zap.Error(err), zap.Duration("duration", elapsed))
		g.rec.RecordCapabilityCall(g.name, "failure", elapsed)
		return fail[T](failMsg)
	}
	out, ok := v.(T)
	if !ok {
		g.logger.Error("capability call returned unexpected type", zap.String("type", fmt.Sprintf("%T", v)))
		g.rec.RecordCapabilityCall(g.name, "failure", elapsed)
		return fail[T](failMsg)
	}
	g.rec.RecordCapabilityCall(g.name, "success", elapsed)
	return succeed(out)
}

// skip records a call that was never attempted because the capability is unconfigured.
func skip[T any](g *guard) Result[T] {
	g.logger.Debug("capability skipped", zap.Error(ErrNotConfigured))
	g.rec.RecordCapabilityCall(g.name, "disabled", 0)
	return disabled[T](g.name)
}

package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"phone8/internal/models"
)

// DefaultRetryDelay is the wait before the single retry after a transient
// failure. It gives a cold-starting backend time to come up.
const DefaultRetryDelay = 5 * time.Second

// Phase is a step of the load lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseRetrying
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseRetrying:
		return "retrying"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether p is terminal.
func (p Phase) Settled() bool {
	return p == PhaseLoaded || p == PhaseFailed
}

// Status is the tri-state view of the catalog: loading, failed or loaded.
// Products is only meaningful once the phase is settled.
type Status struct {
	Phase    Phase
	Loading  bool
	Products []models.Product
	Err      *LoadError
	Attempts int
}

// Fetcher fetches the product list once.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Product, error)
	Endpoint() string
}

// Loader runs the fetch lifecycle: one attempt, and on a transient failure
// exactly one more attempt after the retry delay.
type Loader struct {
	fetcher    Fetcher
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewLoader creates a Loader. A negative retry delay is treated as zero.
func NewLoader(fetcher Fetcher, retryDelay time.Duration, logger *zap.Logger) *Loader {
	if retryDelay < 0 {
		retryDelay = 0
	}
	return &Loader{
		fetcher:    fetcher,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Run fetches the catalog and reports every state change to publish. It
// returns once the catalog is settled or ctx is cancelled; after
// cancellation publish is not called again.
func (l *Loader) Run(ctx context.Context, publish func(Status)) {
	retry := true
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		publish(Status{Phase: PhaseLoading, Loading: true, Attempts: attempt})

		products, err := l.fetcher.Fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			l.logger.Info("catalog loaded",
				zap.Int("products", len(products)), zap.Int("attempts", attempt))
			publish(Status{Phase: PhaseLoaded, Products: products, Attempts: attempt})
			return
		}

		if retry && IsTransient(err) {
			retry = false
			l.logger.Info("retrying after cold start",
				zap.String("endpoint", l.fetcher.Endpoint()),
				zap.Duration("delay", l.retryDelay),
				zap.Bool("timeout", IsTimeout(err)),
				zap.Error(err))
			publish(Status{Phase: PhaseRetrying, Loading: true, Attempts: attempt})
			if !sleep(ctx, l.retryDelay) {
				return
			}
			continue
		}

		loadErr := newLoadError(err, l.fetcher.Endpoint())
		l.logger.Warn("catalog load failed",
			zap.String("endpoint", loadErr.Endpoint),
			zap.Int("status", loadErr.StatusCode),
			zap.Int("attempts", attempt),
			zap.Error(err))
		publish(Status{Phase: PhaseFailed, Products: []models.Product{}, Err: loadErr, Attempts: attempt})
		return
	}
}

// Start runs the loader in its own goroutine. The returned stop function
// cancels it and waits for the goroutine to exit; it is safe to call more
// than once.
func (l *Loader) Start(ctx context.Context, publish func(Status)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx, publish)
	}()
	return func() {
		cancel()
		<-done
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

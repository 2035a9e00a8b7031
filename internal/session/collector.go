package session

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

// Sweeper removes records older than maxLife. *crypt.Provider satisfies it.
type Sweeper interface {
	GC(ctx context.Context, maxLife time.Duration) (int, error)
}

// Collector sweeps expired sessions on a fixed interval.
type Collector struct {
	sweeper  Sweeper
	interval time.Duration
	maxLife  time.Duration
	log      logger.Logger
}

// NewCollector creates a Collector. interval and maxLife must be positive.
func NewCollector(sweeper Sweeper, interval, maxLife time.Duration, log logger.Logger) (*Collector, error) {
	if sweeper == nil {
		return nil, errors.New("session: sweeper is required")
	}
	if interval <= 0 || maxLife <= 0 {
		return nil, errors.New("session: collector interval and max lifetime must be positive")
	}
	if log == nil {
		log = logger.Default()
	}
	return &Collector{
		sweeper:  sweeper,
		interval: interval,
		maxLife:  maxLife,
		log:      log.With("component", "session-gc"),
	}, nil
}

// RunOnce performs a single sweep.
func (c *Collector) RunOnce(ctx context.Context) (int, error) {
	n, err := c.sweeper.GC(ctx, c.maxLife)
	if err != nil {
		c.log.Error("session sweep incomplete", "removed", n, "error", err)
		return n, err
	}
	if n > 0 {
		c.log.Info("expired sessions removed", "removed", n)
	}
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info("session collector started", "interval", c.interval, "max_lifetime", c.maxLife)

	for {
		select {
		case <-ticker.C:
			c.RunOnce(ctx)
		case <-ctx.Done():
			c.log.Info("session collector stopped")
			return
		}
	}
}

// Start runs the collector in the background. The returned stop function
// cancels it and blocks until any in-flight sweep has returned, or until
// the stop context is done.
func (c *Collector) Start(ctx context.Context) (stop func(context.Context) error) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(runCtx)
	}()

	return func(stopCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}

// Package sweep runs periodic cleanup jobs (expired blacklist rows, stale resets).
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cagatayturkan/blog-api/internal/metrics"
)

// Job is one periodic cleanup. Run returns the number of rows it removed.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int64, error)
}

// Start launches one ticker goroutine per job. Jobs first fire after one
// interval, not at startup. The returned func blocks until every goroutine
// has exited after ctx is cancelled.
func Start(ctx context.Context, jobs ...Job) (wait func()) {
	var wg sync.WaitGroup
	for _, j := range jobs {
		if j.Interval <= 0 || j.Run == nil {
			slog.Warn("sweep: job skipped", "job", j.Name, "interval", j.Interval)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx, j)
		}()
	}
	return wg.Wait
}

func loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			RunOnce(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes j a single time, logging and counting the result.
func RunOnce(ctx context.Context, j Job) {
	n, err := j.Run(ctx)
	if err != nil {
		slog.Warn("sweep: job failed", "job", j.Name, "error", err)
		return
	}
	metrics.SweepDeleted.WithLabelValues(j.Name).Add(float64(n))
	slog.Info("sweep: job complete", "job", j.Name, "deleted", n)
}

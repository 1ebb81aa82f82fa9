package sweeper

import (
	"context"
	"time"

	"flowhost/internal/domain/subscriptions"

	"github.com/rs/zerolog"
)

// Runner periodically drives the trial lifecycle sweep. One run per
// interval plus one at startup, so a restarted service catches up on
// overdue trials immediately.
type Runner struct {
	lifecycle *subscriptions.Lifecycle
	interval  time.Duration
	log       zerolog.Logger
}

func New(lifecycle *subscriptions.Lifecycle, interval time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Runner{lifecycle: lifecycle, interval: interval, log: log}
}

// Start runs the sweep loop until ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.runOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runOnce()
			}
		}
	}()
}

func (r *Runner) runOnce() {
	res, err := r.lifecycle.Sweep(time.Now())
	if err != nil {
		r.log.Error().Err(err).Msg("trial sweep failed")
		return
	}
	r.log.Info().
		Int("checked", res.Checked).
		Int("advanced", res.Advanced).
		Int("failed", res.Failed).
		Msg("trial sweep complete")
}

// Package poll waits for asynchronous resources to reach a desired state.
//
// Cloud operations and instances report progress through status strings. A
// caller describes which statuses mean success, which mean keep waiting, and
// which mean failure, and WaitForState polls at a fixed interval until one
// of those outcomes or a deadline is reached.
package poll

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/omozharovskyi/llmvm/pkg/clock"
)

const (
	// DefaultTimeout bounds a wait when Config.Timeout is zero.
	DefaultTimeout = 5 * time.Minute

	// DefaultInterval is the pause between fetches when Config.Interval is zero.
	DefaultInterval = 10 * time.Second
)

// Observation is a single status fetch result. Err carries an error reported
// by the resource itself, such as an operation that completed with an error
// payload, as opposed to a failure of the fetch.
type Observation struct {
	Status string
	Err    error
}

// FetchFunc reads the current status of the resource being watched. An error
// return means the read itself failed; the poller logs it and keeps waiting.
type FetchFunc func(ctx context.Context) (Observation, error)

// Config describes the terminal and transitional statuses for a wait.
type Config struct {
	// Name identifies what is being waited on, for logging.
	Name string

	// Accept are statuses that complete the wait successfully.
	Accept []string

	// Transitional are statuses expected on the way to acceptance. A status
	// in none of the three sets is logged at warning level and treated the
	// same way: the wait continues.
	Transitional []string

	// Failed are statuses that end the wait immediately without success.
	Failed []string

	// Timeout bounds the whole wait. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Interval is the fixed pause between fetches. Defaults to DefaultInterval.
	Interval time.Duration

	// Clock is the clock used for pacing and the deadline. If nil, uses real time.
	Clock clock.Clock

	// Logger receives progress records. If nil, uses slog.Default().
	Logger *slog.Logger
}

// WaitForState polls fetch until an accepted or failed status is observed or
// the timeout elapses. It reports whether the resource reached an accepted
// status with no error attached.
//
// An accepted status whose observation carries an error counts as failure:
// the resource finished, but finished badly. Cancelling the context ends the
// wait with false.
func WaitForState(ctx context.Context, cfg Config, fetch FetchFunc) bool {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := clk.Now()

	for {
		obs, err := fetch(ctx)
		if err != nil {
			logger.Warn("status fetch failed",
				slog.String("name", cfg.Name),
				slog.String("error", err.Error()),
			)
		} else {
			switch {
			case slices.Contains(cfg.Accept, obs.Status):
				if obs.Err != nil {
					logger.Error("reached state with error",
						slog.String("name", cfg.Name),
						slog.String("status", obs.Status),
						slog.String("error", obs.Err.Error()),
					)
					return false
				}
				logger.Info("reached state",
					slog.String("name", cfg.Name),
					slog.String("status", obs.Status),
					slog.Duration("elapsed", clk.Since(start)),
				)
				return true

			case slices.Contains(cfg.Failed, obs.Status):
				logger.Error("reached failure state",
					slog.String("name", cfg.Name),
					slog.String("status", obs.Status),
				)
				return false

			case slices.Contains(cfg.Transitional, obs.Status):
				logger.Debug("still waiting",
					slog.String("name", cfg.Name),
					slog.String("status", obs.Status),
				)

			default:
				logger.Warn("unexpected status, still waiting",
					slog.String("name", cfg.Name),
					slog.String("status", obs.Status),
				)
			}
		}

		if clk.Since(start) >= cfg.Timeout {
			logger.Error("timed out waiting for state",
				slog.String("name", cfg.Name),
				slog.Duration("timeout", cfg.Timeout),
			)
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-clk.After(cfg.Interval):
		}
	}
}

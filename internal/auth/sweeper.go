// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// DefaultSweepInterval is how often expired records are removed.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically deletes expired sessions and reset tokens. Expiry is
// still enforced on every lookup; sweeping only reclaims storage.
type Sweeper struct {
	sessions SessionRepository
	resets   ResetTokenRepository
	interval time.Duration
	options
}

// NewSweeper creates a Sweeper. An interval <= 0 selects DefaultSweepInterval.
func NewSweeper(sessions SessionRepository, resets ResetTokenRepository, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if sessions == nil || resets == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("session and reset repositories are required")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		sessions: sessions,
		resets:   resets,
		interval: interval,
		options:  newOptions(opts),
	}, nil
}

// Sweep runs a single pass and returns the number of deleted records.
func (s *Sweeper) Sweep(ctx context.Context) (sessions, resets int64, err error) {
	now := s.now()
	sessions, err = s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, oops.Code("SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}
	resets, err = s.resets.DeleteExpired(ctx, now)
	if err != nil {
		return sessions, 0, oops.Code("SWEEP_FAILED").With("operation", "delete expired reset tokens").Wrap(err)
	}
	return sessions, resets, nil
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, resets, err := s.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
				continue
			}
			if sessions > 0 || resets > 0 {
				s.logger.InfoContext(ctx, "swept expired records",
					"sessions", sessions,
					"reset_tokens", resets)
			}
		}
	}
}

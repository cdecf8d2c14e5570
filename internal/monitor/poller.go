// Package monitor keeps an admin's live view fresh by polling the server.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the reference poll period.
const DefaultInterval = 3 * time.Second

// LiveSource fetches the current live view.
type LiveSource interface {
	LiveView(ctx context.Context) (*model.LiveView, error)
}

// Snapshot is what the monitor shows: the last good view plus the most
// recent failure, if the latest poll failed.
type Snapshot struct {
	View      *model.LiveView
	FetchedAt time.Time
	Err       error
	ErrAt     time.Time
	Polls     int
	Failures  int
}

// Stale reports whether the latest poll failed and View is older data.
func (s Snapshot) Stale() bool {
	return s.Err != nil
}

// Option customises a Poller.
type Option func(*Poller)

// WithOnUpdate is called after every poll, successful or not.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithPollTimeout bounds a single fetch (default: the interval).
func WithPollTimeout(d time.Duration) Option {
	return func(p *Poller) { p.timeout = d }
}

// Poller replaces its view wholesale on each successful poll and keeps the
// previous one when a poll fails.
type Poller struct {
	src      LiveSource
	interval time.Duration
	timeout  time.Duration
	onUpdate func(Snapshot)
	now      func() time.Time
	log      zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewPoller creates a Poller. A non-positive interval means DefaultInterval.
func NewPoller(src LiveSource, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		src:      src,
		interval: interval,
		timeout:  interval,
		now:      time.Now,
		log:      log.With().Str("component", "live_monitor").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce performs a single fetch and updates the snapshot.
func (p *Poller) PollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	view, err := p.src.LiveView(ctx)
	now := p.now()

	p.mu.Lock()
	p.snap.Polls++
	if err != nil {
		p.snap.Err = err
		p.snap.ErrAt = now
		p.snap.Failures++
	} else {
		p.snap.View = view
		p.snap.FetchedAt = now
		p.snap.Err = nil
	}
	snap := p.snap
	p.mu.Unlock()

	if err != nil {
		p.log.Warn().Err(err).Msg("live view poll failed, keeping last view")
	}
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

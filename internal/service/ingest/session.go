package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bustrack/internal/config"
	"bustrack/internal/model"
)

var (
	ErrSessionStopped  = errors.New("tracking session stopped")
	ErrVehicleRequired = errors.New("vehicle id is required")
	ErrNoActiveSession = errors.New("no active tracking session for device")
)

// Sink receives admitted fixes
type Sink interface {
	ApplyFix(ctx context.Context, vehicleID, driverID string, fix model.Fix) error
}

// SessionConfig configures one tracking session
type SessionConfig struct {
	VehicleID string
	DriverID  string

	// Interval is the minimum spacing between forwarded fixes. Values
	// below the floor are clamped, protecting the store from runaway
	// write rates.
	Interval time.Duration

	// FixTimeout and MaxFixAge bound the device's position acquisition:
	// how long to wait for a fix and how stale a cached fix may be.
	FixTimeout time.Duration
	MaxFixAge  time.Duration
}

func (c *SessionConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = config.DefaultForwardInterval
	}
	if c.Interval < config.MinForwardInterval {
		c.Interval = config.MinForwardInterval
	}
	if c.FixTimeout <= 0 {
		c.FixTimeout = config.FixTimeout
	}
	if c.MaxFixAge <= 0 {
		c.MaxFixAge = config.MaxFixAge
	}
}

// Session throttles one device's raw fix stream down to at most one
// forward per interval. Bursts lose everything but the first admitted
// sample in each window: dropped fixes are never queued or batched.
//
// The throttle state advances on attempted forwarding, not confirmed
// success. A failed write is not retried; the next admitted fix, up to
// an interval later, is the next recovery opportunity.
type Session struct {
	cfg  SessionConfig
	sink Sink

	mu          sync.Mutex
	lastForward time.Time // zero value guarantees the first fix is admitted
	stopped     bool
	done        chan struct{}

	now func() time.Time
}

// NewSession creates a session owned by the caller. There is no
// process-wide throttle state; concurrent sessions are independent.
func NewSession(cfg SessionConfig, sink Sink) (*Session, error) {
	if cfg.VehicleID == "" {
		return nil, ErrVehicleRequired
	}
	cfg.applyDefaults()

	return &Session{
		cfg:  cfg,
		sink: sink,
		done: make(chan struct{}),
		now:  time.Now,
	}, nil
}

// Config returns the session's effective configuration after clamping
func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Offer presents one raw fix to the throttle. It returns whether the fix
// was admitted and forwarded; non-admitted fixes are dropped silently by
// design, not an error. The forward happens under the session lock so a
// Stop that wins the race prevents any further forward attempt.
func (s *Session) Offer(ctx context.Context, fix model.Fix) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, ErrSessionStopped
	}

	now := s.now()
	if !s.lastForward.IsZero() && now.Sub(s.lastForward) < s.cfg.Interval {
		return false, nil
	}

	// Advance before the write: throttle state moves on attempt, not on
	// success, so a failing store cannot cause a tight retry storm
	s.lastForward = now

	if err := s.sink.ApplyFix(ctx, s.cfg.VehicleID, s.cfg.DriverID, fix); err != nil {
		return true, err
	}
	return true, nil
}

// Run pumps a fix stream through the throttle until the stream closes,
// the context is cancelled, or the session is stopped. Forward errors
// are logged and not retried.
func (s *Session) Run(ctx context.Context, fixes <-chan model.Fix) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case fix, ok := <-fixes:
			if !ok {
				return nil
			}
			admitted, err := s.Offer(ctx, fix)
			if errors.Is(err, ErrSessionStopped) {
				return nil
			}
			if admitted && err != nil {
				log.Printf("Failed to forward fix for vehicle %s: %v", s.cfg.VehicleID, err)
			}
		}
	}
}

// Stop ends the session. Idempotent; after Stop returns no further
// forward attempts are made, including ones already racing Offer.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
}

// Stopped reports whether Stop has been called
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

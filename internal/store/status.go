package store

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/i474232898/sensor-uplink/internal/uplink"
)

// StatusSnapshot is a point-in-time view of the uploader's counters.
type StatusSnapshot struct {
	StartedAt     time.Time `json:"startedAt"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	Readings      int64     `json:"readings"`
	Succeeded     int64     `json:"succeeded"`
	ServerErrors  int64     `json:"serverErrors"`
	Other         int64     `json:"other"`

	LastClass    uplink.Class `json:"lastClass,omitempty"`
	LastStatus   string       `json:"lastStatus,omitempty"`
	LastUploadAt *time.Time   `json:"lastUploadAt,omitempty"`
}

// StatusTracker is a concurrency-safe tally of loop activity. It holds no
// reading values.
type StatusTracker struct {
	startedAt time.Time
	now       func() time.Time

	readings     *atomic.Int64
	succeeded    *atomic.Int64
	serverErrors *atomic.Int64
	other        *atomic.Int64

	mu           sync.RWMutex
	lastClass    uplink.Class
	lastStatus   string
	lastUploadAt time.Time
}

// NewStatusTracker starts a tracker at now(). A nil now uses time.Now.
func NewStatusTracker(now func() time.Time) *StatusTracker {
	if now == nil {
		now = time.Now
	}
	return &StatusTracker{
		startedAt:    now().UTC(),
		now:          now,
		readings:     atomic.NewInt64(0),
		succeeded:    atomic.NewInt64(0),
		serverErrors: atomic.NewInt64(0),
		other:        atomic.NewInt64(0),
	}
}

// RecordReading counts one successful sensor read.
func (s *StatusTracker) RecordReading() {
	s.readings.Inc()
}

// RecordOutcome counts one collector response received at at.
func (s *StatusTracker) RecordOutcome(o uplink.Outcome, at time.Time) {
	switch o.Class {
	case uplink.ClassSuccess:
		s.succeeded.Inc()
	case uplink.ClassServerError:
		s.serverErrors.Inc()
	default:
		s.other.Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastClass = o.Class
	s.lastStatus = o.Status
	s.lastUploadAt = at.UTC()
}

// Snapshot returns the current counters and the last upload outcome.
func (s *StatusTracker) Snapshot() StatusSnapshot {
	snap := StatusSnapshot{
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(s.now().Sub(s.startedAt).Seconds()),
		Readings:      s.readings.Load(),
		Succeeded:     s.succeeded.Load(),
		ServerErrors:  s.serverErrors.Load(),
		Other:         s.other.Load(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.lastUploadAt.IsZero() {
		at := s.lastUploadAt
		snap.LastUploadAt = &at
		snap.LastClass = s.lastClass
		snap.LastStatus = s.lastStatus
	}
	return snap
}

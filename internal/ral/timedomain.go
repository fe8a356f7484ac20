// Package ral is the radio abstraction layer: channel allocation onto
// concentrator IF chains, and the time domain that extends the
// concentrator's 32-bit free-running tick counter into a 64-bit
// monotone xtime tagged with a session id, so xtime values from before
// a RAL restart can never be mistaken for current ones.
package ral

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sessionBits is how many of xtime's 64 bits are given to the session
// tag; the remaining low bits carry the extended tick counter.
const sessionBits = 16

// TimeDomain tracks the mapping between the concentrator's raw 32-bit
// tick counter, PPS-derived UTC, and GPS time, producing 64-bit xtime
// values for every job RAL hands upward to S2E.
type TimeDomain struct {
	mu sync.Mutex

	sessionID uint16
	lastTicks uint32
	wraps     uint64

	utcAtZero  time.Time // wall-clock corresponding to ticks==0 this session
	gpsOffset  time.Duration
	hasGPSFix  bool

	quickRetries   int
	maxQuickRetries int
	log            zerolog.Logger
}

// NewTimeDomain starts a fresh time domain with a random 16-bit session
// tag derived from a UUID, so xtime comparisons across a RAL restart
// are never silently valid: the station and LNS both see the session
// tag change and discard any downlink job scheduled against the old one.
func NewTimeDomain(log zerolog.Logger) *TimeDomain {
	id := uuid.New()
	session := uint16(id[0])<<8 | uint16(id[1])
	return &TimeDomain{
		sessionID:       session,
		utcAtZero:       time.Now(),
		maxQuickRetries: 6, // QUICK_RETRIES threshold from the original PPS recovery logic
		log:             log.With().Str("component", "RAL").Logger(),
	}
}

// Extend converts a raw 32-bit tick reading into a monotone xtime,
// detecting and accounting for counter wraparound (every ~71.5 minutes
// at 1MHz).
func (t *TimeDomain) Extend(ticks uint32) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticks < t.lastTicks {
		t.wraps++
	}
	t.lastTicks = ticks
	ext := t.wraps<<32 | uint64(ticks)
	return t.tag(ext)
}

func (t *TimeDomain) tag(ext uint64) int64 {
	return int64(uint64(t.sessionID)<<48 | (ext & ((1 << 48) - 1)))
}

// SessionID returns the current session tag; a downlink job computed
// against a stale SessionID must be rejected, since the RAL restarted
// and ticks no longer correlate.
func (t *TimeDomain) SessionID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// SameSession reports whether an xtime value was tagged under the
// current session.
func (t *TimeDomain) SameSession(xtime int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint16(uint64(xtime)>>48) == t.sessionID
}

// OnPPS reconciles a PPS tick against the wall clock, detecting drift.
// If the extended ticks implied by the PPS edge disagree with the
// wall-clock-implied ticks by more than driftBudget, a quick-retry
// counter increments; after maxQuickRetries consecutive faults the
// caller should treat the concentrator's time base as unreliable and
// restart RAL (mirrors the original's PPS-loss recovery policy).
func (t *TimeDomain) OnPPS(ticks uint32, wall time.Time, driftBudget time.Duration) (faulted bool, shouldRestart bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	expectedElapsed := wall.Sub(t.utcAtZero)
	actualElapsed := time.Duration(ticks) * time.Microsecond
	drift := expectedElapsed - actualElapsed
	if drift < 0 {
		drift = -drift
	}

	if drift > driftBudget {
		t.quickRetries++
		faulted = true
		if t.quickRetries >= t.maxQuickRetries {
			shouldRestart = true
			t.log.Warn().
				Int("retries", t.quickRetries).
				Dur("drift", drift).
				Msg("PPS drift exceeded budget for too many consecutive ticks, RAL restart needed")
		}
		return faulted, shouldRestart
	}

	t.quickRetries = 0
	return false, false
}

// WallClock approximates the wall-clock instant a session-tagged xtime
// corresponds to, the inverse of Extend/tag, so the TX pipeline can
// judge whether a scheduled job's xtime is still in the future. It
// ignores multi-wrap edge cases beyond the 32-bit tick range already
// folded into xtime by Extend: ok is false if xtime belongs to a
// different (stale) RAL session.
func (t *TimeDomain) WallClock(xtime int64) (when time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if uint16(uint64(xtime)>>48) != t.sessionID {
		return time.Time{}, false
	}
	ext := uint64(xtime) & ((1 << 48) - 1)
	return t.utcAtZero.Add(time.Duration(ext) * time.Microsecond), true
}

// SetGPSFix records that a GPS fix is available and usable for gpstime
// fields; GPSTime returns zero until this is set.
func (t *TimeDomain) SetGPSFix(offset time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gpsOffset = offset
	t.hasGPSFix = true
}

// GPSTime returns the GPS-time estimate for a raw 32-bit tick reading
// (counted from the session start, with no wrap extension), or zero if
// no GPS fix has ever been recorded this session.
func (t *TimeDomain) GPSTime(xticks uint32) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasGPSFix {
		return 0
	}
	wall := t.utcAtZero.Add(time.Duration(xticks) * time.Microsecond).Add(t.gpsOffset)
	return wall.UnixMicro()
}

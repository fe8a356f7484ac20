// Package hal defines the concentrator hardware-abstraction boundary
// RAL depends on, plus the only backend this repository ships: a
// deterministic in-memory simulator. Real SPI/USB concentrator access
// is out of scope (spec.md §1 Non-goals); the interface exists so a
// real driver can be dropped in later without touching RAL or S2E.
package hal

import (
	"context"
	"time"
)

// RXJob is one received frame as the concentrator reports it, prior to
// any xtime/session tagging RAL applies.
type RXJob struct {
	Freq      uint32
	DR        int
	RSSI      float64
	SNR       float64
	Payload   []byte
	Xticks    uint32 // raw 32-bit radio timestamp, wraps every ~71.5 minutes
	RFChain   int
	RCtx      int64
}

// TXJob is one transmission request handed to the concentrator.
type TXJob struct {
	Freq    uint32
	DR      int
	Power   int
	Payload []byte
	Xticks  uint32 // absolute radio-clock tick to begin transmission
	RFChain int
	RCtx    int64
}

// ChannelConfig programs one uplink IF chain, grounded on
// sx130xconf.h's per-channel configuration fields.
type ChannelConfig struct {
	Enable    bool
	Freq      uint32 // Hz, absolute channel center frequency
	Bandwidth uint32
	SpreadFactorMin int
	SpreadFactorMax int
	RFChain   int
}

// Concentrator is the hardware boundary: configure channels, start
// receiving, transmit on demand, and report a PPS tick stream for time
// synchronization. cmd/station calls these methods from more than one
// goroutine: the event loop receives RX jobs, the TX pipeline calls
// Transmit and ScanChannel from one goroutine per job, and the PPS loop
// reads PPS.
type Concentrator interface {
	// Configure programs the channel plan and must be called before Start.
	Configure(channels []ChannelConfig) error
	// Start begins receiving; RX jobs arrive on the returned channel
	// until ctx is cancelled or Stop is called.
	Start(ctx context.Context) (<-chan RXJob, error)
	// Transmit schedules a downlink; the concentrator reports back on
	// completion via the returned channel (nil error = on air).
	Transmit(ctx context.Context, job TXJob) (<-chan error, error)
	// PPS yields a strictly increasing sequence of (xticks, wallclock)
	// pairs, one per second, for GPS/UTC time-domain reconciliation. A
	// concentrator without a PPS source never sends on this channel.
	PPS(ctx context.Context) <-chan PPSTick
	// ScanChannel performs a listen-before-talk clear-channel-assessment
	// scan of scanTime on freq and returns the measured RSSI in dBm, for
	// regions whose admission control requires LBT (AS923, KR920).
	ScanChannel(ctx context.Context, freq uint32, scanTime time.Duration) (float64, error)
	// Stop releases concentrator resources.
	Stop() error
}

// PPSTick pairs a PPS edge's radio-clock reading with the wall-clock
// time it was observed at.
type PPSTick struct {
	Xticks  uint32
	Wall    time.Time
	GPSTime time.Time // zero if no GPS fix
}

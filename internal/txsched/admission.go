package txsched

import (
	"context"
	"fmt"
	"time"

	"github.com/lorawan-station/station/internal/region"
)

// DutyCycleLedger tracks on-air time per duty-cycle band over a
// rolling window, grounded on spec.md §3's duty-cycle ledger data
// model (EU868-style K/L/M/N/P/Q bands).
type DutyCycleLedger struct {
	window   time.Duration
	entries  map[string][]entry
}

type entry struct {
	at   time.Time
	dur  time.Duration
}

// NewDutyCycleLedger builds a ledger with a rolling window (the
// original uses a one-hour window for the 1% bands).
func NewDutyCycleLedger(window time.Duration) *DutyCycleLedger {
	return &DutyCycleLedger{window: window, entries: make(map[string][]entry)}
}

// Record books airtime against a band after a transmission completes.
func (l *DutyCycleLedger) Record(band string, at time.Time, dur time.Duration) {
	l.entries[band] = append(l.entries[band], entry{at: at, dur: dur})
}

// UsedFraction returns the fraction of the rolling window already
// consumed by a band as of now, pruning expired entries.
func (l *DutyCycleLedger) UsedFraction(band string, now time.Time) float64 {
	es := l.entries[band]
	cutoff := now.Add(-l.window)
	kept := es[:0]
	var used time.Duration
	for _, e := range es {
		if e.at.After(cutoff) {
			kept = append(kept, e)
			used += e.dur
		}
	}
	l.entries[band] = kept
	return float64(used) / float64(l.window)
}

// Admit decides whether a job of a given airtime may transmit on freq
// right now, under the region's duty-cycle bands. A frequency outside
// every band, and any region without bands (US915/AU915 fixed-channel
// plans, the LBT regions AS923/KR920), always admits.
func (l *DutyCycleLedger) Admit(d *region.Descriptor, freq uint32, airtime time.Duration, now time.Time) error {
	if band := d.DutyCycleBandFor(freq); band != nil {
		used := l.UsedFraction(band.Name, now)
		projected := used + float64(airtime)/float64(l.window)
		if projected > band.Limit {
			return fmt.Errorf("txsched: duty-cycle band %s would exceed %.2f%% limit (at %.2f%%)",
				band.Name, band.Limit*100, projected*100)
		}
	}
	return nil
}

// HalfDuplexGate prevents two downlinks (or a downlink and an
// in-progress RX) from contending for the same transceiver unit.
// Keyed on (RFChain, RCtx) rather than RFChain alone, per the
// dual-antenna admission rule in SPEC_FULL.md §4.3.
type HalfDuplexGate struct {
	busy map[[2]int64]time.Time // key -> busy-until
}

func NewHalfDuplexGate() *HalfDuplexGate {
	return &HalfDuplexGate{busy: make(map[[2]int64]time.Time)}
}

func gateKey(rfChain, rctx int64) [2]int64 { return [2]int64{rfChain, rctx} }

// Reserve claims the transceiver unit for [now, now+dur). It returns
// false without reserving if the unit is already busy at now.
func (g *HalfDuplexGate) Reserve(rfChain, rctx int64, now time.Time, dur time.Duration) bool {
	key := gateKey(rfChain, rctx)
	if until, busy := g.busy[key]; busy && now.Before(until) {
		return false
	}
	g.busy[key] = now.Add(dur)
	return true
}

// Release clears a reservation early, e.g. on a dntxed failure.
func (g *HalfDuplexGate) Release(rfChain, rctx int64) {
	delete(g.busy, gateKey(rfChain, rctx))
}

// ChannelScanner is the narrow slice of hal.Concentrator admission
// needs for LBT/CCA; declared locally so txsched doesn't import hal,
// matched structurally by any real concentrator backend.
type ChannelScanner interface {
	ScanChannel(ctx context.Context, freq uint32, scanTime time.Duration) (float64, error)
}

// Admission bundles the five checks spec.md §4.3 requires before a job
// may transmit: half-duplex gate (1), duty-cycle or LBT/CCA (2-3),
// dwell-time (4), and power-clamp (5).
type Admission struct {
	Ledger *DutyCycleLedger
	Gate   *HalfDuplexGate
}

// NewAdmission builds an Admission with a fresh ledger/gate pair.
func NewAdmission(window time.Duration) *Admission {
	return &Admission{
		Ledger: NewDutyCycleLedger(window),
		Gate:   NewHalfDuplexGate(),
	}
}

// Admit runs every admission check for job against region d and
// returns nil only if the job may transmit immediately. It reserves
// the half-duplex gate on success; callers must Release it if the
// transmission is later aborted before airing.
func (a *Admission) Admit(ctx context.Context, d *region.Descriptor, job *Job, antennaGainDBi float64, scanner ChannelScanner, now time.Time) error {
	if job.DR < 0 || job.DR >= len(d.DownlinkDR) {
		return fmt.Errorf("txsched: DR %d out of range for region %s", job.DR, d.Name)
	}
	airtime := Airtime(d.DownlinkDR[job.DR], len(job.Payload), 1, false, true)

	if d.DwellTimeLimit > 0 && airtime > d.DwellTimeLimit {
		return fmt.Errorf("txsched: airtime %s exceeds dwell-time limit %s on %s", airtime, d.DwellTimeLimit, d.Name)
	}

	if d.LBT.Enabled {
		if scanner == nil {
			return fmt.Errorf("txsched: region %s requires LBT but no channel scanner is available", d.Name)
		}
		rssi, err := scanner.ScanChannel(ctx, job.Freq, time.Duration(d.LBT.ScanTimeUs)*time.Microsecond)
		if err != nil {
			return fmt.Errorf("txsched: LBT scan failed: %w", err)
		}
		if rssi >= d.LBT.RSSITarget {
			return fmt.Errorf("txsched: channel %d Hz busy under LBT (rssi %.1f >= target %.1f)", job.Freq, rssi, d.LBT.RSSITarget)
		}
	} else if err := a.Ledger.Admit(d, job.Freq, airtime, now); err != nil {
		return err
	}

	if job.Power > d.MaxEIRPdBm {
		job.Power = d.MaxEIRPdBm
	}
	if ag := int(antennaGainDBi); job.Power+ag > d.MaxEIRPdBm {
		job.Power = d.MaxEIRPdBm - ag
	}

	if !a.Gate.Reserve(int64(job.RFChain), job.RCtx, now, airtime) {
		return fmt.Errorf("txsched: half-duplex gate busy for rctx %d", job.RCtx)
	}
	return nil
}

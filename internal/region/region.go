// Package region holds per-region radio parameters: data-rate tables,
// channel plans, duty-cycle bands and CCA/LBT rules. It is the Go
// equivalent of the Basic Station's region.c tables, generalized from
// the teacher's RegionConfiguration into the symmetric/asymmetric DR
// split RP002-1.0.5 requires.
package region

import (
	"fmt"
	"time"
)

// Bandwidth in Hz.
type Bandwidth uint32

const (
	BW125 Bandwidth = 125000
	BW250 Bandwidth = 250000
	BW500 Bandwidth = 500000
)

// DataRate describes one entry of a region's DR table. FSK data rates
// carry BitRate instead of SF/BW.
type DataRate struct {
	SpreadFactor int // 0 for FSK
	Bandwidth    Bandwidth
	BitRate      int // bps, FSK only
	MaxPayload   int
}

func (dr DataRate) IsFSK() bool { return dr.SpreadFactor == 0 && dr.BitRate > 0 }

// Channel is one fixed or configurable uplink/downlink frequency slot.
type Channel struct {
	Frequency uint32 // Hz
	MinDR     int
	MaxDR     int
}

// DutyCycleBand is one sub-band of an ETSI-style duty-cycle regime
// (EU868 bands K/L/M/N/P/Q). FreqMin/FreqMax are inclusive bounds; Limit
// is the fractional on-air budget (e.g. 0.01 for 1%).
type DutyCycleBand struct {
	Name     string
	FreqMin  uint32
	FreqMax  uint32
	Limit    float64
	EIRPdBm  int
}

// LBTRule describes the listen-before-talk requirement for regions
// that use CCA instead of a duty cycle (AS923 variants, KR920).
type LBTRule struct {
	Enabled    bool
	ScanTimeUs int     // minimum channel-clear scan duration
	RSSITarget float64 // dBm threshold below which a channel is "clear"
	IdleTimeMs int     // minimum idle period between TX bursts
}

// Descriptor is a complete region's radio parameter set.
type Descriptor struct {
	Name string

	// Uplink/downlink DR tables. For symmetric regions (EU868, CN470
	// custom/TDD, AS923, KR920, IN865, RU864) UplinkDR == DownlinkDR.
	// For asymmetric regions (US915, AU915) the two tables differ and
	// RX1DROffsetTable indexes into DownlinkDR using the uplink DR plus
	// the offset the network announced.
	UplinkDR   []DataRate
	DownlinkDR []DataRate
	Asymmetric bool

	DefaultChannels []Channel
	FreqRange       [2]uint32 // overall band bounds, Hz

	RX1DROffsetTable map[int]map[int]int // uplinkDR -> offset -> downlinkDR index
	DefaultRX2DR     int
	DefaultRX2Freq   uint32

	DutyCycleBands []DutyCycleBand // nil if the region has no duty-cycle limit
	LBT            LBTRule         // zero value if the region has no CCA requirement

	// DwellTimeLimit caps on-air time per transmission (AS923/KR920);
	// zero means the region has no dwell-time restriction.
	DwellTimeLimit time.Duration

	MaxEIRPdBm int
}

// Get returns a region's Descriptor or an error if the name is unknown.
// Names follow the Basic Station's own convention (EU868, US915,
// AU915, CN470, AS923, KR920, IN865, RU864).
func Get(name string) (*Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("region: unknown region %q", name)
	}
	return d, nil
}

var registry = map[string]*Descriptor{
	"EU868": &eu868,
	"US915": &us915,
	"AU915": &au915,
	"CN470": &cn470,
	"AS923": &as923,
	"KR920": &kr920,
	"IN865": &in865,
	"RU864": &ru864,
}

func init() {
	for _, d := range registry {
		if !d.Asymmetric && d.DownlinkDR == nil {
			d.DownlinkDR = d.UplinkDR
		}
	}
}

// RX1DataRate resolves the RX1 downlink data-rate index for a given
// uplink DR and RX1DROffset, per the region's offset table, falling
// back to the naive "uplinkDR - offset, floored at 0" rule the teacher
// used when a table entry is absent.
func (d *Descriptor) RX1DataRate(uplinkDR, rx1DROffset int) (int, error) {
	if d.RX1DROffsetTable != nil {
		if m, ok := d.RX1DROffsetTable[uplinkDR]; ok {
			if dr, ok := m[rx1DROffset]; ok {
				return dr, nil
			}
		}
	}
	dr := uplinkDR - rx1DROffset
	if dr < 0 {
		dr = 0
	}
	if dr >= len(d.DownlinkDR) {
		return 0, fmt.Errorf("region: %s: derived RX1 DR %d out of range", d.Name, dr)
	}
	return dr, nil
}

// DutyCycleBandFor returns the duty-cycle band a frequency falls in, or
// nil if the region has none (US915/AU915/CN470 TDD have none; AS923
// and KR920 use LBT instead and also return nil here).
func (d *Descriptor) DutyCycleBandFor(freqHz uint32) *DutyCycleBand {
	for i := range d.DutyCycleBands {
		b := &d.DutyCycleBands[i]
		if freqHz >= b.FreqMin && freqHz <= b.FreqMax {
			return b
		}
	}
	return nil
}

// MaxPayloadSize returns the max MACPayload size for a DR index,
// looking at the uplink table (downlink payload limits mirror it per
// regional parameters in every region this package implements).
func (d *Descriptor) MaxPayloadSize(dr int) (int, error) {
	if dr < 0 || dr >= len(d.UplinkDR) {
		return 0, fmt.Errorf("region: %s: DR %d out of range", d.Name, dr)
	}
	return d.UplinkDR[dr].MaxPayload, nil
}

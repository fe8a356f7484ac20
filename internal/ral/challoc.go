package ral

import (
	"fmt"
	"sort"

	"github.com/lorawan-station/station/internal/hal"
	"github.com/lorawan-station/station/internal/region"
)

// rfFrontEnd models one of the concentrator's two tunable RF front
// ends, each covering a +-400kHz window around a configurable center
// frequency, grounded on sx130xconf.h's per-rfconf struct.
type rfFrontEnd struct {
	CenterFreq uint32
	HalfWidth  uint32 // Hz, 400000 on the reference hardware
}

func (f rfFrontEnd) covers(freq uint32) bool {
	lo := f.CenterFreq - f.HalfWidth
	hi := f.CenterFreq + f.HalfWidth
	return freq >= lo && freq <= hi
}

// channelBandwidth derives a channel's concentrator bandwidth and
// FSK-ness from the region's uplink DR table instead of a single
// shared predicate over the legacy 125kHz assumption: every channel
// names the DR index it was built for (MinDR), and that DR entry is
// the source of truth for SF/BW/FSK, the same way sx130xconf_challoc
// reads per-channel DR bounds rather than hardcoding a modulation.
func channelBandwidth(d *region.Descriptor, ch region.Channel) (region.Bandwidth, bool, error) {
	if ch.MinDR < 0 || ch.MinDR >= len(d.UplinkDR) {
		return 0, false, fmt.Errorf("ral: channel %d Hz has DR index %d out of range", ch.Frequency, ch.MinDR)
	}
	dr := d.UplinkDR[ch.MinDR]
	if dr.IsFSK() {
		// FSK channels still occupy a ~125kHz demod window on the
		// reference concentrator hardware even though DataRate carries
		// BitRate instead of Bandwidth.
		return region.BW125, true, nil
	}
	return dr.Bandwidth, false, nil
}

// AllocateChannels assigns a region's uplink channel list onto IF
// chains behind two RF front ends, grounded on sx130xconf_challoc's
// greedy bin-packing: the first IF slot gets a fast-LoRa (500kHz)
// channel when the region defines one, the last gets an FSK channel
// when the region defines one, and the remaining slots are filled with
// the region's configured multi-SF 125kHz channels in frequency order.
// maxIFChains is the concentrator's IF-chain count (8 on the reference
// SX1301/SX1302 hardware).
func AllocateChannels(d *region.Descriptor, rf0, rf1 rfFrontEnd, maxIFChains int) ([]hal.ChannelConfig, error) {
	var fastLoRa, fsk, normal []region.Channel
	for _, ch := range d.DefaultChannels {
		bw, isFSK, err := channelBandwidth(d, ch)
		if err != nil {
			return nil, err
		}
		switch {
		case isFSK:
			fsk = append(fsk, ch)
		case bw >= region.BW500:
			fastLoRa = append(fastLoRa, ch)
		default:
			normal = append(normal, ch)
		}
	}
	sort.Slice(normal, func(i, j int) bool { return normal[i].Frequency < normal[j].Frequency })

	ordered := make([]region.Channel, 0, len(normal)+2)
	if len(fastLoRa) > 0 {
		ordered = append(ordered, fastLoRa[0])
	}
	ordered = append(ordered, normal...)
	if len(fsk) > 0 {
		ordered = append(ordered, fsk[0])
	}
	if len(ordered) > maxIFChains {
		ordered = ordered[:maxIFChains]
	}

	out := make([]hal.ChannelConfig, 0, len(ordered))
	for _, ch := range ordered {
		bw, _, err := channelBandwidth(d, ch)
		if err != nil {
			return nil, err
		}
		rfChain, ok := assignFrontEnd(ch.Frequency, rf0, rf1)
		if !ok {
			return nil, fmt.Errorf("ral: channel %d Hz outside both RF front-end windows", ch.Frequency)
		}
		out = append(out, hal.ChannelConfig{
			Enable:          true,
			Freq:            ch.Frequency,
			Bandwidth:       uint32(bw),
			SpreadFactorMin: ch.MinDR,
			SpreadFactorMax: ch.MaxDR,
			RFChain:         rfChain,
		})
	}
	return out, nil
}

func assignFrontEnd(freq uint32, rf0, rf1 rfFrontEnd) (int, bool) {
	switch {
	case rf0.covers(freq):
		return 0, true
	case rf1.covers(freq):
		return 1, true
	default:
		return 0, false
	}
}

// DefaultFrontEnds derives two RF front-end center frequencies from a
// region's default channel list, the way sx130xconf_parse_setup derives
// centers from a channel list when none is configured explicitly: rf0's
// +-400kHz window starts at the lowest channel, and rf1's starts at the
// lowest channel rf0 does not cover (or at the top of the region's
// range when rf0 covers them all). Channels beyond both windows stay
// uncovered, and AllocateChannels reports them as an error.
func DefaultFrontEnds(d *region.Descriptor) (rf0, rf1 rfFrontEnd) {
	lo, next := d.FreqRange[1], d.FreqRange[1]
	for _, ch := range d.DefaultChannels {
		if ch.Frequency < lo {
			lo = ch.Frequency
		}
	}
	rf0 = rfFrontEnd{CenterFreq: lo + 400000, HalfWidth: 400000}
	for _, ch := range d.DefaultChannels {
		if !rf0.covers(ch.Frequency) && ch.Frequency < next {
			next = ch.Frequency
		}
	}
	return rf0, rfFrontEnd{CenterFreq: next + 400000, HalfWidth: 400000}
}

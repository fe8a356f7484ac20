package region

// CN470Mode selects which of the three deployment variants CN470-510
// supports, grounded on the teacher's CN470Mode/CN470Configuration and
// supplemented with its dedicated downlink-frequency and channel-plan
// helpers (GetCN470DownlinkFrequency, GetCN470ChannelPlanForMode).
type CN470Mode string

const (
	CN470StandardFDD CN470Mode = "STANDARD_FDD" // uplink 470-490MHz, downlink 500-510MHz, +30MHz offset
	CN470CustomFDD   CN470Mode = "CUSTOM_FDD"   // uplink/downlink both within 470-490MHz, +10MHz offset
	CN470TDD         CN470Mode = "TDD"          // shared frequency, time-division
)

var cn470 = Descriptor{
	Name: "CN470",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 115},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 222},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 222},
	},
	DefaultChannels: generateFixedChannels(470300000, 200000, 96, 0, 5),
	FreqRange:       [2]uint32{470000000, 510000000},
	RX1DROffsetTable: map[int]map[int]int{
		0: {0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		1: {0: 1, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		2: {0: 2, 1: 1, 2: 0, 3: 0, 4: 0, 5: 0},
		3: {0: 3, 1: 2, 2: 1, 3: 0, 4: 0, 5: 0},
		4: {0: 4, 1: 3, 2: 2, 3: 1, 4: 0, 5: 0},
		5: {0: 5, 1: 4, 2: 3, 3: 2, 4: 1, 5: 0},
	},
	DefaultRX2DR:   0,
	DefaultRX2Freq: 480300000,
	MaxEIRPdBm:     19,
}

// DownlinkFrequency computes the RX1 downlink frequency for an uplink
// frequency under a given CN470Mode, with range validation and a
// fallback to DefaultRX2Freq exactly like the teacher's
// GetCN470DownlinkFrequency.
func (d *Descriptor) DownlinkFrequency(uplinkFreq uint32, mode CN470Mode) uint32 {
	if d.Name != "CN470" {
		return 0
	}
	switch mode {
	case CN470StandardFDD:
		df := uplinkFreq + 30000000
		if df >= 500300000 && df <= 509700000 {
			return df
		}
	case CN470CustomFDD:
		df := uplinkFreq + 10000000
		if df >= 470000000 && df <= 490000000 {
			return df
		}
	case CN470TDD:
		if uplinkFreq >= 470000000 && uplinkFreq <= 490000000 {
			return uplinkFreq
		}
	}
	return d.DefaultRX2Freq
}

// ChannelPlanForMode returns the uplink/downlink channel lists for a
// CN470 deployment mode.
func ChannelPlanForMode(mode CN470Mode) (uplink, downlink []Channel) {
	switch mode {
	case CN470StandardFDD:
		uplink = generateFixedChannels(470300000, 200000, 96, 0, 5)
		downlink = generateFixedChannels(500300000, 200000, 48, 0, 5)
	case CN470CustomFDD:
		for ch := 0; ch < 48; ch++ {
			uf := uint32(470300000 + ch*200000)
			df := uint32(480300000 + ch*200000)
			if uf <= 490000000 && df <= 490000000 {
				uplink = append(uplink, Channel{Frequency: uf, MinDR: 0, MaxDR: 5})
				downlink = append(downlink, Channel{Frequency: df, MinDR: 0, MaxDR: 5})
			}
		}
	case CN470TDD:
		for ch := 0; ch < 96; ch++ {
			f := uint32(470300000 + ch*200000)
			if f <= 490000000 {
				c := Channel{Frequency: f, MinDR: 0, MaxDR: 5}
				uplink = append(uplink, c)
				downlink = append(downlink, c)
			}
		}
	}
	return
}

package region

// us915 is asymmetric per RP002-1.0.5: the uplink DR table (5 entries,
// 64 125kHz channels + 8 500kHz channels) differs from the downlink DR
// table (6 entries, all 500kHz, used on the 8 fixed RX1/RX2 channels).
// Grounded on the US902 table in the reference pack (SF/BW per DR index
// 0-4 for uplink, 8-13 for downlink) and the teacher's US915Configuration
// payload-size table.
var us915 = Descriptor{
	Name:       "US915",
	Asymmetric: true,
	UplinkDR: []DataRate{
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 11},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 53},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 125},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 242},
		{SpreadFactor: 8, Bandwidth: BW500, MaxPayload: 242},
	},
	DownlinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW500, MaxPayload: 41},
		{SpreadFactor: 11, Bandwidth: BW500, MaxPayload: 117},
		{SpreadFactor: 10, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 9, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 8, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 7, Bandwidth: BW500, MaxPayload: 230},
	},
	DefaultChannels: append(
		generateFixedChannels(902300000, 200000, 64, 0, 3),
		generateFixedChannels(903000000, 1600000, 8, 4, 4)..., // 500kHz fast-LoRa channels, DR4
	),
	FreqRange:       [2]uint32{902000000, 928000000},
	RX1DROffsetTable: map[int]map[int]int{
		// uplinkDR -> offset -> downlink DR index (table 15 of RP002, offset 0-3 used)
		0: {0: 10, 1: 9, 2: 8, 3: 8},
		1: {0: 11, 1: 10, 2: 9, 3: 8},
		2: {0: 12, 1: 11, 2: 10, 3: 9},
		3: {0: 13, 1: 12, 2: 11, 3: 10},
		4: {0: 13, 1: 13, 2: 12, 3: 11},
	},
	DefaultRX2DR:   8,
	DefaultRX2Freq: 923300000,
	MaxEIRPdBm:     30,
}

var au915 = Descriptor{
	Name:       "AU915",
	Asymmetric: true,
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 115},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 242},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 242},
		{SpreadFactor: 8, Bandwidth: BW500, MaxPayload: 242},
	},
	DownlinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW500, MaxPayload: 41},
		{SpreadFactor: 11, Bandwidth: BW500, MaxPayload: 117},
		{SpreadFactor: 10, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 9, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 8, Bandwidth: BW500, MaxPayload: 230},
		{SpreadFactor: 7, Bandwidth: BW500, MaxPayload: 230},
	},
	DefaultChannels: append(
		generateFixedChannels(915200000, 200000, 64, 0, 3),
		generateFixedChannels(915900000, 1600000, 8, 6, 6)..., // 500kHz fast-LoRa channels, DR6
	),
	FreqRange:       [2]uint32{915000000, 928000000},
	RX1DROffsetTable: map[int]map[int]int{
		0: {0: 8, 1: 8, 2: 8, 3: 8},
		1: {0: 9, 1: 8, 2: 8, 3: 8},
		2: {0: 10, 1: 9, 2: 8, 3: 8},
		3: {0: 11, 1: 10, 2: 9, 3: 8},
		4: {0: 12, 1: 11, 2: 10, 3: 9},
		5: {0: 13, 1: 12, 2: 11, 3: 10},
		6: {0: 13, 1: 13, 2: 12, 3: 11},
	},
	DefaultRX2DR:   8,
	DefaultRX2Freq: 923300000,
	MaxEIRPdBm:     30,
}

// generateFixedChannels builds the n-channel 125kHz uplink plan shared by
// the fixed-channel-plan regions (US915/AU915), starting at startFreq and
// spaced by stepHz, with DR range [minDR,maxDR] per channel.
func generateFixedChannels(startFreq, stepHz uint32, n int, minDR, maxDR int) []Channel {
	chans := make([]Channel, n)
	for i := 0; i < n; i++ {
		chans[i] = Channel{
			Frequency: startFreq + uint32(i)*stepHz,
			MinDR:     minDR,
			MaxDR:     maxDR,
		}
	}
	return chans
}

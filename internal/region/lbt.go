package region

import "time"

// as923, kr920: CCA/LBT regions. Neither uses a duty-cycle ledger; the
// TX pipeline consults LBT instead before admitting a job (§4.3). Both
// also cap dwell time at 400ms, the common regional baseline.
var as923 = Descriptor{
	Name: "AS923",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 115},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 222},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 222},
		{SpreadFactor: 7, Bandwidth: BW250, MaxPayload: 222},
	},
	DefaultChannels: []Channel{
		{Frequency: 923200000, MinDR: 0, MaxDR: 5},
		{Frequency: 923400000, MinDR: 0, MaxDR: 5},
	},
	FreqRange:      [2]uint32{915000000, 928000000},
	DefaultRX2DR:   2,
	DefaultRX2Freq: 923200000,
	LBT: LBTRule{
		Enabled:    true,
		ScanTimeUs: 5000,
		RSSITarget: -80,
		IdleTimeMs: 0,
	},
	DwellTimeLimit: 400 * time.Millisecond,
	MaxEIRPdBm:     16,
}

var kr920 = Descriptor{
	Name: "KR920",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 115},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 222},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 222},
	},
	DefaultChannels: []Channel{
		{Frequency: 922100000, MinDR: 0, MaxDR: 5},
		{Frequency: 922300000, MinDR: 0, MaxDR: 5},
		{Frequency: 922500000, MinDR: 0, MaxDR: 5},
	},
	FreqRange:      [2]uint32{920900000, 923300000},
	DefaultRX2DR:   0,
	DefaultRX2Freq: 921900000,
	LBT: LBTRule{
		Enabled:    true,
		ScanTimeUs: 5000,
		RSSITarget: -65,
		IdleTimeMs: 0,
	},
	DwellTimeLimit: 400 * time.Millisecond,
	MaxEIRPdBm:     14,
}

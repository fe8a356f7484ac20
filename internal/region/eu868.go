package region

// eu868 is symmetric: a single DR table serves both uplink and downlink,
// five duty-cycle bands (K/L/M/N/P/Q simplify to the commonly deployed
// g/g1/g2/g3/g4 split), grounded on the teacher's EU868Configuration.
var eu868 = Descriptor{
	Name: "EU868",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 51},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 115},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 242},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 242},
		{SpreadFactor: 7, Bandwidth: BW250, MaxPayload: 242},
		{BitRate: 50000, MaxPayload: 242}, // DR7: FSK 50kbps
	},
	DefaultChannels: []Channel{
		{Frequency: 868100000, MinDR: 0, MaxDR: 5},
		{Frequency: 868300000, MinDR: 0, MaxDR: 5},
		{Frequency: 868500000, MinDR: 0, MaxDR: 5},
		{Frequency: 868800000, MinDR: 7, MaxDR: 7}, // FSK DR7
	},
	FreqRange: [2]uint32{863000000, 870000000},
	RX1DROffsetTable: map[int]map[int]int{
		0: {0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		1: {0: 1, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		2: {0: 2, 1: 1, 2: 0, 3: 0, 4: 0, 5: 0},
		3: {0: 3, 1: 2, 2: 1, 3: 0, 4: 0, 5: 0},
		4: {0: 4, 1: 3, 2: 2, 3: 1, 4: 0, 5: 0},
		5: {0: 5, 1: 4, 2: 3, 3: 2, 4: 1, 5: 0},
	},
	DefaultRX2DR:   0,
	DefaultRX2Freq: 869525000,
	DutyCycleBands: []DutyCycleBand{
		{Name: "g", FreqMin: 863000000, FreqMax: 868000000, Limit: 0.001, EIRPdBm: 25},
		{Name: "g1", FreqMin: 868000000, FreqMax: 868600000, Limit: 0.01, EIRPdBm: 16},
		{Name: "g2", FreqMin: 868700000, FreqMax: 869200000, Limit: 0.001, EIRPdBm: 16},
		{Name: "g3", FreqMin: 869400000, FreqMax: 869650000, Limit: 0.10, EIRPdBm: 27},
		{Name: "g4", FreqMin: 869700000, FreqMax: 870000000, Limit: 0.01, EIRPdBm: 16},
	},
	MaxEIRPdBm: 16,
}

var ru864 = Descriptor{
	Name: "RU864",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 123},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 250},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 250},
	},
	DefaultChannels: []Channel{
		{Frequency: 868900000, MinDR: 0, MaxDR: 5},
		{Frequency: 869100000, MinDR: 0, MaxDR: 5},
	},
	FreqRange:      [2]uint32{864000000, 870000000},
	DefaultRX2DR:   0,
	DefaultRX2Freq: 869100000,
	MaxEIRPdBm:     20,
}

var in865 = Descriptor{
	Name: "IN865",
	UplinkDR: []DataRate{
		{SpreadFactor: 12, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 11, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 10, Bandwidth: BW125, MaxPayload: 59},
		{SpreadFactor: 9, Bandwidth: BW125, MaxPayload: 123},
		{SpreadFactor: 8, Bandwidth: BW125, MaxPayload: 250},
		{SpreadFactor: 7, Bandwidth: BW125, MaxPayload: 250},
		{BitRate: 50000, MaxPayload: 250},
	},
	DefaultChannels: []Channel{
		{Frequency: 865062500, MinDR: 0, MaxDR: 5},
		{Frequency: 865402500, MinDR: 0, MaxDR: 5},
		{Frequency: 865985000, MinDR: 0, MaxDR: 5},
		{Frequency: 866550000, MinDR: 6, MaxDR: 6}, // FSK DR6
	},
	FreqRange:      [2]uint32{865000000, 867000000},
	DefaultRX2DR:   2,
	DefaultRX2Freq: 866550000,
	MaxEIRPdBm:     30,
}

package txsched

import (
	"math"
	"time"

	"github.com/lorawan-station/station/internal/region"
)

// Airtime computes the on-air duration of a LoRa transmission using the
// standard symbol-time formula (Semtech AN1200.13), the same estimator
// the duty-cycle ledger uses for admission control. codingRate is the
// numerator over 4+denominator, e.g. 1 for 4/5.
func Airtime(dr region.DataRate, payloadLen int, codingRate int, lowDRopt, explicitHeader bool) time.Duration {
	if dr.IsFSK() {
		bits := (payloadLen + 2) * 8 // +2 for a 2-byte CRC on the wire
		return time.Duration(float64(bits) / float64(dr.BitRate) * float64(time.Second))
	}

	sf := float64(dr.SpreadFactor)
	bw := float64(dr.Bandwidth)
	tSym := math.Pow(2, sf) / bw // seconds

	tPreamble := (8 + 4.25) * tSym

	de := 0.0
	if lowDRopt {
		de = 1
	}
	h := 0.0
	if !explicitHeader {
		h = 1
	}
	cr := float64(codingRate)

	numerator := 8*float64(payloadLen) - 4*sf + 28 + 16 - 20*h
	denominator := 4 * (sf - 2*de)
	nPayload := 8 + math.Max(math.Ceil(numerator/denominator)*(cr+4), 0)

	tPayload := nPayload * tSym
	total := tPreamble + tPayload
	return time.Duration(total * float64(time.Second))
}

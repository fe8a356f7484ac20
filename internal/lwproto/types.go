// Package lwproto holds the slice of LoRaWAN PHY structure the station
// itself needs to look at: frame headers and addressing, not session
// crypto or MAC-command semantics (those live in the LNS).
package lwproto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EUI64 is an 8-byte extended identifier (DevEUI, JoinEUI, gateway EUI).
type EUI64 [8]byte

func (e EUI64) String() string { return hex.EncodeToString(e[:]) }

func (e EUI64) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EUI64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 8 {
		return fmt.Errorf("lwproto: invalid EUI64 length %d", len(b))
	}
	copy(e[:], b)
	return nil
}

// DevAddr is the 4-byte device network address carried in FHDR.
type DevAddr [4]byte

func (d DevAddr) String() string { return hex.EncodeToString(d[:]) }

func (d DevAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DevAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 4 {
		return fmt.Errorf("lwproto: invalid DevAddr length %d", len(b))
	}
	copy(d[:], b)
	return nil
}

// NetIDFromDevAddr extracts the NetID a DevAddr was assigned under.
// This only implements the common Type-0 NetID addressing rule (the
// top 7 bits of DevAddr); Types 1-6 use progressively fewer NwkID bits
// and are out of scope since the station only uses this for a coarse
// NetID allow-list, not address-to-network routing.
func NetIDFromDevAddr(addr DevAddr) uint32 {
	v := uint32(addr[0])<<24 | uint32(addr[1])<<16 | uint32(addr[2])<<8 | uint32(addr[3])
	return v >> 25
}

// MType is the LoRaWAN message type, the top 3 bits of MHDR.
type MType byte

const (
	JoinRequest MType = iota
	JoinAccept
	UnconfirmedDataUp
	UnconfirmedDataDown
	ConfirmedDataUp
	ConfirmedDataDown
	RejoinRequest
	Proprietary
)

func (t MType) IsUplink() bool {
	switch t {
	case JoinRequest, UnconfirmedDataUp, ConfirmedDataUp, RejoinRequest:
		return true
	default:
		return false
	}
}

// Major is the LoRaWAN major version field of MHDR.
type Major byte

const (
	LoRaWAN1_0 Major = 0
	LoRaWAN1_1 Major = 1
)

// MHDR is the one-byte MAC header: MType in bits 7-5, Major in bits 1-0.
type MHDR struct {
	MType MType
	Major Major
}

func ParseMHDR(b byte) MHDR {
	return MHDR{
		MType: MType(b >> 5),
		Major: Major(b & 0x03),
	}
}

func (h MHDR) Byte() byte {
	return byte(h.MType)<<5 | byte(h.Major)&0x03
}

// FCtrl is the frame-control byte of FHDR. Bit layout differs for
// uplink vs downlink (ClassB/FPending share bit 4); Uplink records which
// side we parsed it as so Marshal round-trips correctly.
type FCtrl struct {
	ADR       bool
	ADRACKReq bool // uplink only
	ACK       bool
	ClassB    bool // uplink only (bit 4 = FPending on downlink)
	FPending  bool // downlink only
	FOptsLen  uint8
	Uplink    bool
}

func ParseFCtrl(b byte, uplink bool) FCtrl {
	fc := FCtrl{
		ADR:      b&0x80 != 0,
		ACK:      b&0x20 != 0,
		FOptsLen: b & 0x0F,
		Uplink:   uplink,
	}
	if uplink {
		fc.ADRACKReq = b&0x40 != 0
		fc.ClassB = b&0x10 != 0
	} else {
		fc.FPending = b&0x10 != 0
	}
	return fc
}

func (fc FCtrl) Byte() byte {
	var b byte
	if fc.ADR {
		b |= 0x80
	}
	if fc.Uplink {
		if fc.ADRACKReq {
			b |= 0x40
		}
	}
	if fc.ACK {
		b |= 0x20
	}
	if fc.Uplink {
		if fc.ClassB {
			b |= 0x10
		}
	} else if fc.FPending {
		b |= 0x10
	}
	b |= fc.FOptsLen & 0x0F
	return b
}

// FHDR is the frame header common to all data messages.
type FHDR struct {
	DevAddr DevAddr
	FCtrl   FCtrl
	FCnt    uint16 // low 16 bits of the true 32-bit frame counter
	FOpts   []byte
}

// Frame is a parsed PHYPayload, kept only as deep as the station needs
// to route, airtime-estimate, and forward it: MHDR + FHDR + opaque
// FPort/FRMPayload/MIC. The station never decrypts FRMPayload or
// verifies MIC; that is LNS work. For RejoinRequest and Proprietary,
// FRMPayload holds the entire opaque body (there is no FHDR to parse).
type Frame struct {
	MHDR       MHDR
	FHDR       FHDR
	FPort      *uint8
	FRMPayload []byte
	MIC        [4]byte
	JoinEUI    EUI64 // valid only when MHDR.MType == JoinRequest
	DevEUI     EUI64 // valid only when MHDR.MType == JoinRequest
	DevNonce   [2]byte
}

// IsCurrentVersion reports whether a parsed frame's MHdr major version
// is the one this station accepts (v1.0). Frames with any other major
// version must be dropped before emission, not forwarded unchanged.
func (f Frame) IsCurrentVersion() bool {
	return f.MHDR.Major == LoRaWAN1_0
}

// ParseFrame parses the minimum structure needed to route an uplink:
// MHDR, then either a join-request triplet or an FHDR/FPort/FRMPayload
// data body, and the trailing 4-byte MIC. It does not validate the MIC.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if len(raw) < 1+4 {
		return f, fmt.Errorf("lwproto: frame too short: %d bytes", len(raw))
	}
	f.MHDR = ParseMHDR(raw[0])
	copy(f.MIC[:], raw[len(raw)-4:])
	body := raw[1 : len(raw)-4]

	switch f.MHDR.MType {
	case JoinRequest:
		if len(body) != 8+8+2 {
			return f, fmt.Errorf("lwproto: bad join-request body length %d", len(body))
		}
		copy(f.JoinEUI[:], body[0:8])
		copy(f.DevEUI[:], body[8:16])
		copy(f.DevNonce[:], body[16:18])
		return f, nil
	case UnconfirmedDataUp, ConfirmedDataUp, UnconfirmedDataDown, ConfirmedDataDown:
		uplink := f.MHDR.MType.IsUplink()
		if len(body) < 7 {
			return f, fmt.Errorf("lwproto: bad data body length %d", len(body))
		}
		copy(f.FHDR.DevAddr[:], body[0:4])
		f.FHDR.FCtrl = ParseFCtrl(body[4], uplink)
		f.FHDR.FCnt = uint16(body[5]) | uint16(body[6])<<8
		n := int(f.FHDR.FCtrl.FOptsLen)
		if len(body) < 7+n {
			return f, fmt.Errorf("lwproto: FOpts overruns frame")
		}
		f.FHDR.FOpts = append([]byte(nil), body[7:7+n]...)
		rest := body[7+n:]
		if len(rest) > 0 {
			p := rest[0]
			f.FPort = &p
			f.FRMPayload = append([]byte(nil), rest[1:]...)
		}
		return f, nil
	case RejoinRequest:
		// RejoinType(1) + a type-dependent address/NetID/counter body;
		// the station never interprets it, only forwards it opaquely, so
		// the only invariant it must check is that a RejoinType byte exists.
		if len(body) < 1 {
			return f, fmt.Errorf("lwproto: rejoin-request body too short")
		}
		f.FRMPayload = append([]byte(nil), body...)
		return f, nil
	default:
		// Proprietary: keep the opaque body for forwarding without
		// further interpretation.
		f.FRMPayload = append([]byte(nil), body...)
		return f, nil
	}
}

// MarshalFrame rebuilds raw PHYPayload bytes from a Frame. Used by the
// simulator HAL and by tests; real downlink bytes normally arrive
// already-framed from the LNS and are forwarded opaquely.
func MarshalFrame(f Frame) []byte {
	buf := []byte{f.MHDR.Byte()}
	switch f.MHDR.MType {
	case JoinRequest:
		buf = append(buf, f.JoinEUI[:]...)
		buf = append(buf, f.DevEUI[:]...)
		buf = append(buf, f.DevNonce[:]...)
	case UnconfirmedDataUp, ConfirmedDataUp, UnconfirmedDataDown, ConfirmedDataDown:
		buf = append(buf, f.FHDR.DevAddr[:]...)
		f.FHDR.FCtrl.FOptsLen = uint8(len(f.FHDR.FOpts))
		buf = append(buf, f.FHDR.FCtrl.Byte())
		buf = append(buf, byte(f.FHDR.FCnt), byte(f.FHDR.FCnt>>8))
		buf = append(buf, f.FHDR.FOpts...)
		if f.FPort != nil {
			buf = append(buf, *f.FPort)
			buf = append(buf, f.FRMPayload...)
		}
	default:
		// RejoinRequest/Proprietary: the opaque body is the entire payload.
		buf = append(buf, f.FRMPayload...)
	}
	buf = append(buf, f.MIC[:]...)
	return buf
}

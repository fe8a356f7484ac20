package lwproto

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestEUI64JSONRoundTrip(t *testing.T) {
	e := EUI64{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got EUI64
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Errorf("got %v, want %v", got, e)
	}
}

func TestEUI64UnmarshalBadLength(t *testing.T) {
	var e EUI64
	if err := json.Unmarshal([]byte(`"0102"`), &e); err == nil {
		t.Fatal("expected error for short hex string")
	}
}

func TestMTypeIsUplink(t *testing.T) {
	cases := map[MType]bool{
		JoinRequest:         true,
		UnconfirmedDataUp:   true,
		ConfirmedDataUp:     true,
		JoinAccept:          false,
		UnconfirmedDataDown: false,
		ConfirmedDataDown:   false,
	}
	for mt, want := range cases {
		if got := mt.IsUplink(); got != want {
			t.Errorf("MType(%d).IsUplink() = %v, want %v", mt, got, want)
		}
	}
}

func TestMHDRByteRoundTrip(t *testing.T) {
	h := MHDR{MType: ConfirmedDataUp, Major: LoRaWAN1_0}
	b := h.Byte()
	got := ParseMHDR(b)
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestFCtrlUplinkRoundTrip(t *testing.T) {
	fc := FCtrl{ADR: true, ADRACKReq: true, ACK: false, ClassB: true, FOptsLen: 3, Uplink: true}
	b := fc.Byte()
	got := ParseFCtrl(b, true)
	if got != fc {
		t.Errorf("got %+v, want %+v", got, fc)
	}
}

func TestFCtrlDownlinkUsesFPendingNotClassB(t *testing.T) {
	fc := FCtrl{ADR: false, ACK: true, FPending: true, FOptsLen: 0, Uplink: false}
	b := fc.Byte()
	got := ParseFCtrl(b, false)
	if got != fc {
		t.Errorf("got %+v, want %+v", got, fc)
	}
	if b&0x10 == 0 {
		t.Error("expected bit 4 set for downlink FPending")
	}
}

func TestParseFrameJoinRequest(t *testing.T) {
	f := Frame{
		MHDR:     MHDR{MType: JoinRequest, Major: LoRaWAN1_0},
		JoinEUI:  EUI64{1, 2, 3, 4, 5, 6, 7, 8},
		DevEUI:   EUI64{8, 7, 6, 5, 4, 3, 2, 1},
		DevNonce: [2]byte{0xAA, 0xBB},
		MIC:      [4]byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	raw := MarshalFrame(f)
	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.MHDR != f.MHDR || got.JoinEUI != f.JoinEUI || got.DevEUI != f.DevEUI || got.DevNonce != f.DevNonce || got.MIC != f.MIC {
		t.Errorf("got %+v, want %+v", got, f)
	}
}

func TestParseFrameUnconfirmedDataUpRoundTrip(t *testing.T) {
	port := uint8(5)
	f := Frame{
		MHDR: MHDR{MType: UnconfirmedDataUp, Major: LoRaWAN1_0},
		FHDR: FHDR{
			DevAddr: DevAddr{1, 2, 3, 4},
			FCtrl:   FCtrl{ADR: true, ADRACKReq: false, ACK: false, Uplink: true},
			FCnt:    42,
			FOpts:   []byte{0x02, 0x03},
		},
		FPort:      &port,
		FRMPayload: []byte{0x10, 0x20, 0x30},
		MIC:        [4]byte{1, 1, 1, 1},
	}
	raw := MarshalFrame(f)
	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.FHDR.DevAddr != f.FHDR.DevAddr {
		t.Errorf("DevAddr mismatch: got %v want %v", got.FHDR.DevAddr, f.FHDR.DevAddr)
	}
	if got.FHDR.FCnt != f.FHDR.FCnt {
		t.Errorf("FCnt mismatch: got %d want %d", got.FHDR.FCnt, f.FHDR.FCnt)
	}
	if !bytes.Equal(got.FHDR.FOpts, f.FHDR.FOpts) {
		t.Errorf("FOpts mismatch: got %v want %v", got.FHDR.FOpts, f.FHDR.FOpts)
	}
	if got.FPort == nil || *got.FPort != port {
		t.Errorf("FPort mismatch: got %v want %d", got.FPort, port)
	}
	if !bytes.Equal(got.FRMPayload, f.FRMPayload) {
		t.Errorf("FRMPayload mismatch: got %v want %v", got.FRMPayload, f.FRMPayload)
	}
}

func TestParseFrameTooShort(t *testing.T) {
	if _, err := ParseFrame([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error for too-short frame")
	}
}

func TestParseFrameBadJoinRequestLength(t *testing.T) {
	raw := []byte{byte(JoinRequest) << 5, 0x01, 0x02, 0xDE, 0xAD, 0xBE, 0xEF}
	if _, err := ParseFrame(raw); err == nil {
		t.Fatal("expected error for short join-request body")
	}
}

func TestParseFrameFOptsOverrun(t *testing.T) {
	raw := []byte{
		byte(UnconfirmedDataUp) << 5,
		1, 2, 3, 4, // DevAddr
		0x0F,    // FCtrl: FOptsLen = 15, far more than remains
		0, 0,    // FCnt
		0xDE, 0xAD, 0xBE, 0xEF, // MIC
	}
	if _, err := ParseFrame(raw); err == nil {
		t.Fatal("expected error for FOpts overrunning frame")
	}
}

func TestParseFrameProprietaryKeepsOpaqueBody(t *testing.T) {
	raw := []byte{byte(Proprietary) << 5, 0x01, 0x02, 0x03, 0xDE, 0xAD, 0xBE, 0xEF}
	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.FRMPayload, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("got %v, want opaque body preserved", got.FRMPayload)
	}
}

func TestRejoinRequestIsUplink(t *testing.T) {
	if !RejoinRequest.IsUplink() {
		t.Error("expected RejoinRequest to be classified as uplink")
	}
}

func TestParseFrameRejoinRequestKeepsOpaqueBody(t *testing.T) {
	raw := []byte{byte(RejoinRequest) << 5, 0x02, 0xAA, 0xBB, 0xCC, 0xDE, 0xAD, 0xBE, 0xEF}
	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.MHDR.MType != RejoinRequest {
		t.Errorf("got MType %d, want RejoinRequest", got.MHDR.MType)
	}
	if !bytes.Equal(got.FRMPayload, []byte{0x02, 0xAA, 0xBB, 0xCC}) {
		t.Errorf("got %v, want opaque rejoin body preserved", got.FRMPayload)
	}
	if got.MIC != [4]byte{0xDE, 0xAD, 0xBE, 0xEF} {
		t.Errorf("got MIC %v, want preserved", got.MIC)
	}
}

func TestParseFrameRejoinRequestTooShort(t *testing.T) {
	raw := []byte{byte(RejoinRequest) << 5, 0xDE, 0xAD, 0xBE, 0xEF}
	if _, err := ParseFrame(raw); err == nil {
		t.Fatal("expected error for rejoin-request body with no RejoinType byte")
	}
}

func TestMarshalFrameRejoinRequestRoundTrip(t *testing.T) {
	f := Frame{
		MHDR:       MHDR{MType: RejoinRequest, Major: LoRaWAN1_0},
		FRMPayload: []byte{0x00, 0x11, 0x22, 0x33},
		MIC:        [4]byte{9, 9, 9, 9},
	}
	raw := MarshalFrame(f)
	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.FRMPayload, f.FRMPayload) {
		t.Errorf("got %v, want %v", got.FRMPayload, f.FRMPayload)
	}
}

func TestNetIDFromDevAddrTopSevenBits(t *testing.T) {
	// DevAddr 0xFE000000 -> top 7 bits of the first byte (0xFE = 1111111_0) = 0x7F
	addr := DevAddr{0xFE, 0x00, 0x00, 0x00}
	if got := NetIDFromDevAddr(addr); got != 0x7F {
		t.Errorf("got NetID %#x, want 0x7F", got)
	}
}

func TestIsCurrentVersion(t *testing.T) {
	v1 := Frame{MHDR: MHDR{Major: LoRaWAN1_0}}
	if !v1.IsCurrentVersion() {
		t.Error("expected major version 1.0 to be current")
	}
	v2 := Frame{MHDR: MHDR{Major: LoRaWAN1_1}}
	if v2.IsCurrentVersion() {
		t.Error("expected major version 1.1 to be rejected as not current")
	}
}

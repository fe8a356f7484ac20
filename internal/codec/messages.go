// Package codec implements the two wire formats S2E exchanges with the
// LNS: the default JSON framing and an optional binary TLV framing
// negotiated at connect time. Message field names below mirror the
// LNS protocol's J_xxx keywords (kwcrc.h) one for one.
package codec

import "github.com/lorawan-station/station/internal/lwproto"

// MsgType names every JSON message the station sends or receives.
type MsgType string

const (
	MsgVersion      MsgType = "version"
	MsgRouterConfig MsgType = "router_config"
	MsgUpdf         MsgType = "updf"
	MsgJreq         MsgType = "jreq"
	MsgRejoin       MsgType = "rejoin"
	MsgPropdf       MsgType = "propdf"
	MsgDntxed       MsgType = "dntxed"
	MsgDnmsg        MsgType = "dnmsg"
	MsgDnsched      MsgType = "dnsched"
	MsgTimesync     MsgType = "timesync"
	MsgRunCommand   MsgType = "runcmd"
	MsgRemoteShell  MsgType = "rmtsh"
)

// Envelope is the minimal shape every inbound message satisfies: a
// msgtype field the station reads first to decide how to decode the
// rest. The concrete message types below declare their own MsgType
// field rather than embedding it.
type Envelope struct {
	MsgType MsgType `json:"msgtype"`
}

// Version is the station's opening handshake message.
type Version struct {
	MsgType MsgType `json:"msgtype"`
	Station string  `json:"station"`
	Firmware string `json:"firmware"`
	Package  string `json:"package"`
	Model    string  `json:"model"`
	Protocol int     `json:"protocol"`
	Features string  `json:"features,omitempty"`
}

// RouterConfig is the LNS's reply describing the region and channel
// plan the station must program into the concentrator, per spec.md
// §6's router_config field table. Everything beyond Region/HWSpec/
// FreqRange/DRs is optional: a field left zero-valued/absent means
// "keep whatever the station's local config/region table already has".
type RouterConfig struct {
	MsgType      MsgType   `json:"msgtype"`
	Region       string    `json:"region"`
	HWSpec       string    `json:"hwspec"`
	FreqRange    [2]uint32 `json:"freq_range"`
	DRs          [][3]int  `json:"DRs"` // [SF, BW/1000, bits/DR specific] - legacy single-table form
	DRsUp        [][3]int  `json:"DRs_up,omitempty"`
	DRsDn        [][3]int  `json:"DRs_dn,omitempty"`
	Upchannels   [][3]uint32 `json:"upchannels,omitempty"` // [freqHz, minDR, maxDR] per channel
	SX1301Conf   []any     `json:"sx1301_conf,omitempty"`
	NoCCA        bool      `json:"nocca,omitempty"`
	NoDutyCycle  bool      `json:"nodc,omitempty"`
	NoDwellTime  bool      `json:"nodwell,omitempty"`
	PingInterval int       `json:"pping,omitempty"`

	// PDUOnly/PDUEncoding switch the station to forwarding every uplink
	// as a single opaque pdu field, skipping JoinEUI/NetID filtering
	// entirely (§4.1 PDU-only mode).
	PDUOnly     bool   `json:"pdu_only,omitempty"`
	PDUEncoding string `json:"pdu_encoding,omitempty"` // "hex" is the only value this station supports

	// LBTRSSITarget/LBTScanTimeUs override the region's built-in LBT
	// parameters for deployments with stricter local regulatory limits.
	LBTRSSITarget float64 `json:"lbt_rssi_target,omitempty"`
	LBTScanTimeUs int     `json:"lbt_scantime_us,omitempty"`

	// DutyCycleEnabled mirrors the wire's duty_cycle_enabled field for
	// visibility/logging only; NoDutyCycle (nodc) remains authoritative
	// for admission control because its zero value ("false") is
	// unambiguous, whereas a bare bool here can't distinguish "absent"
	// from "explicitly disabled".
	DutyCycleEnabled bool `json:"duty_cycle_enabled,omitempty"`

	GPSEnable      bool            `json:"gps_enable,omitempty"`
	JoinEui        []lwproto.EUI64 `json:"JoinEui,omitempty"`
	NetID          []uint32        `json:"NetID,omitempty"`
	ProtocolFormat string          `json:"protocol_format,omitempty"`
}

// Updf is a regular LoRa uplink data frame.
type Updf struct {
	MsgType  MsgType           `json:"msgtype"`
	DevAddr  lwproto.DevAddr   `json:"DevAddr"`
	FCtrl    byte              `json:"FCtrl"`
	FCnt     uint16            `json:"FCnt"`
	FOpts    string            `json:"FOpts,omitempty"` // hex
	FPort    *int              `json:"FPort,omitempty"`
	FRMPayload string          `json:"FRMPayload,omitempty"` // base64
	MIC      int32             `json:"MIC"`
	DR       int               `json:"DR"`
	Freq     uint32            `json:"Freq"`
	UpInfo   UpInfo            `json:"upinfo"`
}

// Jreq is a LoRaWAN join-request uplink.
type Jreq struct {
	MsgType  MsgType         `json:"msgtype"`
	MHdr     byte            `json:"MHdr"`
	JoinEUI  lwproto.EUI64   `json:"JoinEui"`
	DevEUI   lwproto.EUI64   `json:"DevEui"`
	DevNonce uint16          `json:"DevNonce"`
	MIC      int32           `json:"MIC"`
	DR       int             `json:"DR"`
	Freq     uint32          `json:"Freq"`
	UpInfo   UpInfo          `json:"upinfo"`
}

// Rejoin forwards a LoRaWAN rejoin-request uplink opaquely: the station
// never parses RejoinType/NetID/DevEUI/RJcount, it only relays the raw
// body as hex and always bypasses JoinEUI/NetID filtering (§4.1).
type Rejoin struct {
	MsgType MsgType `json:"msgtype"`
	MHdr    byte    `json:"MHdr"`
	PDU     string  `json:"pdu"` // hex: RejoinType + type-dependent body
	MIC     int32   `json:"MIC"`
	DR      int     `json:"DR"`
	Freq    uint32  `json:"Freq"`
	UpInfo  UpInfo  `json:"upinfo"`
}

// PDUOnlyUp is the generic uplink shape emitted when the session is in
// PDU-only mode (§4.1): the entire PHYPayload is forwarded as a single
// hex field and no JoinEUI/NetID filtering is applied.
type PDUOnlyUp struct {
	MsgType MsgType `json:"msgtype"`
	PDU     string  `json:"pdu"` // hex: full PHYPayload, MHdr through MIC
	DR      int     `json:"DR"`
	Freq    uint32  `json:"Freq"`
	UpInfo  UpInfo  `json:"upinfo"`
}

// Propdf is a proprietary (opaque) uplink frame.
type Propdf struct {
	MsgType MsgType `json:"msgtype"`
	FRMPayload string `json:"FRMPayload"`
	DR      int     `json:"DR"`
	Freq    uint32  `json:"Freq"`
	UpInfo  UpInfo  `json:"upinfo"`
}

// UpInfo carries the radio-timestamp metadata common to every uplink.
type UpInfo struct {
	RCtx    int64   `json:"rctx"`
	Xtime   int64   `json:"xtime"`
	GPSTime int64   `json:"gpstime,omitempty"`
	RSSI    float64 `json:"rssi"`
	SNR     float64 `json:"snr"`
}

// Dnmsg is a scheduled downlink from the LNS.
type Dnmsg struct {
	MsgType MsgType       `json:"msgtype"`
	DevEUI  lwproto.EUI64 `json:"DevEui"`
	DC      int           `json:"dC"` // device class: 0=A, 1=B, 2=C
	Diid    int64         `json:"diid"`
	PDU     string        `json:"pdu"` // hex
	DR      int           `json:"RX1DR,omitempty"`
	Freq    uint32        `json:"RX1Freq,omitempty"`
	RX2DR   int           `json:"RX2DR,omitempty"`
	RX2Freq uint32        `json:"RX2Freq,omitempty"`
	Priority int          `json:"priority,omitempty"`
	RxDelay int           `json:"RxDelay,omitempty"`
	XTime   int64         `json:"xtime,omitempty"`
	RCtx    int64         `json:"rctx,omitempty"`
	GPSTime int64         `json:"gpstime,omitempty"`
}

// Dntxed acknowledges a completed (or failed) downlink transmission.
type Dntxed struct {
	MsgType MsgType       `json:"msgtype"`
	DevEUI  lwproto.EUI64 `json:"DevEui"`
	Diid    int64         `json:"diid"`
	RCtx    int64         `json:"rctx"`
	XTime   int64         `json:"xtime"`
	TXTime  int64         `json:"txtime,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Timesync reconciles xtime/GPS/UTC across the station and LNS.
type Timesync struct {
	MsgType    MsgType `json:"msgtype"`
	TXTime     int64   `json:"txtime,omitempty"`
	GPSTime    int64   `json:"gpstime,omitempty"`
	MuxTime    float64 `json:"MuxTime,omitempty"`
	RegionTime int64   `json:"regionid,omitempty"`
}

// RunCommand requests a named shell command be executed; dispatched to
// a CommandRunner collaborator, rejected by default (§4.1 additions).
type RunCommand struct {
	MsgType   MsgType  `json:"msgtype"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments,omitempty"`
}

// RemoteShell opens/continues/terminates a remote shell session;
// dispatched to a ShellSession collaborator, rejected by default.
type RemoteShell struct {
	MsgType MsgType `json:"msgtype"`
	Term    string  `json:"term,omitempty"`
	Start   bool    `json:"start,omitempty"`
	Stop    bool    `json:"stop,omitempty"`
}

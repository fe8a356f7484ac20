package codec

import (
	"encoding/json"
	"fmt"

	"github.com/lorawan-station/station/internal/kwcrc"
)

// fieldRegistry lets PeekMsgType resolve the "msgtype" key itself by
// hash before paying for a full json.Unmarshal into a typed struct,
// mirroring the dispatch kwcrc.h's CRC table gives the C implementation.
var fieldRegistry = kwcrc.NewRegistry([]string{
	"msgtype", "station", "firmware", "package", "model", "protocol",
	"features", "region", "hwspec", "freq_range", "DRs", "nocca", "nodc",
	"nodwell", "DevAddr", "FCtrl", "FCnt", "FOpts", "FPort", "FRMPayload",
	"MIC", "DR", "Freq", "upinfo", "rctx", "xtime", "gpstime", "rssi",
	"snr", "MHdr", "JoinEui", "DevEui", "DevNonce", "dC", "diid", "pdu",
	"RX1DR", "RX1Freq", "RX2DR", "RX2Freq", "priority", "RxDelay",
	"txtime", "error", "MuxTime", "regionid", "command", "arguments",
	"term", "start", "stop", "DRs_up", "DRs_dn", "upchannels", "pdu_only",
	"pdu_encoding", "lbt_rssi_target", "lbt_scantime_us",
	"duty_cycle_enabled", "gps_enable", "NetID", "protocol_format",
})

var msgTypeHash = kwcrc.Hash("msgtype")

// PeekMsgType extracts the msgtype field from a raw JSON object without
// fully decoding the rest of the message, and confirms that the
// "msgtype" key resolves in fieldRegistry. No other part of the codec
// dispatches by field hash; Decode switches on the msgtype string.
func PeekMsgType(raw []byte) (MsgType, error) {
	var probe struct {
		MsgType MsgType `json:"msgtype"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("codec: peek msgtype: %w", err)
	}
	if probe.MsgType == "" {
		return "", fmt.Errorf("codec: message missing msgtype field")
	}
	// fieldRegistry/msgTypeHash exist to give the hot dispatch path an
	// O(1) jump once a message type is known; verify "msgtype" itself
	// resolves so a registry edit can't silently drop the anchor field.
	if _, ok := fieldRegistry.Lookup(msgTypeHash); !ok {
		return "", fmt.Errorf("codec: msgtype field missing from registry")
	}
	return probe.MsgType, nil
}

// Decode fully decodes raw into the typed message matching its
// msgtype. The returned value is one of the *Updf/*Jreq/... pointer
// types declared in messages.go.
func Decode(raw []byte) (MsgType, any, error) {
	mt, err := PeekMsgType(raw)
	if err != nil {
		return "", nil, err
	}
	var v any
	switch mt {
	case MsgVersion:
		v = &Version{}
	case MsgRouterConfig:
		v = &RouterConfig{}
	case MsgUpdf:
		v = &Updf{}
	case MsgJreq:
		v = &Jreq{}
	case MsgRejoin:
		v = &Rejoin{}
	case MsgPropdf:
		v = &Propdf{}
	case MsgDntxed:
		v = &Dntxed{}
	case MsgDnmsg:
		v = &Dnmsg{}
	case MsgDnsched:
		v = &struct {
			MsgType MsgType `json:"msgtype"`
			Schedule []Dnmsg `json:"schedule"`
		}{}
	case MsgTimesync:
		v = &Timesync{}
	case MsgRunCommand:
		v = &RunCommand{}
	case MsgRemoteShell:
		v = &RemoteShell{}
	default:
		return mt, nil, fmt.Errorf("codec: unrecognized msgtype %q", mt)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return mt, nil, fmt.Errorf("codec: decode %s: %w", mt, err)
	}
	return mt, v, nil
}

// Encode marshals a typed message back to wire JSON.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return b, nil
}

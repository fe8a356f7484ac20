package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/lorawan-station/station/internal/lwproto"
)

// BinMsgType mirrors tcpb.h's tcpb_msgtype_t enum; values are the wire
// tag byte every binary-codec frame opens with.
type BinMsgType byte

const (
	BinUpdf BinMsgType = iota + 1
	BinJreq
	BinPropdf
	BinDntxed
	BinTimesync
	BinDnmsg
	BinDnsched
	BinRunCommand
	BinRemoteShell
)

// tlv is one type-length-value field inside a binary frame.
type tlv struct {
	tag byte
	val []byte
}

func (t tlv) write(buf *bytes.Buffer) {
	buf.WriteByte(t.tag)
	var lenb [2]byte
	binary.BigEndian.PutUint16(lenb[:], uint16(len(t.val)))
	buf.Write(lenb[:])
	buf.Write(t.val)
}

func readTLVs(b []byte) ([]tlv, error) {
	var out []tlv
	for len(b) > 0 {
		if len(b) < 3 {
			return nil, fmt.Errorf("codec: truncated TLV header")
		}
		tag := b[0]
		n := binary.BigEndian.Uint16(b[1:3])
		b = b[3:]
		if len(b) < int(n) {
			return nil, fmt.Errorf("codec: truncated TLV value for tag %d", tag)
		}
		out = append(out, tlv{tag: tag, val: b[:n]})
		b = b[n:]
	}
	return out, nil
}

// TLV tags shared across the encode functions below. Each corresponds
// to a named parameter of a tcpb_enc* function in tcpb.h.
const (
	tagMHDR byte = iota
	tagDevAddr
	tagFCtrl
	tagFCnt
	tagFOpts
	tagFPort
	tagPayload
	tagMIC
	tagDR
	tagFreq
	tagRCtx
	tagXTime
	tagGPSTime
	tagRSSI
	tagSNR
	tagJoinEUI
	tagDevEUI
	tagDevNonce
	tagDevEUIOut
	tagDiid
	tagPDU
	tagRxDelay
	tagRX1DR
	tagRX1Freq
	tagRX2DR
	tagRX2Freq
	tagPriority
	tagTXTime
)

// EncodeUpdf serializes an uplink data frame in the binary TLV format,
// field-for-field matching tcpb_encUpdf's parameter list.
func EncodeUpdf(f lwproto.Frame, dr int, freq uint32, rctx, xtime, gpstime int64, rssi, snr float64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(BinUpdf))
	fields := []tlv{
		{tagMHDR, []byte{f.MHDR.Byte()}},
		{tagDevAddr, f.FHDR.DevAddr[:]},
		{tagFCtrl, []byte{f.FHDR.FCtrl.Byte()}},
		{tagFCnt, u16(f.FHDR.FCnt)},
		{tagFOpts, f.FHDR.FOpts},
		{tagPayload, f.FRMPayload},
		{tagMIC, f.MIC[:]},
		{tagDR, u16(uint16(dr))},
		{tagFreq, u32(freq)},
		{tagRCtx, i64(rctx)},
		{tagXTime, i64(xtime)},
		{tagGPSTime, i64(gpstime)},
		{tagRSSI, f64(rssi)},
		{tagSNR, f64(snr)},
	}
	if f.FPort != nil {
		fields = append(fields, tlv{tagFPort, []byte{*f.FPort}})
	}
	for _, t := range fields {
		t.write(&buf)
	}
	return buf.Bytes()
}

// EncodeJreq serializes a join-request uplink, matching tcpb_encJreq.
func EncodeJreq(f lwproto.Frame, dr int, freq uint32, rctx, xtime, gpstime int64, rssi, snr float64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(BinJreq))
	fields := []tlv{
		{tagMHDR, []byte{f.MHDR.Byte()}},
		{tagJoinEUI, f.JoinEUI[:]},
		{tagDevEUI, f.DevEUI[:]},
		{tagDevNonce, f.DevNonce[:]},
		{tagMIC, f.MIC[:]},
		{tagDR, u16(uint16(dr))},
		{tagFreq, u32(freq)},
		{tagRCtx, i64(rctx)},
		{tagXTime, i64(xtime)},
		{tagGPSTime, i64(gpstime)},
		{tagRSSI, f64(rssi)},
		{tagSNR, f64(snr)},
	}
	for _, t := range fields {
		t.write(&buf)
	}
	return buf.Bytes()
}

// DecodedDnmsg is the binary-codec mirror of tcpb_dnmsg_t.
type DecodedDnmsg struct {
	DevEUI   lwproto.EUI64
	Diid     int64
	PDU      []byte
	RxDelay  int
	RX1DR    int
	RX1Freq  uint32
	RX2DR    int
	RX2Freq  uint32
	Priority int
	XTime    int64
	RCtx     int64
	GPSTime  int64
}

// EncodeDnmsg serializes a scheduled downlink, matching tcpb_dnmsg_t's
// field list in tcpb.h.
func EncodeDnmsg(m DecodedDnmsg) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(BinDnmsg))
	fields := []tlv{
		{tagDevEUIOut, m.DevEUI[:]},
		{tagDiid, i64(m.Diid)},
		{tagPDU, m.PDU},
		{tagRxDelay, u16(uint16(m.RxDelay))},
		{tagRX1DR, u16(uint16(m.RX1DR))},
		{tagRX1Freq, u32(m.RX1Freq)},
		{tagRX2DR, u16(uint16(m.RX2DR))},
		{tagRX2Freq, u32(m.RX2Freq)},
		{tagPriority, []byte{byte(m.Priority)}},
		{tagXTime, i64(m.XTime)},
		{tagRCtx, i64(m.RCtx)},
		{tagGPSTime, i64(m.GPSTime)},
	}
	for _, t := range fields {
		t.write(&buf)
	}
	return buf.Bytes()
}

// DecodeDnmsg parses a binary-codec dnmsg frame back into its fields.
func DecodeDnmsg(raw []byte) (DecodedDnmsg, error) {
	var m DecodedDnmsg
	if len(raw) < 1 || BinMsgType(raw[0]) != BinDnmsg {
		return m, fmt.Errorf("codec: not a dnmsg frame")
	}
	fields, err := readTLVs(raw[1:])
	if err != nil {
		return m, err
	}
	for _, t := range fields {
		switch t.tag {
		case tagDevEUIOut:
			copy(m.DevEUI[:], t.val)
		case tagDiid:
			m.Diid = readI64(t.val)
		case tagPDU:
			m.PDU = append([]byte(nil), t.val...)
		case tagRxDelay:
			m.RxDelay = int(readU16(t.val))
		case tagRX1DR:
			m.RX1DR = int(readU16(t.val))
		case tagRX1Freq:
			m.RX1Freq = readU32(t.val)
		case tagRX2DR:
			m.RX2DR = int(readU16(t.val))
		case tagRX2Freq:
			m.RX2Freq = readU32(t.val)
		case tagPriority:
			if len(t.val) == 1 {
				m.Priority = int(t.val[0])
			}
		case tagXTime:
			m.XTime = readI64(t.val)
		case tagRCtx:
			m.RCtx = readI64(t.val)
		case tagGPSTime:
			m.GPSTime = readI64(t.val)
		}
	}
	return m, nil
}

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }
func i64(v int64) []byte  { b := make([]byte, 8); binary.BigEndian.PutUint64(b, uint64(v)); return b }
func f64(v float64) []byte {
	return i64(int64(v * 100)) // centi-units, matches the PHY's fixed-point rssi/snr wire encoding
}
func readU16(b []byte) uint16 {
	if len(b) != 2 {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}
func readU32(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
func readI64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// Compress/Decompress wrap a binary-codec frame with zstd, negotiated
// alongside protocol_format for large dnsched batches (§6.2).
var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

func CompressFrame(frame []byte) []byte {
	return zstdEncoder.EncodeAll(frame, nil)
}

func DecompressFrame(compressed []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decompress: %w", err)
	}
	return out, nil
}

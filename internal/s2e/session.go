// Package s2e is the station-to-endpoint session engine: it owns the
// single session context per LNS connection, dispatches inbound
// messages, applies uplink filters, and turns RX jobs and dnmsg
// messages into the frames the transport and TX pipeline deal with.
// Per spec.md §5 the session runs its logic on one goroutine; it is
// not safe to call Session methods concurrently from multiple
// goroutines.
package s2e

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorawan-station/station/internal/codec"
	"github.com/lorawan-station/station/internal/hal"
	"github.com/lorawan-station/station/internal/lwproto"
	"github.com/lorawan-station/station/internal/ral"
	"github.com/lorawan-station/station/internal/region"
	"github.com/lorawan-station/station/internal/txsched"
)

// Filters narrow which uplinks get forwarded to the LNS, matching the
// filter knobs spec.md §3's session-context data model names: a NetID
// allow-list and a JoinEUI allow-list/deny-list, applied before an
// uplink is ever marshaled.
type Filters struct {
	NetIDs      map[uint32]bool // nil/empty = accept all
	JoinEUIs    map[lwproto.EUI64]bool
	JoinEUIDeny bool // if true, JoinEUIs is a deny-list instead of allow-list
}

func (f Filters) acceptsJoinEUI(e lwproto.EUI64) bool {
	if len(f.JoinEUIs) == 0 {
		return true
	}
	_, present := f.JoinEUIs[e]
	if f.JoinEUIDeny {
		return !present
	}
	return present
}

// acceptsNetID mirrors acceptsJoinEUI for the NetID allow-list: nil or
// empty means accept every NetID, matching the teacher's nil-means-open
// convention for the JoinEUI filter above.
func (f Filters) acceptsNetID(netID uint32) bool {
	if len(f.NetIDs) == 0 {
		return true
	}
	return f.NetIDs[netID]
}

// CommandRunner executes a runcmd request. The default implementation
// rejects everything; a real one is an external collaborator per
// spec.md §1.
type CommandRunner interface {
	Run(cmd string, args []string) error
}

// ShellSession manages an rmtsh session lifecycle. Default rejects.
type ShellSession interface {
	Start(term string) error
	Stop() error
}

type rejectAll struct{}

func (rejectAll) Run(cmd string, args []string) error { return errRejected("runcmd") }
func (rejectAll) Start(term string) error             { return errRejected("rmtsh") }
func (rejectAll) Stop() error                          { return nil }

type rejectedErr string

func (e rejectedErr) Error() string { return string(e) + " not supported by this station" }
func errRejected(what string) error  { return rejectedErr(what) }

// Session is the station's single LNS session context.
type Session struct {
	Region   *region.Descriptor
	TimeDom  *ral.TimeDomain
	Queue    *txsched.Queue
	Filters  Filters
	Runner   CommandRunner
	Shell    ShellSession

	// PDUOnly/PDUEncoding implement §4.1's PDU-only mode: when set, every
	// uplink is forwarded as a single opaque pdu field and JoinEUI/NetID
	// filtering is skipped entirely. Set by a router_config from the LNS
	// (ApplyRouterConfig), never by local config alone.
	PDUOnly     bool
	PDUEncoding string

	log zerolog.Logger

	lastTXTimeSync time.Time
}

// NewSession builds a Session; Runner/Shell start as collaborators that
// reject every request, so runcmd/rmtsh dispatch returns at once until
// real ones are assigned.
func NewSession(reg *region.Descriptor, td *ral.TimeDomain, log zerolog.Logger) *Session {
	return &Session{
		Region:  reg,
		TimeDom: td,
		Queue:   txsched.NewQueue(),
		Runner:  rejectAll{},
		Shell:   rejectAll{},
		log:     log.With().Str("component", "S2E").Logger(),
	}
}

// HandleUplink turns one RX job from the HAL into the outbound updf,
// jreq, rejoin, or propdf message, or nil if the frame is filtered out,
// unparseable, or not the major version this station accepts. The
// returned value is one of *codec.Updf / *codec.Jreq / *codec.Rejoin /
// *codec.Propdf / *codec.PDUOnlyUp.
func (s *Session) HandleUplink(job hal.RXJob) any {
	frame, err := lwproto.ParseFrame(job.Payload)
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping unparseable uplink")
		return nil
	}
	if !frame.IsCurrentVersion() {
		// universal invariant #2: frames with a major version this
		// station doesn't speak are dropped before emission, never
		// forwarded unchanged.
		s.log.Debug().Uint8("major", uint8(frame.MHDR.Major)).Msg("dropping uplink with unsupported MHdr major version")
		return nil
	}

	xtime := s.TimeDom.Extend(job.Xticks)
	info := codec.UpInfo{
		RCtx:    job.RCtx,
		Xtime:   xtime,
		GPSTime: s.TimeDom.GPSTime(job.Xticks),
		RSSI:    job.RSSI,
		SNR:     job.SNR,
	}

	if s.PDUOnly {
		// §4.1 PDU-only mode: a single opaque pdu field, no JoinEUI/NetID
		// filtering at all.
		return &codec.PDUOnlyUp{
			MsgType: codec.MsgUpdf,
			PDU:     hexString(job.Payload),
			DR:      job.DR,
			Freq:    job.Freq,
			UpInfo:  info,
		}
	}

	switch frame.MHDR.MType {
	case lwproto.JoinRequest:
		if !s.Filters.acceptsJoinEUI(frame.JoinEUI) {
			s.log.Debug().Str("joineui", frame.JoinEUI.String()).Msg("join request filtered")
			return nil
		}
		return &codec.Jreq{
			MsgType:  codec.MsgJreq,
			MHdr:     frame.MHDR.Byte(),
			JoinEUI:  frame.JoinEUI,
			DevEUI:   frame.DevEUI,
			DevNonce: uint16(frame.DevNonce[0]) | uint16(frame.DevNonce[1])<<8,
			MIC:      micAsInt32(frame.MIC),
			DR:       job.DR,
			Freq:     job.Freq,
			UpInfo:   info,
		}
	case lwproto.RejoinRequest:
		// Rejoin requests always bypass JoinEUI/NetID filtering (§4.1,
		// bolded "Rejoin request"): the station forwards the opaque
		// RejoinType+body unconditionally so the LNS can decide.
		return &codec.Rejoin{
			MsgType: codec.MsgRejoin,
			MHdr:    frame.MHDR.Byte(),
			PDU:     hexString(frame.FRMPayload),
			MIC:     micAsInt32(frame.MIC),
			DR:      job.DR,
			Freq:    job.Freq,
			UpInfo:  info,
		}
	case lwproto.UnconfirmedDataUp, lwproto.ConfirmedDataUp:
		if !s.Filters.acceptsNetID(lwproto.NetIDFromDevAddr(frame.FHDR.DevAddr)) {
			s.log.Debug().Str("devaddr", frame.FHDR.DevAddr.String()).Msg("uplink filtered by NetID")
			return nil
		}
		var fport *int
		if frame.FPort != nil {
			p := int(*frame.FPort)
			fport = &p
		}
		return &codec.Updf{
			MsgType:    codec.MsgUpdf,
			DevAddr:    frame.FHDR.DevAddr,
			FCtrl:      frame.FHDR.FCtrl.Byte(),
			FCnt:       frame.FHDR.FCnt,
			FOpts:      hexString(frame.FHDR.FOpts),
			FPort:      fport,
			FRMPayload: base64String(frame.FRMPayload),
			MIC:        micAsInt32(frame.MIC),
			DR:         job.DR,
			Freq:       job.Freq,
			UpInfo:     info,
		}
	default:
		return &codec.Propdf{
			MsgType:    codec.MsgPropdf,
			FRMPayload: base64String(frame.FRMPayload),
			DR:         job.DR,
			Freq:       job.Freq,
			UpInfo:     info,
		}
	}
}

// HandleDnmsg converts an inbound dnmsg into a txsched.Job and admits
// it to the queue. It returns an error if the job's xtime belongs to a
// stale RAL session; cmd/station logs that error and sends no dntxed.
func (s *Session) HandleDnmsg(m *codec.Dnmsg) (*txsched.Job, error) {
	if m.XTime != 0 && !s.TimeDom.SameSession(m.XTime) {
		return nil, errRejected("dnmsg targets a stale RAL session, reject")
	}
	pdu, err := hexDecode(m.PDU)
	if err != nil {
		return nil, err
	}
	priority := txsched.PriorityClassA
	switch m.DC {
	case 1:
		priority = txsched.PriorityClassB
	case 2:
		priority = txsched.PriorityClassC
	}
	job := &txsched.Job{
		Diid:     m.Diid,
		Priority: priority,
		XTime:    m.XTime,
		RCtx:     m.RCtx,
		Freq:     m.Freq,
		DR:       m.DR,
		Payload:  pdu,
	}
	copy(job.DevEUI[:], m.DevEUI[:])
	s.Queue.Push(job)
	return job, nil
}

// Dispatch routes any decoded inbound message to the right handler,
// dispatching runcmd/rmtsh to their collaborators without blocking the
// session loop on their outcome beyond a direct call (§4.1 additions).
func (s *Session) Dispatch(mt codec.MsgType, v any) error {
	switch mt {
	case codec.MsgRunCommand:
		cmd := v.(*codec.RunCommand)
		return s.Runner.Run(cmd.Command, cmd.Arguments)
	case codec.MsgRemoteShell:
		rs := v.(*codec.RemoteShell)
		if rs.Start {
			return s.Shell.Start(rs.Term)
		}
		if rs.Stop {
			return s.Shell.Stop()
		}
		return nil
	case codec.MsgDnmsg:
		_, err := s.HandleDnmsg(v.(*codec.Dnmsg))
		return err
	case codec.MsgRouterConfig:
		return s.ApplyRouterConfig(v.(*codec.RouterConfig))
	default:
		return nil
	}
}

// ApplyRouterConfig programs the session's region/DR-tables/channel
// plan/filters/LBT/mode flags from the LNS's router_config reply
// (§6), the session-bootstrap step that must follow the station's
// opening version message. It always clones the base region descriptor
// before mutating anything: region.Get returns a pointer into the
// package-level registry shared by every session, and overriding it in
// place would corrupt that shared state for every other session.
func (s *Session) ApplyRouterConfig(rc *codec.RouterConfig) error {
	base := s.Region
	if rc.Region != "" && rc.Region != base.Name {
		got, err := region.Get(rc.Region)
		if err != nil {
			return fmt.Errorf("s2e: router_config names unknown region %q: %w", rc.Region, err)
		}
		base = got
	}
	regionCopy := *base
	if len(rc.DRsUp) > 0 {
		regionCopy.UplinkDR = drTableFromWire(rc.DRsUp)
	}
	if len(rc.DRsDn) > 0 {
		regionCopy.DownlinkDR = drTableFromWire(rc.DRsDn)
		regionCopy.Asymmetric = true
	}
	if len(rc.Upchannels) > 0 {
		chans := make([]region.Channel, len(rc.Upchannels))
		for i, c := range rc.Upchannels {
			chans[i] = region.Channel{Frequency: c[0], MinDR: int(c[1]), MaxDR: int(c[2])}
		}
		regionCopy.DefaultChannels = chans
	}
	if rc.FreqRange != [2]uint32{} {
		regionCopy.FreqRange = rc.FreqRange
	}
	if rc.NoCCA {
		regionCopy.LBT.Enabled = false
	}
	if rc.LBTRSSITarget != 0 {
		regionCopy.LBT.RSSITarget = rc.LBTRSSITarget
	}
	if rc.LBTScanTimeUs != 0 {
		regionCopy.LBT.ScanTimeUs = rc.LBTScanTimeUs
	}
	if rc.NoDutyCycle {
		regionCopy.DutyCycleBands = nil
	}
	if rc.NoDwellTime {
		regionCopy.DwellTimeLimit = 0
	}
	s.Region = &regionCopy

	if len(rc.JoinEui) > 0 {
		s.Filters.JoinEUIs = make(map[lwproto.EUI64]bool, len(rc.JoinEui))
		for _, e := range rc.JoinEui {
			s.Filters.JoinEUIs[e] = true
		}
	}
	if len(rc.NetID) > 0 {
		s.Filters.NetIDs = make(map[uint32]bool, len(rc.NetID))
		for _, n := range rc.NetID {
			s.Filters.NetIDs[n] = true
		}
	}
	s.PDUOnly = rc.PDUOnly
	if rc.PDUEncoding != "" {
		s.PDUEncoding = rc.PDUEncoding
	}

	s.log.Info().Str("region", regionCopy.Name).Bool("pdu_only", s.PDUOnly).Msg("applied router_config from LNS")
	return nil
}

// drTableFromWire converts the wire's [SF, BW/1000, maxpayload] triples
// into region.DataRate entries; SF==0 marks an FSK DR per the wire
// convention kwcrc.h documents (BW/1000 then carries the FSK bitrate
// in kbps instead of channel bandwidth).
func drTableFromWire(rows [][3]int) []region.DataRate {
	out := make([]region.DataRate, len(rows))
	for i, r := range rows {
		if r[0] == 0 {
			out[i] = region.DataRate{BitRate: r[1] * 1000, MaxPayload: r[2]}
			continue
		}
		out[i] = region.DataRate{SpreadFactor: r[0], Bandwidth: region.Bandwidth(r[1] * 1000), MaxPayload: r[2]}
	}
	return out
}

// ShouldEmitTimesync reports whether 30s have passed since it last
// returned true, and if so records now as the last emission time.
func (s *Session) ShouldEmitTimesync(now time.Time) bool {
	if now.Sub(s.lastTXTimeSync) >= 30*time.Second {
		s.lastTXTimeSync = now
		return true
	}
	return false
}

func micAsInt32(mic [4]byte) int32 {
	return int32(mic[0]) | int32(mic[1])<<8 | int32(mic[2])<<16 | int32(mic[3])<<24
}

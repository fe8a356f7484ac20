package main

import (
	"github.com/rs/zerolog/log"

	"github.com/lorawan-station/station/internal/codec"
	"github.com/lorawan-station/station/internal/s2e"
	"github.com/lorawan-station/station/internal/status"
)

func encodeOutbound(v any) ([]byte, error) {
	return codec.Encode(v)
}

func handleInbound(session *s2e.Session, raw []byte, metrics *status.Metrics) {
	mt, v, err := codec.Decode(raw)
	if err != nil {
		log.Debug().Err(err).Msg("dropping unparseable inbound message")
		return
	}
	if mt == codec.MsgDnmsg {
		metrics.DownlinksTotal.Inc()
		metrics.QueueDepth.Set(float64(session.Queue.Len() + 1))
	}
	if err := session.Dispatch(mt, v); err != nil {
		log.Debug().Err(err).Str("msgtype", string(mt)).Msg("dispatch rejected")
	}
}

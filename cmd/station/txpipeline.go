package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lorawan-station/station/internal/codec"
	"github.com/lorawan-station/station/internal/hal"
	"github.com/lorawan-station/station/internal/s2e"
	"github.com/lorawan-station/station/internal/status"
	"github.com/lorawan-station/station/internal/transport"
	"github.com/lorawan-station/station/internal/txsched"
)

// txPollInterval is how often the TX pipeline checks the head of
// session.Queue for a job whose scheduled xtime has arrived.
const txPollInterval = 20 * time.Millisecond

// runTXPipeline drives spec.md §4.3's downlink path: pop the queue,
// admit the job (half-duplex/duty-cycle-or-LBT/dwell-time/power-clamp),
// hand it to the concentrator, and report the outcome back as dntxed.
// Without this loop session.Queue only ever grows; HandleDnmsg pushes
// to it but nothing ever pops.
func runTXPipeline(ctx context.Context, session *s2e.Session, concentrator hal.Concentrator, admission *txsched.Admission, antennaGainDBi float64, lnsClient *transport.Client, metrics *status.Metrics) {
	ticker := time.NewTicker(txPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job := session.Queue.Peek()
			if job == nil {
				continue
			}
			if job.XTime != 0 {
				if when, ok := session.TimeDom.WallClock(job.XTime); ok && when.After(time.Now()) {
					continue // not due yet, leave it at the head of the queue
				}
			}
			session.Queue.Pop()
			metrics.QueueDepth.Set(float64(session.Queue.Len()))
			go transmitJob(ctx, session, concentrator, admission, antennaGainDBi, job, lnsClient, metrics)
		}
	}
}

func transmitJob(ctx context.Context, session *s2e.Session, concentrator hal.Concentrator, admission *txsched.Admission, antennaGainDBi float64, job *txsched.Job, lnsClient *transport.Client, metrics *status.Metrics) {
	dntxed := &codec.Dntxed{
		MsgType: codec.MsgDntxed,
		Diid:    job.Diid,
		RCtx:    job.RCtx,
		XTime:   job.XTime,
	}
	copy(dntxed.DevEUI[:], job.DevEUI[:])

	if err := admission.Admit(ctx, session.Region, job, antennaGainDBi, concentrator, time.Now()); err != nil {
		log.Debug().Err(err).Int64("diid", job.Diid).Msg("downlink rejected by admission control")
		metrics.DutyCycleRejects.Inc()
		dntxed.Error = err.Error()
		sendDntxed(dntxed, lnsClient)
		return
	}

	txJob := hal.TXJob{
		Freq:    job.Freq,
		DR:      job.DR,
		Power:   job.Power,
		Payload: job.Payload,
		RFChain: job.RFChain,
		RCtx:    job.RCtx,
	}
	done, err := concentrator.Transmit(ctx, txJob)
	if err != nil {
		admission.Gate.Release(int64(job.RFChain), job.RCtx)
		dntxed.Error = err.Error()
		sendDntxed(dntxed, lnsClient)
		return
	}

	select {
	case <-ctx.Done():
		return
	case err := <-done:
		if err != nil {
			dntxed.Error = err.Error()
		} else {
			dntxed.TXTime = time.Now().UnixMicro()
		}
		sendDntxed(dntxed, lnsClient)
	}
}

func sendDntxed(d *codec.Dntxed, lnsClient *transport.Client) {
	if lnsClient == nil {
		return
	}
	b, err := codec.Encode(d)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode dntxed")
		return
	}
	lnsClient.SendJSON(b)
}

// runPPSLoop drives spec.md §4.2's time-domain reconciliation: every
// PPS edge the concentrator reports is checked against the wall clock,
// and sustained drift cancels the station's context, which shuts the
// whole process down; there is no narrower RAL-only restart. Without
// this loop OnPPS is never
// called and a drifting or lost PPS source goes unnoticed.
func runPPSLoop(ctx context.Context, concentrator hal.Concentrator, session *s2e.Session, driftBudget time.Duration, metrics *status.Metrics, cancel context.CancelFunc) {
	ticks := concentrator.PPS(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			faulted, shouldRestart := session.TimeDom.OnPPS(tick.Xticks, tick.Wall, driftBudget)
			if faulted {
				metrics.PPSFaults.Inc()
			}
			if shouldRestart {
				log.Error().Msg("PPS drift exceeded recovery budget, restarting station")
				cancel()
				return
			}
			if tick.GPSTime.IsZero() {
				continue
			}
			session.TimeDom.SetGPSFix(tick.GPSTime.Sub(tick.Wall))
		}
	}
}

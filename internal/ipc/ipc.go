// Package ipc implements the master/slave multi-process IPC channel
// for the concurrency extension described in spec.md §5: one master
// process owns the concentrator and HAL, and forwards RX jobs /
// accepts TX jobs from one or more slave processes, each running its
// own S2E session against a distinct LNS. Subjects are
// per-slave so a slave restart never sees another slave's backlog.
package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

func rxSubject(slaveID string) string       { return fmt.Sprintf("station.slave.%s.rx", slaveID) }
func txSubject(slaveID string) string       { return fmt.Sprintf("station.slave.%s.tx", slaveID) }
func timesyncSubject(slaveID string) string { return fmt.Sprintf("station.slave.%s.timesync", slaveID) }

// RXEnvelope is one RX job forwarded from master to a slave.
type RXEnvelope struct {
	Freq    uint32  `json:"freq"`
	DR      int     `json:"dr"`
	RSSI    float64 `json:"rssi"`
	SNR     float64 `json:"snr"`
	Payload []byte  `json:"payload"`
	Xticks  uint32  `json:"xticks"`
	RCtx    int64   `json:"rctx"`
}

// TXEnvelope is one TX job a slave asks the master to transmit.
type TXEnvelope struct {
	Freq    uint32 `json:"freq"`
	DR      int    `json:"dr"`
	Power   int    `json:"power"`
	Payload []byte `json:"payload"`
	Xticks  uint32 `json:"xticks"`
	RCtx    int64  `json:"rctx"`
}

// TimesyncEnvelope broadcasts the master's current time-domain state so
// slaves can tag xtime consistently with the master's session.
type TimesyncEnvelope struct {
	SessionID uint16 `json:"session_id"`
	Xticks    uint32 `json:"xticks"`
	UnixNano  int64  `json:"unix_nano"`
}

// Master publishes RX jobs and timesync updates to slaves, and
// subscribes for their TX requests.
type Master struct {
	nc      *nats.Conn
	slaveID string
}

// NewMaster connects to the NATS server used as the IPC fabric.
func NewMaster(natsURL string) (*Master, error) {
	nc, err := nats.Connect(natsURL, nats.Name("station-master"))
	if err != nil {
		return nil, errors.Wrap(err, "ipc: connect master")
	}
	return &Master{nc: nc}, nil
}

func (m *Master) PublishRX(slaveID string, job RXEnvelope) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return m.nc.Publish(rxSubject(slaveID), b)
}

func (m *Master) PublishTimesync(slaveID string, ts TimesyncEnvelope) error {
	b, err := json.Marshal(ts)
	if err != nil {
		return err
	}
	return m.nc.Publish(timesyncSubject(slaveID), b)
}

// SubscribeTX registers a handler for TX requests from one slave.
func (m *Master) SubscribeTX(slaveID string, handler func(TXEnvelope)) (*nats.Subscription, error) {
	return m.nc.Subscribe(txSubject(slaveID), func(msg *nats.Msg) {
		var env TXEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return
		}
		handler(env)
	})
}

func (m *Master) Close() { m.nc.Close() }

// Slave subscribes for RX jobs and timesync updates from the master,
// and publishes its own TX requests.
type Slave struct {
	nc      *nats.Conn
	slaveID string
}

// NewSlave connects to the IPC fabric under a stable slave id (used to
// derive this slave's dedicated subjects).
func NewSlave(natsURL, slaveID string) (*Slave, error) {
	nc, err := nats.Connect(natsURL, nats.Name("station-slave-"+slaveID))
	if err != nil {
		return nil, errors.Wrap(err, "ipc: connect slave")
	}
	return &Slave{nc: nc, slaveID: slaveID}, nil
}

func (s *Slave) SubscribeRX(handler func(RXEnvelope)) (*nats.Subscription, error) {
	return s.nc.Subscribe(rxSubject(s.slaveID), func(msg *nats.Msg) {
		var env RXEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return
		}
		handler(env)
	})
}

func (s *Slave) SubscribeTimesync(handler func(TimesyncEnvelope)) (*nats.Subscription, error) {
	return s.nc.Subscribe(timesyncSubject(s.slaveID), func(msg *nats.Msg) {
		var env TimesyncEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return
		}
		handler(env)
	})
}

func (s *Slave) PublishTX(job TXEnvelope) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.nc.Publish(txSubject(s.slaveID), b)
}

func (s *Slave) Close() { s.nc.Close() }

// WaitConnected blocks until the underlying NATS connection reports
// connected, or timeout elapses.
func WaitConnected(nc *nats.Conn, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if nc.IsConnected() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("ipc: not connected after %s", timeout)
}

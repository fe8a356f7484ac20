package hal

import (
	"context"
	"testing"
	"time"
)

func TestSimulatorConfigureAndStart(t *testing.T) {
	s := NewSimulator()
	s.UplinkInterval = 0 // disable synthetic uplinks, we inject manually
	if err := s.Configure([]ChannelConfig{
		{Enable: true, Freq: 868100000, SpreadFactorMin: 7, SpreadFactorMax: 12, RFChain: 0},
	}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rxCh, err := s.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rxCh == nil {
		t.Fatal("expected non-nil rx channel")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSimulatorInjectDeliversJob(t *testing.T) {
	s := NewSimulator()
	s.UplinkInterval = 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rxCh, err := s.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := RXJob{Freq: 868300000, DR: 5, RFChain: 1}
	s.Inject(want)
	select {
	case got := <-rxCh:
		if got.Freq != want.Freq || got.DR != want.DR || got.RFChain != want.RFChain {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for injected job")
	}
}

func TestSimulatorPPSTicks(t *testing.T) {
	s := NewSimulator()
	s.UplinkInterval = 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case tick := <-s.PPS(ctx):
		if tick.Wall.IsZero() {
			t.Error("expected non-zero wall time on PPS tick")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for PPS tick")
	}
}

func TestSimulatorTransmitCompletesAfterAirtime(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()
	done, err := s.Transmit(ctx, TXJob{DR: 10, Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected transmit error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transmit completion")
	}
}

func TestSimulatorTransmitCancelledByContext(t *testing.T) {
	s := NewSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Transmit(ctx, TXJob{DR: 0, Payload: make([]byte, 200)})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected context-cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancelled transmit")
	}
}

func TestSimulatorPickChannelSkipsDisabled(t *testing.T) {
	s := NewSimulator()
	s.channels = []ChannelConfig{
		{Enable: false, Freq: 868100000},
		{Enable: true, Freq: 868300000, RFChain: 2},
	}
	ch := s.pickChannel()
	if ch == nil {
		t.Fatal("expected a channel")
	}
	if !ch.Enable || ch.Freq != 868300000 {
		t.Errorf("expected the enabled channel, got %+v", ch)
	}
}

func TestSimulatorPickChannelNoneEnabled(t *testing.T) {
	s := NewSimulator()
	s.channels = []ChannelConfig{{Enable: false}}
	if ch := s.pickChannel(); ch != nil {
		t.Errorf("expected nil when no channels enabled, got %+v", ch)
	}
}

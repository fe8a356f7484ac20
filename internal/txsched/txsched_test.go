package txsched

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorawan-station/station/internal/region"
)

func TestQueueOrdersByPriorityThenXTime(t *testing.T) {
	q := NewQueue()
	q.Push(&Job{ID: uuid.New(), Priority: PriorityClassC, XTime: 100})
	q.Push(&Job{ID: uuid.New(), Priority: PriorityClassA, XTime: 500})
	q.Push(&Job{ID: uuid.New(), Priority: PriorityClassA, XTime: 200})

	first := q.Pop()
	if first.Priority != PriorityClassA || first.XTime != 200 {
		t.Fatalf("got priority=%d xtime=%d, want ClassA@200", first.Priority, first.XTime)
	}
	second := q.Pop()
	if second.XTime != 500 {
		t.Fatalf("expected second job at xtime 500, got %d", second.XTime)
	}
	third := q.Pop()
	if third.Priority != PriorityClassC {
		t.Fatalf("expected class C last, got %d", third.Priority)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	id := uuid.New()
	q.Push(&Job{ID: id, Priority: PriorityClassB, XTime: 1})
	if !q.Remove(id) {
		t.Fatal("expected Remove to find the job")
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got len=%d", q.Len())
	}
}

func TestHalfDuplexGateRejectsOverlap(t *testing.T) {
	g := NewHalfDuplexGate()
	now := time.Now()
	if !g.Reserve(0, 1, now, time.Second) {
		t.Fatal("expected first reservation to succeed")
	}
	if g.Reserve(0, 1, now.Add(500*time.Millisecond), time.Second) {
		t.Fatal("expected overlapping reservation on the same (rfchain,rctx) to fail")
	}
	if !g.Reserve(0, 2, now.Add(500*time.Millisecond), time.Second) {
		t.Fatal("expected reservation on a distinct rctx (dual-antenna) to succeed")
	}
}

func TestHalfDuplexGateReleaseFreesSlot(t *testing.T) {
	g := NewHalfDuplexGate()
	now := time.Now()
	g.Reserve(0, 1, now, time.Second)
	g.Release(0, 1)
	if !g.Reserve(0, 1, now.Add(10*time.Millisecond), time.Second) {
		t.Fatal("expected reservation to succeed after release")
	}
}

func TestDutyCycleLedgerAdmitsWithinBudget(t *testing.T) {
	d, _ := region.Get("EU868")
	l := NewDutyCycleLedger(time.Hour)
	now := time.Now()
	if err := l.Admit(d, 868500000, 50*time.Millisecond, now); err != nil {
		t.Fatalf("expected first transmission to be admitted: %v", err)
	}
}

func TestDutyCycleLedgerRejectsOverBudget(t *testing.T) {
	d, _ := region.Get("EU868")
	l := NewDutyCycleLedger(time.Hour)
	now := time.Now()
	// g1 band limit is 1%; book nearly the whole budget up front.
	l.Record("g1", now, 35*time.Second)
	if err := l.Admit(d, 868500000, time.Second, now); err == nil {
		t.Fatal("expected admission to fail once the duty-cycle budget is exhausted")
	}
}

func TestDutyCycleLedgerIgnoresUS915(t *testing.T) {
	d, _ := region.Get("US915")
	l := NewDutyCycleLedger(time.Hour)
	if err := l.Admit(d, 902300000, 10*time.Second, time.Now()); err != nil {
		t.Fatalf("US915 has no duty-cycle bands, admission should never fail: %v", err)
	}
}

func TestAirtimeIncreasesWithPayload(t *testing.T) {
	dr := region.DataRate{SpreadFactor: 7, Bandwidth: region.BW125}
	small := Airtime(dr, 10, 1, false, true)
	large := Airtime(dr, 200, 1, false, true)
	if large <= small {
		t.Errorf("expected larger payload to take longer: %v vs %v", small, large)
	}
}

func TestAirtimeFSK(t *testing.T) {
	dr := region.DataRate{BitRate: 50000}
	d := Airtime(dr, 20, 1, false, true)
	if d <= 0 {
		t.Error("expected positive airtime for FSK")
	}
}

type fakeScanner struct {
	rssi map[uint32]float64
}

func (f fakeScanner) ScanChannel(ctx context.Context, freq uint32, scanTime time.Duration) (float64, error) {
	return f.rssi[freq], nil
}

func TestAdmissionRejectsBusyLBTChannel(t *testing.T) {
	d, _ := region.Get("AS923")
	a := NewAdmission(time.Hour)
	job := &Job{Freq: 923200000, DR: 5, Payload: make([]byte, 10)}
	scanner := fakeScanner{rssi: map[uint32]float64{923200000: -50}} // above RSSITarget -80: busy
	if err := a.Admit(context.Background(), d, job, 0, scanner, time.Now()); err == nil {
		t.Fatal("expected LBT admission to reject a busy channel")
	}
}

func TestAdmissionAllowsClearLBTChannel(t *testing.T) {
	d, _ := region.Get("AS923")
	a := NewAdmission(time.Hour)
	job := &Job{Freq: 923200000, DR: 5, Payload: make([]byte, 10)}
	scanner := fakeScanner{rssi: map[uint32]float64{923200000: -95}} // below RSSITarget -80: clear
	if err := a.Admit(context.Background(), d, job, 0, scanner, time.Now()); err != nil {
		t.Fatalf("expected LBT admission to allow a clear channel: %v", err)
	}
}

func TestAdmissionRejectsDwellTimeOverrun(t *testing.T) {
	d, _ := region.Get("AS923")
	a := NewAdmission(time.Hour)
	// DR0 (SF12/BW125) preamble alone already exceeds the 400ms dwell cap.
	job := &Job{Freq: 923200000, DR: 0, Payload: make([]byte, 40)}
	scanner := fakeScanner{rssi: map[uint32]float64{923200000: -95}}
	if err := a.Admit(context.Background(), d, job, 0, scanner, time.Now()); err == nil {
		t.Fatal("expected admission to reject a transmission exceeding the region's dwell-time limit")
	}
}

func TestAdmissionClampsPowerToMaxEIRP(t *testing.T) {
	d, _ := region.Get("EU868")
	a := NewAdmission(time.Hour)
	job := &Job{Freq: 868500000, DR: 5, Payload: make([]byte, 5), Power: 27}
	if err := a.Admit(context.Background(), d, job, 2, nil, time.Now()); err != nil {
		t.Fatalf("expected admission to succeed: %v", err)
	}
	if job.Power > d.MaxEIRPdBm-2 {
		t.Errorf("expected power clamped for antenna gain, got %d", job.Power)
	}
}

func TestAdmissionReservesHalfDuplexGate(t *testing.T) {
	d, _ := region.Get("EU868")
	a := NewAdmission(time.Hour)
	now := time.Now()
	job1 := &Job{Freq: 868500000, DR: 5, Payload: make([]byte, 5), RCtx: 1}
	if err := a.Admit(context.Background(), d, job1, 0, nil, now); err != nil {
		t.Fatalf("expected first admission to succeed: %v", err)
	}
	job2 := &Job{Freq: 868300000, DR: 5, Payload: make([]byte, 5), RCtx: 1}
	if err := a.Admit(context.Background(), d, job2, 0, nil, now); err == nil {
		t.Fatal("expected second admission on the same rctx to be rejected by the half-duplex gate")
	}
}

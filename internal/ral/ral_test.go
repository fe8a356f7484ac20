package ral

import (
	"testing"
	"time"

	"github.com/lorawan-station/station/internal/region"
	"github.com/rs/zerolog"
)

func TestAllocateChannelsEU868(t *testing.T) {
	d, _ := region.Get("EU868")
	rf0, rf1 := DefaultFrontEnds(d)
	chans, err := AllocateChannels(d, rf0, rf1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(chans) != len(d.DefaultChannels) {
		t.Fatalf("got %d channels, want %d", len(chans), len(d.DefaultChannels))
	}
	for _, c := range chans {
		if !c.Enable {
			t.Error("expected all allocated channels enabled")
		}
	}
}

func TestAllocateChannelsUS915FastLoRaFirstSlot(t *testing.T) {
	d, _ := region.Get("US915")
	rf0, rf1 := rfFrontEnd{CenterFreq: 902700000, HalfWidth: 2000000},
		rfFrontEnd{CenterFreq: 927700000, HalfWidth: 2000000}
	chans, err := AllocateChannels(d, rf0, rf1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if chans[0].Bandwidth != uint32(region.BW500) {
		t.Errorf("expected first IF slot to carry the fast-LoRa 500kHz channel, got bandwidth %d", chans[0].Bandwidth)
	}
	if chans[0].SpreadFactorMin != 4 {
		t.Errorf("expected first slot DR to be the US915 500kHz DR4 channel, got %d", chans[0].SpreadFactorMin)
	}
}

func TestAllocateChannelsEU868FSKLastSlot(t *testing.T) {
	d, _ := region.Get("EU868")
	rf0, rf1 := DefaultFrontEnds(d)
	chans, err := AllocateChannels(d, rf0, rf1, 8)
	if err != nil {
		t.Fatal(err)
	}
	last := chans[len(chans)-1]
	if last.Bandwidth != uint32(region.BW125) || last.SpreadFactorMin != 7 {
		t.Errorf("expected last slot to be the FSK DR7 channel, got %+v", last)
	}
}

func TestAllocateChannelsCapsAtIFChains(t *testing.T) {
	d, _ := region.Get("US915")
	rf0, rf1 := rfFrontEnd{CenterFreq: 902700000, HalfWidth: 2000000},
		rfFrontEnd{CenterFreq: 927700000, HalfWidth: 2000000}
	chans, err := AllocateChannels(d, rf0, rf1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(chans) != 8 {
		t.Fatalf("got %d channels, want 8 (capped)", len(chans))
	}
}

func TestTimeDomainExtendMonotone(t *testing.T) {
	td := NewTimeDomain(zerolog.Nop())
	x1 := td.Extend(100)
	x2 := td.Extend(200)
	if x2 <= x1 {
		t.Errorf("expected monotone xtime, got %d then %d", x1, x2)
	}
}

func TestTimeDomainWrapAround(t *testing.T) {
	td := NewTimeDomain(zerolog.Nop())
	td.Extend(0xFFFFFFF0)
	wrapped := td.Extend(10) // counter wrapped past 2^32
	if !td.SameSession(wrapped) {
		t.Error("wrapped xtime should still belong to current session")
	}
}

func TestSessionTagRejectsStaleXtime(t *testing.T) {
	td1 := NewTimeDomain(zerolog.Nop())
	x := td1.Extend(42)
	td2 := NewTimeDomain(zerolog.Nop())
	if td2.SameSession(x) {
		t.Error("a fresh RAL session must not recognize the old session's xtime as current")
	}
}

func TestWallClockRoundTripsExtend(t *testing.T) {
	td := NewTimeDomain(zerolog.Nop())
	x := td.Extend(5_000_000) // 5s of ticks at 1MHz
	when, ok := td.WallClock(x)
	if !ok {
		t.Fatal("expected WallClock to resolve an xtime from the current session")
	}
	if d := when.Sub(td.utcAtZero); d < 4*time.Second || d > 6*time.Second {
		t.Errorf("expected wall clock roughly 5s after session start, got %s", d)
	}
}

func TestWallClockRejectsStaleSession(t *testing.T) {
	td1 := NewTimeDomain(zerolog.Nop())
	x := td1.Extend(100)
	td2 := NewTimeDomain(zerolog.Nop())
	if _, ok := td2.WallClock(x); ok {
		t.Error("expected WallClock to reject an xtime from a different RAL session")
	}
}

func TestOnPPSDriftTriggersRestartAfterQuickRetries(t *testing.T) {
	td := NewTimeDomain(zerolog.Nop())
	budget := time.Millisecond
	var restart bool
	for i := 0; i < 6; i++ {
		// wall clock increasingly diverges from the ticks-implied time
		_, restart = td.OnPPS(uint32(i), td.utcAtZero.Add(time.Duration(i+1)*time.Second), budget)
	}
	if !restart {
		t.Error("expected restart to be signalled after maxQuickRetries consecutive faults")
	}
}

package live

import (
	"testing"
	"time"

	"github.com/najahiiii/lunetctl/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func every(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

func TestRateWithCounterReset(t *testing.T) {
	r := NewRateTracker(every(5 * time.Second))

	first := r.Observe(model.LiveSample{TS: 0, InboundTotal: 100, UsersTotal: 100})
	if first.InboundRate != 0 || first.UsersRate != 0 {
		t.Fatalf("first sample rates = %v/%v", first.InboundRate, first.UsersRate)
	}

	p := r.Observe(model.LiveSample{TS: 5, InboundTotal: 150, UsersTotal: 150})
	if p.InboundRate != 10 || p.UsersRate != 10 {
		t.Fatalf("rate = %v/%v, want 10", p.InboundRate, p.UsersRate)
	}

	p = r.Observe(model.LiveSample{TS: 10, InboundTotal: 20, UsersTotal: 20})
	if p.InboundRate != 4 || p.UsersRate != 4 {
		t.Fatalf("reset rate = %v/%v, want 4", p.InboundRate, p.UsersRate)
	}
}

func TestRateUnavailableCarriesForward(t *testing.T) {
	r := NewRateTracker(every(2 * time.Second))
	r.Observe(model.LiveSample{TS: 100, InboundTotal: 1000, UsersTotal: 500})

	p := r.Observe(model.LiveSample{
		TS:                    102,
		InboundTotal:          0,
		UsersTotal:            700,
		InboundStatsAvailable: boolPtr(false),
		UsersStatsAvailable:   boolPtr(true),
	})
	if p.InboundRate != 0 || p.InboundAvailable {
		t.Fatalf("unavailable inbound = %+v", p)
	}
	if p.UsersRate != 100 {
		t.Fatalf("users rate = %v", p.UsersRate)
	}

	// The inbound baseline stayed at 1000, so the next reading is not a reset.
	p = r.Observe(model.LiveSample{TS: 104, InboundTotal: 1400, UsersTotal: 700})
	if p.InboundRate != 200 {
		t.Fatalf("inbound rate after gap = %v", p.InboundRate)
	}
}

func TestRateFallbackInterval(t *testing.T) {
	r := NewRateTracker(every(4 * time.Second))
	r.Observe(model.LiveSample{TS: 50, InboundTotal: 0})

	// Same timestamp: the poll interval stands in for elapsed time.
	p := r.Observe(model.LiveSample{TS: 50, InboundTotal: 400})
	if p.InboundRate != 100 {
		t.Fatalf("fallback rate = %v", p.InboundRate)
	}

	r = NewRateTracker(nil)
	r.Observe(model.LiveSample{TS: 9, InboundTotal: 0})
	p = r.Observe(model.LiveSample{TS: 3, InboundTotal: 7})
	if p.InboundRate != 7 {
		t.Fatalf("floor 1s fallback rate = %v", p.InboundRate)
	}
}

func TestRateFallbackFollowsInterval(t *testing.T) {
	interval := 2 * time.Second
	r := NewRateTracker(func() time.Duration { return interval })
	r.Observe(model.LiveSample{TS: 7, InboundTotal: 0})

	interval = 10 * time.Second
	p := r.Observe(model.LiveSample{TS: 7, InboundTotal: 500})
	if p.InboundRate != 50 {
		t.Fatalf("rate after interval change = %v, want 50", p.InboundRate)
	}
}

func TestRateNeverNegative(t *testing.T) {
	r := NewRateTracker(every(time.Second))
	totals := []int64{500, 10, 9, 9, 1 << 40, 3}
	for i, total := range totals {
		p := r.Observe(model.LiveSample{TS: int64(i), InboundTotal: total, UsersTotal: total})
		if p.InboundRate < 0 || p.UsersRate < 0 {
			t.Fatalf("negative rate at %d: %+v", i, p)
		}
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := NewWindow[int](30)
	for i := 0; i < 31; i++ {
		w.Push(i)
	}
	items := w.Items()
	if len(items) != 30 || items[0] != 1 || items[29] != 30 {
		t.Fatalf("window = len %d first %d last %d", len(items), items[0], items[len(items)-1])
	}
}

func TestWindowSetMaxClampsAndTruncates(t *testing.T) {
	w := NewWindow[int](1000)
	if w.Max() != MaxWindow {
		t.Fatalf("max = %d", w.Max())
	}
	for i := 0; i < 100; i++ {
		w.Push(i)
	}
	w.SetMax(5)
	if w.Max() != MinWindow || w.Len() != MinWindow {
		t.Fatalf("after SetMax(5): max %d len %d", w.Max(), w.Len())
	}
	if got := w.Items()[0]; got != 70 {
		t.Fatalf("oldest kept = %d", got)
	}
}

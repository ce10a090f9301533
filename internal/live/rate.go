package live

import (
	"time"

	"github.com/najahiiii/lunetctl/internal/model"
)

// Point is one processed sample ready for charting.
type Point struct {
	TS               int64
	CPUPercent       float64
	MemPercent       float64
	ActiveKeys       int
	OnlineNow        int
	InboundRate      float64
	UsersRate        float64
	InboundAvailable bool
	UsersAvailable   bool
}

type counter struct {
	value int64
	seen  bool
}

// observe returns the byte delta for a counter that reports total. A smaller
// total than before means the counter was reset, so the new total is the delta.
func (c *counter) observe(total int64) int64 {
	if !c.seen {
		c.value, c.seen = total, true
		return 0
	}
	delta := total
	if total >= c.value {
		delta = total - c.value
	}
	c.value = total
	return delta
}

// RateTracker turns cumulative traffic counters into per-second rates.
// It is not safe for concurrent use; each graphs loop owns one.
type RateTracker struct {
	interval func() time.Duration

	prevTS  int64
	hasPrev bool
	inbound counter
	users   counter
}

// NewRateTracker uses the current poll interval as the elapsed time whenever
// the sample timestamps cannot provide one. interval is read on every sample.
func NewRateTracker(interval func() time.Duration) *RateTracker {
	return &RateTracker{interval: interval}
}

func (r *RateTracker) deltaSec(ts int64) float64 {
	if r.hasPrev && ts > r.prevTS {
		return float64(max(1, ts-r.prevTS))
	}
	var fallback time.Duration
	if r.interval != nil {
		fallback = r.interval()
	}
	return max(1, fallback.Seconds())
}

func (r *RateTracker) Observe(s model.LiveSample) Point {
	dt := r.deltaSec(s.TS)
	p := Point{
		TS:               s.TS,
		CPUPercent:       s.CPUPercent,
		MemPercent:       s.MemPercent,
		ActiveKeys:       s.ActiveKeys,
		OnlineNow:        s.OnlineNow,
		InboundAvailable: s.InboundAvailable(),
		UsersAvailable:   s.UsersAvailable(),
	}
	if p.InboundAvailable {
		p.InboundRate = float64(r.inbound.observe(s.InboundTotal)) / dt
	}
	if p.UsersAvailable {
		p.UsersRate = float64(r.users.observe(s.UsersTotal)) / dt
	}
	r.prevTS, r.hasPrev = s.TS, true
	return p
}

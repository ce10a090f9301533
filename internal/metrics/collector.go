package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/najahiiii/lunetctl/internal/model"
)

// Collector samples the machine lunetctl runs on. When that is the panel host
// the numbers line up with the panel's own cpu/mem gauges.
type Collector struct {
	log *slog.Logger

	mu      sync.Mutex
	lastNet *net.IOCountersStat
	lastAt  time.Time
}

func New(log *slog.Logger) *Collector {
	return &Collector{log: log}
}

// Sample returns nil when nothing could be read. Bandwidth needs a previous
// sample, so it is absent on the first call.
func (c *Collector) Sample(ctx context.Context) *model.HostSample {
	sample := &model.HostSample{SampledAt: time.Now().UTC()}
	var hasData bool

	if cpuPct, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err != nil {
		c.log.Debug("host cpu sample failed", "err", err)
	} else if len(cpuPct) > 0 {
		sample.CPUPercent = floatPtr(cpuPct[0])
		hasData = true
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		c.log.Debug("host memory sample failed", "err", err)
	} else if vm != nil {
		sample.MemoryPercent = floatPtr(vm.UsedPercent)
		hasData = true
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		c.log.Debug("host load sample failed", "err", err)
	} else if avg != nil {
		sample.Load1, sample.Load5, sample.Load15 = floatPtr(avg.Load1), floatPtr(avg.Load5), floatPtr(avg.Load15)
		hasData = true
	}

	if up, down, ok := c.netThroughput(ctx); ok {
		sample.BandwidthUpMbps = floatPtr(up)
		sample.BandwidthDownMbps = floatPtr(down)
		hasData = true
	}

	if !hasData {
		return nil
	}
	return sample
}

func (c *Collector) netThroughput(ctx context.Context) (float64, float64, bool) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		if err != nil {
			c.log.Debug("host net sample failed", "err", err)
		}
		return 0, 0, false
	}
	return c.observeNet(counters[0], time.Now())
}

func (c *Collector) observeNet(total net.IOCountersStat, now time.Time) (float64, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastNet == nil {
		c.lastNet = &net.IOCountersStat{}
		*c.lastNet = total
		c.lastAt = now
		return 0, 0, false
	}

	elapsed := now.Sub(c.lastAt).Seconds()
	if elapsed <= 0 {
		*c.lastNet = total
		c.lastAt = now
		return 0, 0, false
	}

	upDelta := diffUint64(total.BytesSent, c.lastNet.BytesSent)
	downDelta := diffUint64(total.BytesRecv, c.lastNet.BytesRecv)

	*c.lastNet = total
	c.lastAt = now

	return bytesToMbps(upDelta, elapsed), bytesToMbps(downDelta, elapsed), true
}

func diffUint64(curr, prev uint64) uint64 {
	if curr >= prev {
		return curr - prev
	}
	return 0
}

func bytesToMbps(delta uint64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return (float64(delta) * 8) / (seconds * 1_000_000)
}

func floatPtr(value float64) *float64 {
	v := value
	return &v
}

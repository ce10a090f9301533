package views

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/najahiiii/lunetctl/internal/clients"
	"github.com/najahiiii/lunetctl/internal/model"
)

type HostSampler interface {
	Sample(ctx context.Context) *model.HostSample
}

type XrayStats interface {
	SysStats(ctx context.Context) (*model.XraySysStats, error)
	InboundTraffic(ctx context.Context, tag string) (*model.InboundTraffic, error)
}

// ProbeResult is one direct reading of the local host and the xray stats
// service. XrayErr is set when xray could not be queried.
type ProbeResult struct {
	Addr    string
	Tag     string
	Host    *model.HostSample
	Sys     *model.XraySysStats
	Inbound *model.InboundTraffic
	XrayErr error
}

// Prober reads host load and xray runtime stats without going through the
// panel. The host sampler keeps network counters between calls, so a watched
// probe shows bandwidth from the second frame on.
type Prober struct {
	env  Env
	host HostSampler
	xray XrayStats
	addr string
	tag  string
}

func NewProber(env Env, host HostSampler, xray XrayStats, addr, tag string) *Prober {
	return &Prober{env: env, host: host, xray: xray, addr: addr, tag: tag}
}

func (p *Prober) Collect(ctx context.Context) ProbeResult {
	res := ProbeResult{Addr: p.addr, Tag: p.tag}
	if p.host != nil {
		res.Host = p.host.Sample(ctx)
	}
	if p.xray == nil {
		return res
	}
	sys, err := p.xray.SysStats(ctx)
	if err != nil {
		p.env.log().Debug("xray sys stats", "addr", p.addr, "err", err)
		res.XrayErr = err
		return res
	}
	res.Sys = sys
	if p.tag != "" {
		in, err := p.xray.InboundTraffic(ctx, p.tag)
		if err != nil {
			p.env.log().Debug("xray inbound traffic", "tag", p.tag, "err", err)
			res.XrayErr = err
			return res
		}
		res.Inbound = in
	}
	return res
}

// Tick collects and renders one frame. An unreachable xray is shown, not returned.
func (p *Prober) Tick(ctx context.Context) error {
	res := p.Collect(ctx)
	f := p.env.newFrame()
	p.draw(f, res)
	return p.env.flush(f)
}

func (p *Prober) draw(f *frame, r ProbeResult) {
	tr := p.env.tr()
	f.title(tr.T("probe.title", "Direct Xray Probe"))
	f.blank()

	f.title(tr.T("probe.host", "Local host"))
	if h := r.Host; h != nil {
		f.kv(
			[2]string{tr.T("panel.cpu", "CPU"), optPercent(h.CPUPercent)},
			[2]string{tr.T("panel.memory", "Memory"), optPercent(h.MemoryPercent)},
			[2]string{tr.T("probe.load", "Load average"), fmt.Sprintf("%s %s %s", optFloat(h.Load1), optFloat(h.Load5), optFloat(h.Load15))},
			[2]string{tr.T("probe.bandwidth", "Bandwidth up/down"), optMbps(h.BandwidthUpMbps) + " / " + optMbps(h.BandwidthDownMbps)},
		)
	} else {
		f.muted("  " + tr.T("common.unknown", "unknown"))
	}
	f.blank()

	f.title(tr.T("probe.xray", "Xray gRPC") + " " + orDash(r.Addr))
	if r.XrayErr != nil || r.Sys == nil {
		f.line("  %s", f.p.Paint(f.p.Err, tr.T("probe.unreachable", "Xray API is not reachable from this host.")))
		return
	}
	s := r.Sys
	f.kv(
		[2]string{tr.T("probe.uptime", "Uptime"), (time.Duration(s.Uptime) * time.Second).String()},
		[2]string{tr.T("probe.goroutines", "Goroutines"), strconv.FormatUint(uint64(s.NumGoroutine), 10)},
		[2]string{tr.T("probe.memory", "Memory"), clients.FormatBytes(int64(s.Alloc)) + " / " + clients.FormatBytes(int64(s.Sys))},
		[2]string{"GC", strconv.FormatUint(uint64(s.NumGC), 10)},
	)
	f.blank()
	f.title(tr.T("probe.inbound", "Inbound traffic") + " " + orDash(r.Tag))
	if r.Inbound == nil {
		f.muted("  " + tr.T("probe.no_tag", "No inbound tag known. Pass --tag."))
		return
	}
	f.kv(
		[2]string{"uplink", clients.FormatBytes(r.Inbound.Uplink)},
		[2]string{"downlink", clients.FormatBytes(r.Inbound.Downlink)},
	)
}

func optPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return percent(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func optMbps(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f Mbps", *v)
}

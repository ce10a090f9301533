package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/chart"
	"github.com/najahiiii/lunetctl/internal/clients"
	"github.com/najahiiii/lunetctl/internal/live"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

const (
	DefaultChartWidth  = 72
	DefaultChartHeight = 10
)

type GraphsAPI interface {
	GraphsLive(ctx context.Context) (*model.LiveSample, error)
}

// GraphsState is what one graphs frame is drawn from.
type GraphsState struct {
	Server     []live.Point
	Xray       []live.Point
	Last       *live.Point
	Status     string
	StatusKind ui.Kind
}

// Graphs polls live samples into two windows: the server chart (cpu, mem)
// and the xray chart (traffic rates, keys, online).
type Graphs struct {
	env Env
	api GraphsAPI

	Width  int
	Height int

	mu      sync.Mutex
	tracker *live.RateTracker
	server  *live.Window[live.Point]
	xray    *live.Window[live.Point]
	last    *live.Point
	status  string
	kind    ui.Kind
}

func NewGraphs(env Env, api GraphsAPI) *Graphs {
	p := env.prefs()
	g := &Graphs{
		env:    env,
		api:    api,
		Width:  DefaultChartWidth,
		Height: DefaultChartHeight,
		server: live.NewWindow[live.Point](p.Points()),
		xray:   live.NewWindow[live.Point](p.Points()),
	}
	g.tracker = live.NewRateTracker(g.Interval)
	return g
}

// Interval is the poll period from graphs_refresh_sec.
func (g *Graphs) Interval() time.Duration {
	return seconds(g.env.prefs().GraphsRefresh())
}

// Poll fetches one sample and renders. A failed fetch keeps the windows as
// they are and shows the failure in the status line.
func (g *Graphs) Poll(ctx context.Context) error {
	sample, err := g.api.GraphsLive(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return err
		}
		tr := g.env.tr()
		msg := tr.HumanErr(err, tr.T("graphs.live_unavailable", "Live data is unavailable now."))
		g.mu.Lock()
		g.status, g.kind = msg, ui.Err
		g.mu.Unlock()
		g.env.toast(ui.Err, msg)
		if rerr := g.Render(); rerr != nil {
			return rerr
		}
		return fmt.Errorf("graphs live: %w", err)
	}

	points := g.env.prefs().Points()
	g.mu.Lock()
	g.server.SetMax(points)
	g.xray.SetMax(points)
	pt := g.tracker.Observe(*sample)
	g.server.Push(pt)
	g.xray.Push(pt)
	g.last = &pt
	g.status, g.kind = "", ui.OK
	g.mu.Unlock()
	return g.Render()
}

func (g *Graphs) State() GraphsState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := GraphsState{
		Server:     g.server.Items(),
		Xray:       g.xray.Items(),
		Status:     g.status,
		StatusKind: g.kind,
	}
	if g.last != nil {
		last := *g.last
		st.Last = &last
	}
	return st
}

// Render draws both charts and the status line. A language change only
// alters the status line and labels, so it re-renders from the held windows.
func (g *Graphs) Render() error {
	st := g.State()
	f := g.env.newFrame()
	g.draw(f, st)
	return g.env.flush(f)
}

func (g *Graphs) draw(f *frame, st GraphsState) {
	tr := g.env.tr()
	lw := g.env.prefs().LineWidth()
	colors := chart.Colors{Grid: f.p.Muted, Reset: f.p.Reset}

	f.title(tr.T("graphs.title", "Live Graphs"))
	switch {
	case st.Status != "":
		f.line("%s", f.p.Paint(f.p.Err, st.Status))
	case st.Last != nil:
		f.line("%s", f.p.Paint(f.p.OK, tr.F("graphs.live_status", "Live • Keys {keys} • Online {online} • CPU {cpu}%",
			"keys", st.Last.ActiveKeys,
			"online", st.Last.OnlineNow,
			"cpu", fmt.Sprintf("%.1f", st.Last.CPUPercent),
		)))
	}
	f.blank()

	cpu := seriesOf(st.Server, func(p live.Point) float64 { return p.CPUPercent })
	mem := seriesOf(st.Server, func(p live.Point) float64 { return p.MemPercent })
	f.title(tr.T("graphs.server_metrics", "Server Metrics"))
	f.line("%s  %s", legend(f, "cpu", tr.T("graphs.cpu_percent", "CPU %"), lastValue(cpu, "%.1f")),
		legend(f, "mem", tr.T("graphs.memory_percent", "Memory %"), lastValue(mem, "%.1f")))
	_ = chart.Render(&f.b, g.Width, g.Height, lw, colors,
		chart.Series{Name: "cpu", Color: f.p.Color("cpu"), Values: cpu, Max: 100},
		chart.Series{Name: "mem", Color: f.p.Color("mem"), Values: mem, Max: 100},
	)
	f.blank()

	inbound := seriesOf(st.Xray, func(p live.Point) float64 { return p.InboundRate })
	users := seriesOf(st.Xray, func(p live.Point) float64 { return p.UsersRate })
	keys := seriesOf(st.Xray, func(p live.Point) float64 { return float64(p.ActiveKeys) })
	online := seriesOf(st.Xray, func(p live.Point) float64 { return float64(p.OnlineNow) })
	trafficMax := chart.WindowMax(inbound, users)
	usersMax := chart.WindowMax(keys, online)

	f.title(tr.T("graphs.xray_metrics", "Xray Metrics"))
	f.line("%s  %s", legend(f, "inbound", tr.T("graphs.inbound_traffic", "Inbound traffic"), lastRate(inbound)),
		legend(f, "users", tr.T("graphs.users_traffic", "Users traffic"), lastRate(users)))
	f.line("%s  %s", legend(f, "keys", tr.T("graphs.active_keys", "Active keys"), lastValue(keys, "%.0f")),
		legend(f, "online", tr.T("graphs.online_users", "Online users"), lastValue(online, "%.0f")))
	_ = chart.Render(&f.b, g.Width, g.Height, lw, colors,
		chart.Series{Name: "inbound", Color: f.p.Color("inbound"), Values: inbound, Max: trafficMax},
		chart.Series{Name: "users", Color: f.p.Color("users"), Values: users, Max: trafficMax},
		chart.Series{Name: "keys", Color: f.p.Color("keys"), Values: keys, Max: usersMax},
		chart.Series{Name: "online", Color: f.p.Color("online"), Values: online, Max: usersMax},
	)
}

func seriesOf(points []live.Point, fn func(live.Point) float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = fn(p)
	}
	return out
}

func legend(f *frame, series, label, value string) string {
	return f.p.Paint(f.p.Color(series), "●") + " " + label + " " + value
}

func lastValue(values []float64, format string) string {
	if len(values) == 0 {
		return "-"
	}
	return fmt.Sprintf(format, values[len(values)-1])
}

func lastRate(values []float64) string {
	if len(values) == 0 {
		return "-"
	}
	return clients.FormatBytes(int64(values[len(values)-1])) + "/s"
}

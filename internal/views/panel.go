package views

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/appearance"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/prefs"
	"github.com/najahiiii/lunetctl/internal/ui"
)

const gaugeWidth = 20

type PanelAPI interface {
	PanelSettings(ctx context.Context) (*model.XraySettings, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

type PanelState struct {
	Settings  *model.XraySettings
	Dashboard *model.Dashboard
}

// Panel shows the stored preferences, the service status rows and the
// cpu/mem/online gauges.
type Panel struct {
	env    Env
	api    PanelAPI
	secure bool

	mu    sync.Mutex
	state PanelState
}

// NewPanel takes secure=false when the panel is reached over plain HTTP,
// which adds the security warning to every render.
func NewPanel(env Env, api PanelAPI, secure bool) *Panel {
	return &Panel{env: env, api: api, secure: secure}
}

func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoadStatus fetches settings and dashboard together; both must succeed.
func (p *Panel) LoadStatus(ctx context.Context) error {
	s, err := p.api.PanelSettings(ctx)
	if err == nil {
		var d *model.Dashboard
		if d, err = p.api.Dashboard(ctx); err == nil {
			p.mu.Lock()
			p.state = PanelState{Settings: s, Dashboard: d}
			p.mu.Unlock()
			return nil
		}
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	tr := p.env.tr()
	p.env.toast(ui.Err, tr.HumanErr(err, tr.T("panel.status_load_failed", "Cannot load panel status")))
	return fmt.Errorf("panel status: %w", err)
}

// Set applies strict key=value pairs. Nothing is stored if any pair is bad.
func (p *Panel) Set(pairs []string) (ui.Status, error) {
	rec := prefs.Record{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return ui.Status{}, fmt.Errorf("%q: expected key=value", pair)
		}
		v, err := prefs.Parse(strings.TrimSpace(key), raw)
		if err != nil {
			return ui.Status{}, err
		}
		rec[strings.TrimSpace(key)] = v
	}
	return p.store(rec)
}

// SaveForm stores a whole settings form with the form's lenient rules: bad
// numbers fall back to defaults, out-of-range numbers are clamped.
func (p *Panel) SaveForm(input map[string]string) (ui.Status, error) {
	return p.store(prefs.Normalize(input))
}

func (p *Panel) store(rec prefs.Record) (ui.Status, error) {
	if p.env.Prefs == nil {
		return ui.Status{}, errors.New("no preference store")
	}
	if _, err := p.env.Prefs.Set(rec); err != nil {
		return ui.Status{}, err
	}
	tr := p.env.tr()
	return ui.Status{Kind: ui.OK, Message: tr.T("panel.saved_hint", "Settings saved. Reload dashboard/graphs to fully apply intervals.")}, nil
}

// FormValues returns the stored preferences as form text, keyed like the schema.
func FormValues(pr prefs.Prefs) map[string]string {
	out := map[string]string{}
	for k, v := range pr.Record() {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Gauge clamps v to [0,100].
func Gauge(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func gaugeBar(f *frame, v float64) string {
	v = Gauge(v)
	filled := int(math.Round(v / 100 * gaugeWidth))
	bar := strings.Repeat("█", filled) + f.p.Paint(f.p.Muted, strings.Repeat("░", gaugeWidth-filled))
	return fmt.Sprintf("%s %5.1f%%", bar, v)
}

// RenderPrefs prints the preference table without touching the network.
func (p *Panel) RenderPrefs() error {
	f := p.env.newFrame()
	p.drawWarning(f)
	p.drawPrefs(f)
	return p.env.flush(f)
}

// Render prints preferences plus status; status is omitted until loaded.
func (p *Panel) Render() error {
	f := p.env.newFrame()
	p.drawWarning(f)
	p.drawPrefs(f)
	if st := p.State(); st.Settings != nil && st.Dashboard != nil {
		f.blank()
		p.drawStatus(f, st)
	}
	return p.env.flush(f)
}

// RenderStatus prints only the service status and gauges.
func (p *Panel) RenderStatus() error {
	st := p.State()
	if st.Settings == nil || st.Dashboard == nil {
		return nil
	}
	f := p.env.newFrame()
	p.drawWarning(f)
	p.drawStatus(f, st)
	return p.env.flush(f)
}

func (p *Panel) drawWarning(f *frame) {
	if p.secure {
		return
	}
	tr := p.env.tr()
	f.line("%s", f.p.Paint(f.p.Warn, tr.T("panel.security_title", "Security Warning")+": "+tr.T("panel.security_text", "Connection is not encrypted. Use HTTPS before entering sensitive data.")))
	f.blank()
}

func (p *Panel) drawPrefs(f *frame) {
	tr := p.env.tr()
	pr := p.env.prefs()
	theme := tr.T("common.theme_dark", "Dark theme")
	if p.env.Look != nil && p.env.Look.Theme() == appearance.Light {
		theme = tr.T("common.theme_light", "Light theme")
	}

	f.title(tr.T("panel.title", "Panel Settings"))
	f.muted(tr.T("panel.appearance", "Appearance"))
	f.kv(
		[2]string{tr.T("panel.theme_mode", "Theme mode"), theme},
		[2]string{"lang", string(tr.Lang())},
		[2]string{tr.T("panel.compact_mode", "Compact mode") + " (" + prefs.CompactMode + ")", strconv.FormatBool(pr.CompactMode)},
		[2]string{tr.T("panel.show_notifications", "Show notifications") + " (" + prefs.ShowToasts + ")", strconv.FormatBool(pr.ShowToasts)},
	)
	f.muted(tr.T("panel.dashboard", "Dashboard"))
	f.kv(
		[2]string{tr.T("panel.refresh_period", "Refresh period (sec)") + " (" + prefs.DashboardRefreshSec + ")", strconv.Itoa(pr.DashboardRefresh())},
		[2]string{tr.T("panel.auto_copy_uri", "Auto-copy URI after create") + " (" + prefs.AutoCopyURI + ")", strconv.FormatBool(pr.AutoCopyURI)},
		[2]string{tr.T("panel.clients_rows_limit", "Clients rows limit") + " (" + prefs.ClientsPageSize + ")", strconv.Itoa(pr.PageSize())},
		[2]string{tr.T("panel.default_sort", "Default sort") + " (" + prefs.ClientsDefaultSort + ")", pr.DefaultSort()},
		[2]string{tr.T("panel.default_filter", "Default filter") + " (" + prefs.ClientsDefaultFilter + ")", pr.DefaultFilter()},
	)
	f.muted(tr.T("panel.graphs", "Graphs"))
	f.kv(
		[2]string{tr.T("panel.polling_interval", "Polling interval (sec)") + " (" + prefs.GraphsRefreshSec + ")", strconv.Itoa(pr.GraphsRefresh())},
		[2]string{tr.T("panel.line_width", "Line width (2-6)") + " (" + prefs.GraphsLineWidth + ")", strconv.Itoa(pr.LineWidth())},
		[2]string{tr.T("panel.history_points", "History points (30-180)") + " (" + prefs.GraphsPoints + ")", strconv.Itoa(pr.Points())},
	)
}

func (p *Panel) drawStatus(f *frame, st PanelState) {
	tr := p.env.tr()
	s, d := st.Settings, st.Dashboard

	db := f.p.Paint(f.p.Err, tr.T("panel.error", "Error"))
	if s.DBOK {
		db = f.p.Paint(f.p.OK, tr.T("panel.connected", "Connected"))
	}
	stats := f.p.Paint(f.p.Err, tr.T("panel.disabled", "Disabled"))
	if s.StatsAvailable {
		stats = f.p.Paint(f.p.OK, tr.T("panel.enabled", "Enabled"))
	}

	f.title(tr.T("panel.service_status", "Service Status"))
	f.line("  %s: %s", tr.T("panel.database", "Database"), db)
	f.line("  %s: %s", tr.T("panel.xray_stats_api", "Xray Stats API"), stats)
	f.line("  %s: %d", tr.T("panel.active_keys", "Active Keys"), d.Summary.ActiveKeys)
	f.line("  %s: %d", tr.T("panel.online_users", "Online Users"), d.Summary.OnlineNow)
	f.blank()
	f.line("  %-14s %s", tr.T("panel.cpu", "CPU"), gaugeBar(f, d.Server.CPUPercent))
	f.line("  %-14s %s", tr.T("panel.memory", "Memory"), gaugeBar(f, d.Server.MemPercent))
	f.line("  %-14s %s", tr.T("panel.online_ratio", "Online Ratio"), gaugeBar(f, d.Summary.OnlineRatioPercent))
}

package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/clients"
	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

// TopUsersCount is how many users the top-traffic list shows.
const TopUsersCount = 5

// ErrBusy is returned when an action is started while another is running.
var ErrBusy = errors.New("action already in progress")

type DashboardAPI interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
	XraySettings(ctx context.Context) (*model.XraySettings, error)
	DashboardResync(ctx context.Context) (*model.ResyncResult, error)
	ResetUsersTraffic(ctx context.Context) (*model.UsersResetResult, error)
}

// SideStatus is the DB/Stats badge pair. Known is false when the last
// settings fetch failed.
type SideStatus struct {
	Known   bool
	DBOK    bool
	StatsOK bool
}

type DashboardState struct {
	Data  *model.Dashboard
	Side  SideStatus
	Query clients.Query
}

type Dashboard struct {
	env Env
	api DashboardAPI

	mu    sync.Mutex
	state DashboardState
	busy  atomic.Bool
}

func NewDashboard(env Env, api DashboardAPI, q clients.Query) *Dashboard {
	return &Dashboard{env: env, api: api, state: DashboardState{Query: q}}
}

func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Load fetches the dashboard. The previous data is kept when the fetch fails.
func (d *Dashboard) Load(ctx context.Context) error {
	data, err := d.api.Dashboard(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.state.Data = data
	d.mu.Unlock()
	return nil
}

// LoadSide refreshes the sidebar badges. Any failure other than 401 turns
// them into "?".
func (d *Dashboard) LoadSide(ctx context.Context) error {
	s, err := d.api.XraySettings(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	side := SideStatus{}
	if err != nil {
		d.env.log().Debug("side status", "err", err)
	} else {
		side = SideStatus{Known: true, DBOK: s.DBOK, StatsOK: s.StatsAvailable}
	}
	d.mu.Lock()
	d.state.Side = side
	d.mu.Unlock()
	return nil
}

// Refresh loads everything and renders once.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if err := d.LoadSide(ctx); err != nil {
		return err
	}
	if err := d.Load(ctx); err != nil {
		return err
	}
	return d.Render()
}

func (d *Dashboard) Render() error {
	st := d.State()
	if st.Data == nil {
		return nil
	}
	f := d.env.newFrame()
	renderDashboard(f, st, d.env)
	return d.env.flush(f)
}

// Relocalize re-renders the cached data after a language or theme change. The
// top list is recomputed from the cached users, as the panel does.
func (d *Dashboard) Relocalize() error {
	d.mu.Lock()
	if d.state.Data != nil {
		next := *d.state.Data
		next.TopUsers = clients.TopUsers(next.Users, TopUsersCount)
		d.state.Data = &next
	}
	d.mu.Unlock()
	return d.Render()
}

// SuggestUserID proposes the next free user id from the loaded users.
func (d *Dashboard) SuggestUserID() int64 {
	st := d.State()
	if st.Data == nil {
		return clients.SuggestNextUserID(nil)
	}
	return clients.SuggestNextUserID(st.Data.Users)
}

// Resync asks the backend to push every key into xray again.
func (d *Dashboard) Resync(ctx context.Context) (ui.Status, error) {
	return d.quickAction(ctx, "dashboard.resync_completed", "Resync completed", func(ctx context.Context) error {
		_, err := d.api.DashboardResync(ctx)
		return err
	})
}

// ResetUsers zeroes the per-user traffic counters.
func (d *Dashboard) ResetUsers(ctx context.Context) (ui.Status, error) {
	return d.quickAction(ctx, "dashboard.reset_completed", "Users traffic reset completed", func(ctx context.Context) error {
		_, err := d.api.ResetUsersTraffic(ctx)
		return err
	})
}

func (d *Dashboard) quickAction(ctx context.Context, okKey, okFallback string, call func(context.Context) error) (ui.Status, error) {
	tr := d.env.tr()
	if !d.busy.CompareAndSwap(false, true) {
		return ui.Status{Kind: ui.Warn, Message: tr.T("common.processing", "Processing action...")}, ErrBusy
	}
	defer d.busy.Store(false)

	if err := call(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return ui.Status{}, err
		}
		msg := tr.HumanErr(err, tr.T("dashboard.action_failed", "Action failed. Check Xray and DB."))
		return ui.Status{Kind: ui.Err, Message: msg}, err
	}
	msg := tr.T(okKey, okFallback)
	if err := d.Load(ctx); err != nil {
		d.env.log().Warn("reload dashboard", "err", err)
	}
	return ui.Status{Kind: ui.OK, Message: msg}, nil
}

func sideBadges(tr i18n.Translator, s SideStatus) (string, string) {
	if !s.Known {
		return tr.T("sidebar.db_unknown", "DB: ?"), tr.T("sidebar.stats_unknown", "Stats: ?")
	}
	db := tr.T("sidebar.db_err", "DB: ERR")
	if s.DBOK {
		db = tr.T("sidebar.db_ok", "DB: OK")
	}
	stats := tr.T("sidebar.stats_off", "Stats: OFF")
	if s.StatsOK {
		stats = tr.T("sidebar.stats_on", "Stats: ON")
	}
	return db, stats
}

func renderDashboard(f *frame, st DashboardState, env Env) {
	tr := env.tr()
	p := env.prefs()
	data := st.Data
	compact := p.CompactMode

	db, stats := sideBadges(tr, st.Side)
	f.title(tr.T("dashboard.title", "Lunet Usage"))
	f.muted(fmt.Sprintf("%s: %s  |  %s  |  %s", tr.T("common.user", "User"), orDash(data.Nick), db, stats))
	f.blank()

	statsState := tr.T("common.offline", "offline")
	if data.StatsAvailable {
		statsState = tr.T("common.online", "online")
	}
	s := data.Summary
	f.kv(
		[2]string{tr.T("dashboard.active_keys", "Active keys"), strconv.Itoa(s.ActiveKeys)},
		[2]string{tr.T("dashboard.online_now", "Online now"), strconv.Itoa(s.OnlineNow)},
		[2]string{tr.T("dashboard.inbound_total", "Inbound total"), clients.FormatBytes(s.InboundTotal)},
		[2]string{tr.T("dashboard.users_total", "Users total"), clients.FormatBytes(s.UsersTotal)},
		[2]string{tr.T("dashboard.average_cpu", "Average CPU"), percent(data.Server.CPUPercent)},
		[2]string{tr.T("dashboard.ram_usage", "RAM usage"), percent(data.Server.MemPercent)},
		[2]string{tr.T("dashboard.online_ratio", "Online ratio"), percent(s.OnlineRatioPercent)},
		[2]string{tr.T("dashboard.avg_user_traffic", "Avg/user traffic"), clients.FormatBytes(s.AvgUserTotal)},
		[2]string{tr.T("dashboard.xray_stats", "Xray stats"), statsState},
		[2]string{tr.T("dashboard.online_metrics", "online metrics"), fmt.Sprintf("%d/%d", s.OnlineSupportedUsers, s.ActiveKeys)},
	)
	f.blank()

	f.title(tr.T("dashboard.clients", "Clients"))
	rows := clients.Apply(data.Users, st.Query, p)
	header := []string{
		tr.T("dashboard.table_status", "Status"),
		tr.T("dashboard.user_id", "User ID"),
		tr.T("dashboard.table_email", "Email"),
		tr.T("dashboard.table_traffic", "Traffic"),
	}
	if !compact {
		header = append(header, tr.T("dashboard.table_uri", "URI"))
	}
	table := make([][]string, 0, len(rows))
	for _, u := range rows {
		row := []string{
			tr.T(clients.OnlineLabel(u), ""),
			strconv.FormatInt(u.UserID, 10),
			orDash(u.Email),
			clients.FormatBytes(u.Total),
		}
		if !compact {
			row = append(row, orDash(u.URI))
		}
		table = append(table, row)
	}
	f.table(header, table)
	f.blank()

	f.title(tr.T("dashboard.online_users", "Online Users"))
	online := clients.Online(data.Users)
	if len(online) == 0 {
		f.muted("  " + tr.T("dashboard.no_users_online", "No users online now"))
	} else {
		list := make([][]string, 0, len(online))
		for _, u := range online {
			list = append(list, []string{
				"  ● " + orDash(u.Email),
				tr.T("dashboard.id_label", "ID") + " " + strconv.FormatInt(u.UserID, 10),
				clients.FormatBytes(u.Total),
			})
		}
		f.table(nil, list)
	}
	f.blank()

	f.title(tr.T("dashboard.top_users_by_traffic", "Top users by traffic"))
	top := data.TopUsers
	if len(top) == 0 {
		f.muted("  " + tr.T("dashboard.no_traffic_data", "No traffic data yet"))
		return
	}
	list := make([][]string, 0, len(top))
	for _, u := range top {
		list = append(list, []string{"  " + orDash(u.Email), clients.FormatBytes(u.Total) + " " + tr.T("dashboard.total_suffix", "total")})
	}
	f.table(nil, list)
}

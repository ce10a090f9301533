package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

type XrayAPI interface {
	XraySettings(ctx context.Context) (*model.XraySettings, error)
	XrayRestart(ctx context.Context) (*model.RestartResult, error)
	XrayResync(ctx context.Context) (*model.ResyncResult, error)
}

type Copier interface {
	Copy(text string) error
}

// KeyMaterial names one of the reality key values.
type KeyMaterial string

const (
	PublicKey  KeyMaterial = "public"
	PrivateKey KeyMaterial = "private"
	ShortID    KeyMaterial = "short"
)

var ErrUnknownKeyMaterial = errors.New("key material must be public, private or short")

type XrayState struct {
	Settings *model.XraySettings
	Search   string
}

// Xray is the xray settings page: runtime summary, dependencies, database,
// key material and the management API table.
type Xray struct {
	env  Env
	api  XrayAPI
	clip Copier

	mu    sync.Mutex
	state XrayState
	busy  atomic.Bool
}

func NewXray(env Env, api XrayAPI, clip Copier) *Xray {
	return &Xray{env: env, api: api, clip: clip}
}

func (x *Xray) State() XrayState {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

func (x *Xray) Load(ctx context.Context) error {
	s, err := x.api.XraySettings(ctx)
	if err != nil {
		return err
	}
	x.mu.Lock()
	x.state.Settings = s
	x.mu.Unlock()
	return nil
}

// SetSearch filters the API table; matching is case-insensitive over
// "method path auth description".
func (x *Xray) SetSearch(q string) {
	x.mu.Lock()
	x.state.Search = q
	x.mu.Unlock()
}

func (x *Xray) Render() error {
	st := x.State()
	if st.Settings == nil {
		return nil
	}
	f := x.env.newFrame()
	x.draw(f, st)
	return x.env.flush(f)
}

// MatchEndpoints returns the endpoints whose text contains q.
func MatchEndpoints(endpoints []model.Endpoint, q string) []model.Endpoint {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return endpoints
	}
	out := make([]model.Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		text := strings.ToLower(fmt.Sprintf("%s %s %s %s", e.Method, e.Path, e.Auth, e.Description))
		if strings.Contains(text, q) {
			out = append(out, e)
		}
	}
	return out
}

func (x *Xray) draw(f *frame, st XrayState) {
	tr := x.env.tr()
	s := st.Settings
	sum := s.ConfigSummary

	db := f.p.Paint(f.p.Err, tr.T("panel.error", "Error"))
	if s.DBOK {
		db = f.p.Paint(f.p.OK, tr.T("panel.connected", "Connected"))
	}
	stats := f.p.Paint(f.p.Warn, tr.T("panel.disabled", "Disabled"))
	if s.StatsAvailable {
		stats = f.p.Paint(f.p.OK, tr.T("panel.enabled", "Enabled"))
	}

	f.title(tr.T("xray.title", "Xray Configuration"))
	f.line("%s: %s  %s: %s  %s: %d  %s: %d",
		tr.T("xray.db_short", "DB"), db,
		tr.T("xray.stats_api_short", "Stats API"), stats,
		tr.T("xray.inbounds_short", "Inbounds"), sum.InboundsCount,
		tr.T("xray.outbounds_short", "Outbounds"), sum.OutboundsCount,
	)
	f.blank()

	f.title(tr.T("xray.runtime", "Runtime Summary"))
	f.kv(
		[2]string{tr.T("xray.k_xray_addr", "Xray address"), orDash(s.XrayAddr)},
		[2]string{tr.T("xray.k_inbound_tag", "Inbound tag"), orDash(s.InboundTag)},
		[2]string{tr.T("xray.k_sync_server_id", "Sync server id"), orDash(s.SyncServerID.String())},
		[2]string{tr.T("xray.k_config_path", "Config path"), orDash(s.ConfigPath)},
		[2]string{tr.T("xray.k_routing_rules", "Routing rules"), strconv.Itoa(sum.RoutingRulesCount)},
		[2]string{tr.T("xray.k_api_enabled", "API enabled"), strconv.FormatBool(sum.APIEnabled)},
		[2]string{tr.T("xray.k_log_level", "Log level"), orDash(sum.LogLevel)},
		[2]string{tr.T("xray.k_config_error", "Config error"), orDash(s.ConfigError)},
	)
	f.blank()

	missing := tr.T("xray.missing_none", "none")
	if len(s.DependenciesMissing) > 0 {
		missing = strings.Join(s.DependenciesMissing, ", ")
	}
	f.title(tr.T("xray.dependencies", "Dependencies"))
	f.kv(
		[2]string{"grpcurl", orDash(s.GrpcurlBin)},
		[2]string{"protoc", orDash(s.ProtocBin)},
		[2]string{"protoset", orDash(s.Protoset)},
		[2]string{tr.T("xray.k_missing", "Missing"), missing},
		[2]string{tr.T("xray.k_stats_available", "Stats available"), strconv.FormatBool(s.StatsAvailable)},
	)
	f.blank()

	f.title(tr.T("xray.database", "Database"))
	f.kv(
		[2]string{tr.T("panel.connected", "Connected"), strconv.FormatBool(s.DBOK)},
		[2]string{tr.T("panel.error", "Error"), orDash(s.DBError)},
	)
	f.blank()

	f.title(tr.T("xray.keys_title", "Key Materials"))
	f.kv(
		[2]string{tr.T("xray.public_key", "Public key"), orDash(s.XrayKeys.PublicKey)},
		[2]string{tr.T("xray.private_key", "Private key"), orDash(s.XrayKeys.PrivateKey)},
		[2]string{tr.T("xray.short_id", "Short ID"), orDash(s.XrayKeys.ShortID)},
	)
	f.blank()

	f.title(tr.T("xray.api", "Developer API (Xray Management)"))
	if st.Search != "" {
		f.muted(fmt.Sprintf("%s %q", tr.T("xray.search_api", "Search endpoints..."), st.Search))
	}
	endpoints := MatchEndpoints(s.APIEndpoints, st.Search)
	rows := make([][]string, 0, len(endpoints))
	for _, e := range endpoints {
		rows = append(rows, []string{e.Method, e.Path, e.Auth, e.Description})
	}
	f.table([]string{
		tr.T("xray.method", "Method"),
		tr.T("xray.path", "Path"),
		tr.T("xray.auth", "Auth"),
		tr.T("xray.description", "Description"),
	}, rows)
}

// Restart asks the backend to restart xray. A reply with ok=false is a
// failure carrying detail or stderr.
func (x *Xray) Restart(ctx context.Context) (ui.Status, error) {
	tr := x.env.tr()
	fail := tr.T("xray.restart_failed", "Cannot restart xray.")
	return x.action(ctx, fail, func(ctx context.Context) (string, error) {
		r, err := x.api.XrayRestart(ctx)
		if err != nil {
			return "", err
		}
		if !r.OK {
			detail := r.Detail
			if detail == "" {
				detail = r.Stderr
			}
			if detail == "" {
				detail = "restart failed"
			}
			return "", errors.New(detail)
		}
		return tr.T("xray.restart_ok", "Xray restarted"), nil
	})
}

// Resync pushes every active key from the database into xray.
func (x *Xray) Resync(ctx context.Context) (ui.Status, error) {
	tr := x.env.tr()
	fail := tr.T("xray.resync_failed", "Resync failed. Check DB and Xray connection.")
	return x.action(ctx, fail, func(ctx context.Context) (string, error) {
		r, err := x.api.XrayResync(ctx)
		if err != nil {
			return "", err
		}
		return tr.F("xray.resync_done", "Resync done: synced {synced}, failed {failed}",
			"synced", r.Synced, "failed", len(r.Failed)), nil
	})
}

func (x *Xray) action(ctx context.Context, fallback string, call func(context.Context) (string, error)) (ui.Status, error) {
	tr := x.env.tr()
	if !x.busy.CompareAndSwap(false, true) {
		return ui.Status{Kind: ui.Warn, Message: tr.T("common.processing", "Processing action...")}, ErrBusy
	}
	defer x.busy.Store(false)

	msg, err := call(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return ui.Status{}, err
		}
		msg = tr.HumanErr(err, fallback)
		return ui.Status{Kind: ui.Err, Message: msg}, err
	}
	return ui.Status{Kind: ui.OK, Message: msg}, nil
}

// CopyKey puts one key value on the clipboard. Empty values are skipped.
func (x *Xray) CopyKey(which KeyMaterial) (ui.Status, error) {
	tr := x.env.tr()
	st := x.State()
	if st.Settings == nil {
		return ui.Status{}, errors.New("settings not loaded")
	}
	var value string
	switch which {
	case PublicKey:
		value = st.Settings.XrayKeys.PublicKey
	case PrivateKey:
		value = st.Settings.XrayKeys.PrivateKey
	case ShortID:
		value = st.Settings.XrayKeys.ShortID
	default:
		return ui.Status{}, ErrUnknownKeyMaterial
	}
	if value == "" || value == "-" {
		return ui.Status{}, nil
	}
	if x.clip == nil {
		return ui.Status{Kind: ui.Warn, Message: tr.T("dashboard.uri_copy_failed", "Cannot copy URI in this browser context")}, ui.ErrNoTerminal
	}
	if err := x.clip.Copy(value); err != nil {
		msg := tr.T("dashboard.uri_copy_failed", "Cannot copy URI in this browser context")
		return ui.Status{Kind: ui.Warn, Message: msg}, err
	}
	msg := tr.T("dashboard.uri_copied", "URI copied to clipboard")
	return ui.Status{Kind: ui.OK, Message: msg}, nil
}

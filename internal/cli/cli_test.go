package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/state"
)

const sessionCookie = "xray_web_session"

// fakePanel accepts admin/secret and serves a one-user dashboard to holders
// of the cookie it hands out.
type fakePanel struct {
	srv     *httptest.Server
	token   atomic.Value
	resyncs atomic.Int32
	resets  atomic.Value
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	p := &fakePanel{}
	p.token.Store("tok")
	p.resets.Store("")
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePanel) serve(w http.ResponseWriter, r *http.Request) {
	authed := func() bool {
		ck, err := r.Cookie(sessionCookie)
		if err != nil || ck.Value != p.token.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
			return false
		}
		return true
	}

	switch r.URL.Path {
	case "/web/login":
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Nick != "admin" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Wrong nick or password"}`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: p.token.Load().(string), Path: "/"})
		_, _ = io.WriteString(w, `{"ok":true}`)
	case "/web/logout":
		_, _ = io.WriteString(w, `{"ok":true}`)
	case "/web/api/dashboard":
		if !authed() {
			return
		}
		_, _ = io.WriteString(w, `{"nick":"admin","summary":{"active_keys":1,"online_now":1},
			"users":[{"user_id":7,"email":"seven@lunet","uri":"vless://seven","total":2048,"online":true,"online_supported":true}],
			"top_users":[{"user_id":7,"email":"seven@lunet","total":2048}]}`)
	case "/web/api/xray/settings":
		if !authed() {
			return
		}
		_, _ = io.WriteString(w, `{"db_ok":true,"stats_available":true,"xray_addr":"127.0.0.1:10085"}`)
	case "/web/api/dashboard/resync":
		if !authed() {
			return
		}
		p.resyncs.Add(1)
		_, _ = io.WriteString(w, `{"ok":true,"synced":1,"failed":[]}`)
	case "/web/api/resets/traffic":
		if !authed() {
			return
		}
		var req model.ResetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		p.resets.Store(string(req.Scope))
		_, _ = fmt.Fprintf(w, `{"ok":true,"scope":%q}`, req.Scope)
	default:
		http.NotFound(w, r)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LUNET_BASE_URL", "LUNET_NICK", "LUNET_PASSWORD", "LUNET_PROXY", "LUNET_TLS_INSECURE", "VISUAL", "EDITOR"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("control:\n  base_url: %s\n  nick: admin\n  timeout_sec: 2\nstate:\n  dir: %s\nlogging:\n  level: error\n", baseURL, dir)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, cfgPath, stdin string, args ...string) result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out, errOut bytes.Buffer
	code := run(ctx, append([]string{"--config", cfgPath}, args...), strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func storedSession(t *testing.T, cfgPath string) string {
	t.Helper()
	st, err := state.Open(filepath.Join(filepath.Dir(cfgPath), "storage.json"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	v, _ := st.Get(state.KeySession)
	return v
}

func TestLoginThenDashboard(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	res := execute(t, cfg, "secret\n", "login")
	if res.code != ExitOK {
		t.Fatalf("login exit %d, stderr %q", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "Logged in as admin") {
		t.Fatalf("login stdout = %q", res.stdout)
	}
	if storedSession(t, cfg) == "" {
		t.Fatal("session not persisted")
	}

	res = execute(t, cfg, "", "dashboard")
	if res.code != ExitOK {
		t.Fatalf("dashboard exit %d, stderr %q", res.code, res.stderr)
	}
	for _, want := range []string{"admin", "seven@lunet", "vless://seven", "2.00 KB"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("dashboard output missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "\x1b[") {
		t.Fatal("colour codes written to a non-terminal")
	}
}

func TestLoginRejected(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	res := execute(t, cfg, "", "login", "--password", "wrong")
	if res.code != ExitFailed {
		t.Fatalf("exit = %d, want %d", res.code, ExitFailed)
	}
	if !strings.Contains(res.stderr, "Login failed") {
		t.Fatalf("stderr = %q", res.stderr)
	}
	if strings.Contains(res.stderr, "Session expired") {
		t.Fatal("rejected login reported as expired session")
	}
}

func TestExpiredSessionIsCleared(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	if res := execute(t, cfg, "", "login", "--password", "secret"); res.code != ExitOK {
		t.Fatalf("login exit %d: %s", res.code, res.stderr)
	}
	p.token.Store("rotated")

	res := execute(t, cfg, "", "dashboard")
	if res.code != ExitSession {
		t.Fatalf("exit = %d, want %d", res.code, ExitSession)
	}
	if !strings.Contains(res.stderr, "Session expired") || !strings.Contains(res.stderr, "lunetctl login") {
		t.Fatalf("stderr = %q", res.stderr)
	}
	if v := storedSession(t, cfg); v != "" {
		t.Fatalf("session still stored: %q", v)
	}
}

func TestCommandsNeedSession(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	res := execute(t, cfg, "", "resync")
	if res.code != ExitSession {
		t.Fatalf("exit = %d, want %d", res.code, ExitSession)
	}
	if p.resyncs.Load() != 0 {
		t.Fatal("request sent without a session")
	}
}

func TestQuickActionsAndResets(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)
	if res := execute(t, cfg, "", "login", "--password", "secret"); res.code != ExitOK {
		t.Fatalf("login exit %d: %s", res.code, res.stderr)
	}

	res := execute(t, cfg, "", "resync")
	if res.code != ExitOK || !strings.Contains(res.stdout, "Resync completed") {
		t.Fatalf("resync = %+v", res)
	}
	if p.resyncs.Load() != 1 {
		t.Fatalf("resync calls = %d", p.resyncs.Load())
	}

	res = execute(t, cfg, "", "resets", "traffic", "--scope", "bogus")
	if res.code != ExitFailed {
		t.Fatalf("bad scope exit = %d", res.code)
	}

	res = execute(t, cfg, "", "resets", "traffic", "--scope", "Inbound")
	if res.code != ExitOK {
		t.Fatalf("resets exit %d: %s", res.code, res.stderr)
	}
	if got := p.resets.Load().(string); got != "inbound" {
		t.Fatalf("scope sent = %q", got)
	}
	if !strings.Contains(res.stdout, `"scope": "inbound"`) {
		t.Fatalf("resets stdout = %q", res.stdout)
	}
}

func TestSettingsAndAppearance(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	res := execute(t, cfg, "", "settings", "set", "graphs_points=120", "compact_mode=true")
	if res.code != ExitOK {
		t.Fatalf("set exit %d: %s", res.code, res.stderr)
	}
	res = execute(t, cfg, "", "settings", "set", "graphs_points=abc", "compact_mode=false")
	if res.code != ExitFailed {
		t.Fatalf("non-numeric set exit = %d", res.code)
	}
	res = execute(t, cfg, "", "settings", "set", "graphs_points")
	if res.code != ExitFailed {
		t.Fatalf("pair without = exit = %d", res.code)
	}

	res = execute(t, cfg, "", "settings", "show")
	if res.code != ExitOK {
		t.Fatalf("show exit %d: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "120") || !strings.Contains(res.stdout, "(compact_mode)") {
		t.Fatalf("show output:\n%s", res.stdout)
	}
	if !strings.Contains(res.stdout, "Security Warning") {
		t.Fatal("plain http panel shown without the security warning")
	}

	res = execute(t, cfg, "", "lang")
	if res.code != ExitOK || !strings.Contains(res.stdout, "ru") {
		t.Fatalf("lang toggle = %+v", res)
	}
	res = execute(t, cfg, "", "lang", "en")
	if res.code != ExitOK || !strings.Contains(res.stdout, "Language: en") {
		t.Fatalf("lang en = %+v", res)
	}

	res = execute(t, cfg, "", "theme", "light")
	if res.code != ExitOK || !strings.Contains(res.stdout, "Light theme") {
		t.Fatalf("theme = %+v", res)
	}

	res = execute(t, cfg, "", "settings", "reset")
	if res.code != ExitOK {
		t.Fatalf("reset exit %d", res.code)
	}
	res = execute(t, cfg, "", "settings", "show")
	if strings.Contains(res.stdout, "120") {
		t.Fatalf("reset kept graphs_points:\n%s", res.stdout)
	}
}

func TestPrefsFormRoundTrip(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	a := newApp(strings.NewReader(""), io.Discard, io.Discard)
	a.cfgPath = cfg
	if err := a.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	form, err := prefsForm(a.prefs.Get())
	if err != nil {
		t.Fatalf("prefsForm: %v", err)
	}
	if !strings.HasPrefix(form, "dashboard_refresh_sec: 15\n") {
		t.Fatalf("form does not follow schema order:\n%s", form)
	}

	edited := strings.Replace(form, "graphs_refresh_sec: 5", "graphs_refresh_sec: 99", 1)
	edited = strings.Replace(edited, "clients_default_sort: online_desc", "clients_default_sort: sideways", 1)
	input, err := parsePrefsForm(edited)
	if err != nil {
		t.Fatalf("parsePrefsForm: %v", err)
	}
	if _, err := a.panel().SaveForm(input); err != nil {
		t.Fatalf("SaveForm: %v", err)
	}
	got := a.prefs.Get()
	if got.GraphsRefresh() != 30 {
		t.Fatalf("graphs refresh = %d, want clamped 30", got.GraphsRefresh())
	}
	if got.DefaultSort() != "online_desc" {
		t.Fatalf("sort = %q, want default", got.DefaultSort())
	}
}

func TestConfigFmtAndValidateOffline(t *testing.T) {
	p := newFakePanel(t)
	cfg := writeConfig(t, p.srv.URL)

	res := execute(t, cfg, `{"log":{"loglevel":"warning"},"port":1.0}`, "xray", "config", "fmt")
	if res.code != ExitOK {
		t.Fatalf("fmt exit %d: %s", res.code, res.stderr)
	}
	want := "{\n  \"log\": {\n    \"loglevel\": \"warning\"\n  },\n  \"port\": 1.0\n}\n"
	if res.stdout != want {
		t.Fatalf("fmt stdout = %q", res.stdout)
	}

	res = execute(t, cfg, `{"log":`, "xray", "config", "validate")
	if res.code != ExitFailed || !strings.Contains(res.stderr, "JSON is invalid") {
		t.Fatalf("validate = %+v", res)
	}
}

func TestInitAndConfigSet(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lunetctl", "config.yaml")

	res := execute(t, path, "", "init")
	if res.code != ExitOK || !strings.Contains(res.stdout, path) {
		t.Fatalf("init = %+v", res)
	}
	res = execute(t, path, "", "config", "set", "--base-url", "https://panel.example.com", "--tls-insecure")
	if res.code != ExitOK {
		t.Fatalf("config set exit %d: %s", res.code, res.stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "https://panel.example.com") || !strings.Contains(string(data), "tls_insecure: true") {
		t.Fatalf("config:\n%s", data)
	}
}

package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

type SessionAPI interface {
	Login(ctx context.Context, nick, password string) error
	Logout(ctx context.Context) error
}

// Login signs in. A rejected login comes back as 401 too, so the failure is
// reported here with login.failed instead of the session-expired path.
func Login(ctx context.Context, env Env, api SessionAPI, nick, password string) (ui.Status, error) {
	tr := env.tr()
	nick = strings.TrimSpace(nick)
	if err := api.Login(ctx, nick, password); err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.HumanErr(err, tr.T("login.failed", "Login failed. Check username and password."))}, err
	}
	return ui.Status{Kind: ui.OK, Message: tr.F("cli.logged_in", "Logged in as {nick}", "nick", nick)}, nil
}

// Logout always forgets the local session, even when the panel is unreachable.
func Logout(ctx context.Context, env Env, api SessionAPI) (ui.Status, error) {
	tr := env.tr()
	if err := api.Logout(ctx); err != nil {
		env.log().Debug("logout request failed", "err", err)
	}
	return ui.Status{Kind: ui.OK, Message: tr.T("cli.logged_out", "Logged out")}, nil
}

type ResetsAPI interface {
	ResetTraffic(ctx context.Context, scope model.ResetScope) (*model.ResetResult, error)
}

var ErrBadScope = errors.New("scope must be all, inbound or users")

func ParseScope(s string) (model.ResetScope, error) {
	switch sc := model.ResetScope(strings.ToLower(strings.TrimSpace(s))); sc {
	case model.ResetAll, model.ResetInbound, model.ResetUsers:
		return sc, nil
	case "":
		return model.ResetAll, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrBadScope)
}

// ResetTraffic zeroes counters for scope and prints the backend's reply as
// indented JSON.
func ResetTraffic(ctx context.Context, env Env, api ResetsAPI, scope model.ResetScope) (ui.Status, error) {
	tr := env.tr()
	res, err := api.ResetTraffic(ctx, scope)
	if err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.T("resets.failed", "Reset failed")}, err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.T("resets.failed", "Reset failed")}, err
	}
	f := env.newFrame()
	f.title(tr.T("resets.title", "Traffic Resets"))
	f.muted(tr.T("resets.scope", "Scope") + ": " + string(scope))
	f.line("%s", out)
	if err := env.flush(f); err != nil {
		return ui.Status{}, err
	}
	return ui.Status{Kind: ui.OK, Message: tr.T("resets.completed", "Reset completed")}, nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/najahiiii/lunetctl/internal/model"
)

// Login posts credentials and persists the session cookie on success.
func (c *Client) Login(ctx context.Context, nick, password string) error {
	if err := c.do(ctx, http.MethodPost, "/login", model.LoginRequest{Nick: nick, Password: password}, nil); err != nil {
		return err
	}
	if err := c.saveSession(); err != nil {
		return err
	}
	c.log.Info("logged in", "nick", nick)
	return nil
}

// Logout asks the panel to drop the cookie and forgets it locally either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if cerr := c.ClearSession(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (c *Client) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var d model.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DashboardResync(ctx context.Context) (*model.ResyncResult, error) {
	var r model.ResyncResult
	if err := c.do(ctx, http.MethodPost, "/api/dashboard/resync", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ResetUsersTraffic(ctx context.Context) (*model.UsersResetResult, error) {
	var r model.UsersResetResult
	if err := c.do(ctx, http.MethodPost, "/api/dashboard/reset_users_traffic", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CreateKey(ctx context.Context, req model.CreateKeyRequest) (*model.CreateKeyResponse, error) {
	var r model.CreateKeyResponse
	if err := c.do(ctx, http.MethodPost, "/api/keys", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GraphsLive(ctx context.Context) (*model.LiveSample, error) {
	var s model.LiveSample
	if err := c.do(ctx, http.MethodGet, "/api/graphs/live", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) XraySettings(ctx context.Context) (*model.XraySettings, error) {
	var s model.XraySettings
	if err := c.do(ctx, http.MethodGet, "/api/xray/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PanelSettings prefers /api/panel/settings and falls back to the xray
// settings endpoint on panels that do not serve it.
func (c *Client) PanelSettings(ctx context.Context) (*model.XraySettings, error) {
	var s model.XraySettings
	err := c.do(ctx, http.MethodGet, "/api/panel/settings", nil, &s)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		c.log.Debug("panel settings endpoint missing, using xray settings")
		return c.XraySettings(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) XrayConfig(ctx context.Context) (*model.XrayConfig, error) {
	var x model.XrayConfig
	if err := c.do(ctx, http.MethodGet, "/api/xray/config", nil, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// SaveXrayConfig PUTs the document as {"config": doc}. doc must be valid JSON.
func (c *Client) SaveXrayConfig(ctx context.Context, doc json.RawMessage) (*model.SaveConfigResult, error) {
	body := struct {
		Config json.RawMessage `json:"config"`
	}{Config: doc}
	var r model.SaveConfigResult
	if err := c.do(ctx, http.MethodPut, "/api/xray/config", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) XrayRestart(ctx context.Context) (*model.RestartResult, error) {
	var r model.RestartResult
	if err := c.do(ctx, http.MethodPost, "/api/xray/restart", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) XrayResync(ctx context.Context) (*model.ResyncResult, error) {
	var r model.ResyncResult
	if err := c.do(ctx, http.MethodPost, "/api/xray/resync", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ResetTraffic(ctx context.Context, scope model.ResetScope) (*model.ResetResult, error) {
	var r model.ResetResult
	if err := c.do(ctx, http.MethodPost, "/api/resets/traffic", model.ResetRequest{Scope: scope}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

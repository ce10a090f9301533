package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"

	"github.com/najahiiii/lunetctl/internal/config"
	"github.com/najahiiii/lunetctl/internal/state"
)

// Client talks to the panel's web API. The session cookie lives in the shared
// state file so every lunetctl invocation reuses one login.
type Client struct {
	cfg    *config.Config
	st     *state.Store
	base   *url.URL
	jar    *cookiejar.Jar
	client *http.Client
	log    *slog.Logger
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewClient(cfg *config.Config, st *state.Store, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Control.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{ //nolint:gosec
			InsecureSkipVerify: cfg.Control.TLSInsecure,
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if cfg.Control.Proxy != "" {
		dc, err := socksDialer(cfg.Control.Proxy, dialer)
		if err != nil {
			return nil, err
		}
		tr.DialContext = dc
	}

	c := &Client{
		cfg:  cfg,
		st:   st,
		base: base,
		jar:  jar,
		client: &http.Client{
			Transport: tr,
			Jar:       jar,
			Timeout:   time.Duration(cfg.Control.TimeoutSec) * time.Second,
		},
		log: log,
	}
	c.restoreSession()
	return c, nil
}

func socksDialer(raw string, forward *net.Dialer) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	d, err := proxy.SOCKS5("tcp", u.Host, auth, forward)
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// HasSession reports whether a session cookie is stored.
func (c *Client) HasSession() bool {
	v, ok := c.st.Get(state.KeySession)
	return ok && v != "" && v != "[]"
}

// ClearSession forgets the stored cookie without contacting the panel.
func (c *Client) ClearSession() error {
	for _, ck := range c.jar.Cookies(c.base) {
		c.jar.SetCookies(c.base, []*http.Cookie{{Name: ck.Name, Path: "/", MaxAge: -1}})
	}
	return c.st.Remove(state.KeySession)
}

func (c *Client) restoreSession() {
	raw, ok := c.st.Get(state.KeySession)
	if !ok || raw == "" {
		return
	}
	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.log.Debug("stored session unreadable", "err", err)
		return
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
}

func (c *Client) saveSession() error {
	cookies := c.jar.Cookies(c.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return c.st.Set(state.KeySession, string(data))
}

func (c *Client) url(path string) string {
	return c.cfg.Control.BaseURL + c.cfg.Control.BasePath + path
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded when
// non-nil and the response is 2xx.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(in); err != nil {
			return &TransportError{Op: "encode " + path, Err: err}
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("panel request", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Detail: detailFrom(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

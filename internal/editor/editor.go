package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

// ErrInvalidJSON blocks a save.
var ErrInvalidJSON = errors.New("config is not valid JSON")

type API interface {
	XrayConfig(ctx context.Context) (*model.XrayConfig, error)
	SaveXrayConfig(ctx context.Context, doc json.RawMessage) (*model.SaveConfigResult, error)
}

// Editor holds the config text between load and save. Empty text stands for {}.
type Editor struct {
	api API
	tr  func() i18n.Translator

	content string
	path    string
	summary model.ConfigSummary
}

func New(api API, tr func() i18n.Translator) *Editor {
	return &Editor{api: api, tr: tr, content: "{}"}
}

func (e *Editor) Content() string { return e.content }
func (e *Editor) Path() string    { return e.path }

func (e *Editor) Summary() model.ConfigSummary { return e.summary }

func (e *Editor) SetContent(s string) {
	e.content = s
}

// Load replaces the content with the panel's current config. A config the
// backend could not read still loads (as {}) and the returned status says why.
func (e *Editor) Load(ctx context.Context) (ui.Status, error) {
	tr := e.tr()
	x, err := e.api.XrayConfig(ctx)
	if err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.HumanErr(err, tr.T("xray.read_config_failed", "Cannot read xray config file."))}, err
	}
	e.path = x.Path
	e.summary = x.Summary
	e.content = "{}"
	if raw := bytes.TrimSpace(x.Config); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if formatted, ferr := indent(raw); ferr == nil {
			e.content = formatted
		}
	}
	if x.Error != "" {
		return ui.Status{Kind: ui.Err, Message: tr.HumanError(x.Error, tr.T("xray.read_config_failed", "Cannot read xray config file."))}, nil
	}
	return ui.Status{Kind: ui.OK, Message: tr.T("xray.config_loaded", "Config loaded")}, nil
}

// Format re-indents the content with two spaces. Invalid JSON is left as is.
func (e *Editor) Format() ui.Status {
	tr := e.tr()
	formatted, err := indent([]byte(e.text()))
	if err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.T("xray.invalid_json", "Invalid JSON format.")}
	}
	e.content = formatted
	return ui.Status{Kind: ui.OK, Message: tr.T("xray.json_formatted", "JSON formatted")}
}

// Validate only parses; the content never changes.
func (e *Editor) Validate() ui.Status {
	tr := e.tr()
	if !json.Valid([]byte(e.text())) {
		return ui.Status{Kind: ui.Err, Message: tr.T("xray.json_invalid", "JSON is invalid")}
	}
	return ui.Status{Kind: ui.OK, Message: tr.T("xray.json_valid", "JSON is valid")}
}

func (e *Editor) Save(ctx context.Context) (ui.Status, error) {
	tr := e.tr()
	doc := []byte(e.text())
	if !json.Valid(doc) {
		return ui.Status{Kind: ui.Err, Message: tr.T("xray.invalid_json", "Invalid JSON format.")}, ErrInvalidJSON
	}
	res, err := e.api.SaveXrayConfig(ctx, json.RawMessage(doc))
	if err != nil {
		return ui.Status{Kind: ui.Err, Message: tr.HumanErr(err, tr.T("xray.save_failed", "Cannot save xray config."))}, err
	}
	if res.Path != "" {
		e.path = res.Path
	}
	e.summary = res.Summary
	return ui.Status{Kind: ui.OK, Message: tr.T("xray.config_saved", "Config saved")}, nil
}

func (e *Editor) text() string {
	if strings.TrimSpace(e.content) == "" {
		return "{}"
	}
	return e.content
}

// indent keeps key order and number spelling exactly as written.
func indent(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package keys

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

// ValidationError rejects form input before any request is made. Key names
// the catalog message to show.
type ValidationError struct {
	Field    string
	Key      string
	Fallback string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Fallback
}

// ErrBusy is returned while a previous Create is still running.
var ErrBusy = errors.New("key creation already in progress")

// Validate parses the raw form values. user_id must be a positive integer and
// level an integer in [0,255]; an empty level means 0.
func Validate(userID, level string) (model.CreateKeyRequest, error) {
	id, ok := parseInteger(userID)
	if !ok || id <= 0 {
		return model.CreateKeyRequest{}, &ValidationError{
			Field: "user_id", Key: "dashboard.create_invalid_user_id", Fallback: "Enter valid user_id > 0",
		}
	}
	lvl := int64(0)
	if strings.TrimSpace(level) != "" {
		lvl, ok = parseInteger(level)
		if !ok || lvl < 0 || lvl > 255 {
			return model.CreateKeyRequest{}, &ValidationError{
				Field: "level", Key: "dashboard.create_invalid_level", Fallback: "Level must be 0..255",
			}
		}
	}
	return model.CreateKeyRequest{UserID: id, Level: int(lvl)}, nil
}

// parseInteger accepts any numeric spelling whose value is integral ("12",
// "1e3", "7.0").
func parseInteger(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

type API interface {
	CreateKey(ctx context.Context, req model.CreateKeyRequest) (*model.CreateKeyResponse, error)
}

type Copier interface {
	Copy(text string) error
}

// Outcome is what the key form shows after a create attempt.
type Outcome struct {
	Key     *model.CreateKeyResponse
	Kind    ui.Kind
	Message string
	// CopyNote is set when auto-copy ran: copied or copy failed.
	CopyNote string
}

// Creator runs one create request at a time.
type Creator struct {
	api      API
	clip     Copier
	autoCopy func() bool
	tr       func() i18n.Translator
	log      *slog.Logger

	busy atomic.Bool
}

func NewCreator(api API, clip Copier, autoCopy func() bool, tr func() i18n.Translator, log *slog.Logger) *Creator {
	return &Creator{api: api, clip: clip, autoCopy: autoCopy, tr: tr, log: log}
}

// InFlight reports whether a request is running.
func (c *Creator) InFlight() bool {
	return c.busy.Load()
}

func (c *Creator) Create(ctx context.Context, req model.CreateKeyRequest) (Outcome, error) {
	tr := c.tr()
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{Kind: ui.Warn, Message: tr.T("common.processing", "Processing action...")}, ErrBusy
	}
	defer c.busy.Store(false)

	resp, err := c.api.CreateKey(ctx, req)
	if err != nil {
		msg := tr.HumanErr(err, tr.T("dashboard.create_failed", "Could not create client key."))
		return Outcome{Kind: ui.Err, Message: msg}, err
	}
	if id, perr := uuid.Parse(resp.UUID); perr == nil {
		resp.UUID = id.String()
	} else {
		c.log.Warn("created key has malformed uuid", "uuid", resp.UUID, "user_id", req.UserID)
	}

	if resp.URI == "" {
		return Outcome{
			Key:     resp,
			Kind:    ui.Warn,
			Message: tr.T("dashboard.create_empty_uri", "Client created, but URI is empty. Set XRAY_PUBLIC_* in .env"),
		}, nil
	}

	out := Outcome{
		Key:     resp,
		Kind:    ui.OK,
		Message: tr.T("dashboard.create_success", "Client created") + ": " + resp.UUID,
	}
	if c.autoCopy != nil && c.autoCopy() && c.clip != nil {
		if err := c.clip.Copy(resp.URI); err != nil {
			c.log.Debug("auto-copy failed", "err", err)
			out.CopyNote = tr.T("dashboard.uri_copy_failed", "Cannot copy URI in this browser context")
		} else {
			out.CopyNote = tr.T("dashboard.uri_copied", "URI copied to clipboard")
		}
	}
	c.log.Info("key created", "user_id", resp.UserID, "uuid", resp.UUID)
	return out, nil
}

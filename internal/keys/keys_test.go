package keys

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/logger"
	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/ui"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		userID, level string
		wantErrKey    string
		want          model.CreateKeyRequest
	}{
		{"1001", "", "", model.CreateKeyRequest{UserID: 1001}},
		{" 1e3 ", "7", "", model.CreateKeyRequest{UserID: 1000, Level: 7}},
		{"42", "255", "", model.CreateKeyRequest{UserID: 42, Level: 255}},
		{"", "0", "dashboard.create_invalid_user_id", model.CreateKeyRequest{}},
		{"0", "0", "dashboard.create_invalid_user_id", model.CreateKeyRequest{}},
		{"-4", "0", "dashboard.create_invalid_user_id", model.CreateKeyRequest{}},
		{"1.5", "0", "dashboard.create_invalid_user_id", model.CreateKeyRequest{}},
		{"abc", "0", "dashboard.create_invalid_user_id", model.CreateKeyRequest{}},
		{"5", "256", "dashboard.create_invalid_level", model.CreateKeyRequest{}},
		{"5", "-1", "dashboard.create_invalid_level", model.CreateKeyRequest{}},
		{"5", "x", "dashboard.create_invalid_level", model.CreateKeyRequest{}},
	}
	for _, tt := range tests {
		got, err := Validate(tt.userID, tt.level)
		if tt.wantErrKey == "" {
			if err != nil || got != tt.want {
				t.Fatalf("Validate(%q,%q) = %+v, %v", tt.userID, tt.level, got, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Key != tt.wantErrKey {
			t.Fatalf("Validate(%q,%q) err = %v, want %s", tt.userID, tt.level, err, tt.wantErrKey)
		}
	}
}

type fakeAPI struct {
	resp    *model.CreateKeyResponse
	err     error
	calls   int
	release chan struct{}
}

func (f *fakeAPI) CreateKey(ctx context.Context, req model.CreateKeyRequest) (*model.CreateKeyResponse, error) {
	f.calls++
	if f.release != nil {
		<-f.release
	}
	return f.resp, f.err
}

type fakeClip struct {
	copied []string
	err    error
}

func (f *fakeClip) Copy(text string) error {
	f.copied = append(f.copied, text)
	return f.err
}

func english() i18n.Translator { return i18n.New(i18n.EN) }

func TestCreateSuccessAutoCopies(t *testing.T) {
	api := &fakeAPI{resp: &model.CreateKeyResponse{UserID: 1001, UUID: "6F1C2B1E-0D7A-4C6E-9A55-2B1F0C9E8D71", URI: "vless://x"}}
	clip := &fakeClip{}
	c := NewCreator(api, clip, func() bool { return true }, english, logger.Discard())

	out, err := c.Create(context.Background(), model.CreateKeyRequest{UserID: 1001})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Kind != ui.OK || out.Message != "Client created: 6f1c2b1e-0d7a-4c6e-9a55-2b1f0c9e8d71" {
		t.Fatalf("outcome = %+v", out)
	}
	if len(clip.copied) != 1 || clip.copied[0] != "vless://x" || out.CopyNote != "URI copied to clipboard" {
		t.Fatalf("copy = %v note %q", clip.copied, out.CopyNote)
	}
}

func TestCreateNoAutoCopyAndCopyFailure(t *testing.T) {
	api := &fakeAPI{resp: &model.CreateKeyResponse{UUID: "u", URI: "vless://x"}}
	clip := &fakeClip{err: ui.ErrNoTerminal}

	off := NewCreator(api, clip, func() bool { return false }, english, logger.Discard())
	if out, _ := off.Create(context.Background(), model.CreateKeyRequest{UserID: 1}); out.CopyNote != "" || len(clip.copied) != 0 {
		t.Fatalf("copied with auto_copy off: %+v", out)
	}

	on := NewCreator(api, clip, func() bool { return true }, english, logger.Discard())
	out, err := on.Create(context.Background(), model.CreateKeyRequest{UserID: 1})
	if err != nil || out.Kind != ui.OK || out.CopyNote != "Cannot copy URI in this browser context" {
		t.Fatalf("copy failure outcome = %+v, %v", out, err)
	}
}

func TestCreateEmptyURIWarns(t *testing.T) {
	api := &fakeAPI{resp: &model.CreateKeyResponse{UUID: "u"}}
	clip := &fakeClip{}
	c := NewCreator(api, clip, func() bool { return true }, english, logger.Discard())
	out, err := c.Create(context.Background(), model.CreateKeyRequest{UserID: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Kind != ui.Warn || !strings.Contains(out.Message, "URI is empty") || len(clip.copied) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestCreateBackendErrorMapped(t *testing.T) {
	api := &fakeAPI{err: errors.New("Active key already exists for user_id=5")}
	c := NewCreator(api, nil, nil, english, logger.Discard())
	out, err := c.Create(context.Background(), model.CreateKeyRequest{UserID: 5})
	if err == nil || out.Kind != ui.Err || out.Message != "This user already has an active key." {
		t.Fatalf("outcome = %+v, %v", out, err)
	}

	api.err = errors.New("boom")
	out, _ = c.Create(context.Background(), model.CreateKeyRequest{UserID: 5})
	if out.Message != "Could not create client key." {
		t.Fatalf("fallback message = %q", out.Message)
	}
}

func TestCreateRejectsReentry(t *testing.T) {
	api := &fakeAPI{resp: &model.CreateKeyResponse{UUID: "u", URI: "vless://x"}, release: make(chan struct{})}
	c := NewCreator(api, nil, nil, english, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(context.Background(), model.CreateKeyRequest{UserID: 1})
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for !c.InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("first request never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := c.Create(context.Background(), model.CreateKeyRequest{UserID: 2}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second create err = %v", err)
	}
	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("first create: %v", err)
	}
	if c.InFlight() {
		t.Fatal("guard not released")
	}
}

func TestQRRendering(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQR(&buf, "vless://uuid@host:443"); err != nil {
		t.Fatalf("WriteQR: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("qr too small: %d lines", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if len([]rune(l)) != width {
			t.Fatalf("ragged line %d", i)
		}
	}

	buf.Reset()
	if err := WritePNG(&buf, "vless://uuid@host:443", 200); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Fatalf("png width = %d", img.Bounds().Dx())
	}
}

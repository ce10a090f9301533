package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/najahiiii/lunetctl/internal/appearance"
)

type Kind string

const (
	OK   Kind = "ok"
	Info Kind = "info"
	Warn Kind = "warn"
	Err  Kind = "err"
)

// Status is the outcome line an action leaves behind.
type Status struct {
	Kind    Kind
	Message string
}

// ToastLifetime is how long a toast stays relevant. The same message is not
// repeated within it, which keeps a failing poll loop from flooding stderr.
const ToastLifetime = 3600 * time.Millisecond

// Notifier prints one-line toasts. Visibility and colours are read on every
// call so preference and theme changes apply immediately.
type Notifier struct {
	w       io.Writer
	enabled func() bool
	palette func() appearance.Palette

	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket // kind|message
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewNotifier(w io.Writer, enabled func() bool, palette func() appearance.Palette) *Notifier {
	return &Notifier{w: w, enabled: enabled, palette: palette, now: time.Now, buckets: map[string]*bucket{}}
}

// Show prints msg unless toasts are disabled or the same message was shown
// within ToastLifetime. It reports whether anything was written.
func (n *Notifier) Show(kind Kind, msg string) bool {
	if n == nil || msg == "" {
		return false
	}
	if n.enabled != nil && !n.enabled() {
		return false
	}
	var p appearance.Palette
	if n.palette != nil {
		p = n.palette()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.allowLocked(string(kind) + "|" + msg) {
		return false
	}
	_, err := fmt.Fprintln(n.w, p.Paint(colorFor(p, kind), msg))
	return err == nil
}

// allowLocked takes a token for key. Buckets idle for a full lifetime are
// dropped first: their limiters are full again, so forgetting them is free.
func (n *Notifier) allowLocked(key string) bool {
	now := n.now()
	for k, b := range n.buckets {
		if now.Sub(b.seen) >= ToastLifetime {
			delete(n.buckets, k)
		}
	}
	b, ok := n.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(ToastLifetime), 1)}
		n.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func colorFor(p appearance.Palette, kind Kind) string {
	switch kind {
	case OK:
		return p.OK
	case Warn:
		return p.Warn
	case Err:
		return p.Err
	default:
		return p.Info
	}
}

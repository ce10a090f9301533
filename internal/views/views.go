package views

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/najahiiii/lunetctl/internal/appearance"
	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/logger"
	"github.com/najahiiii/lunetctl/internal/prefs"
	"github.com/najahiiii/lunetctl/internal/ui"
)

// clearScreen moves the cursor home and wipes the terminal before a watch frame.
const clearScreen = "\x1b[H\x1b[2J"

// Env is what every view needs to render. Language, theme and preferences are
// read on each render so a change from another process shows on the next frame.
type Env struct {
	Out   io.Writer
	Look  *appearance.Service
	Prefs *prefs.Store
	Toast *ui.Notifier
	Log   *slog.Logger
	// Clear wipes the screen before each render; set in watch mode.
	Clear bool
	// Plain drops colours, for output that is not a terminal.
	Plain bool
}

func (e Env) tr() i18n.Translator {
	if e.Look == nil {
		return i18n.New(i18n.EN)
	}
	return e.Look.Translator()
}

func (e Env) palette() appearance.Palette {
	if e.Look == nil || e.Plain {
		return appearance.Palette{}
	}
	return e.Look.Palette()
}

func (e Env) prefs() prefs.Prefs {
	if e.Prefs == nil {
		return prefs.Defaults()
	}
	return e.Prefs.Get()
}

func (e Env) log() *slog.Logger {
	if e.Log == nil {
		return logger.Discard()
	}
	return e.Log
}

func (e Env) toast(kind ui.Kind, msg string) {
	if e.Toast != nil {
		e.Toast.Show(kind, msg)
	}
}

// frame buffers one render so a watch refresh replaces the screen in one write.
type frame struct {
	b strings.Builder
	p appearance.Palette
}

func (f *frame) title(s string) {
	fmt.Fprintln(&f.b, f.p.Paint(f.p.Title, s))
}

func (f *frame) muted(s string) {
	fmt.Fprintln(&f.b, f.p.Paint(f.p.Muted, s))
}

func (f *frame) line(format string, args ...any) {
	fmt.Fprintf(&f.b, format+"\n", args...)
}

func (f *frame) blank() {
	f.b.WriteByte('\n')
}

// table lays rows out in aligned columns. Colour codes must not be used inside
// cells because tabwriter counts their bytes as width.
func (f *frame) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(&f.b, 0, 0, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// kv prints label/value pairs as a two-column table.
func (f *frame) kv(pairs ...[2]string) {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{"  " + p[0], p[1]})
	}
	f.table(nil, rows)
}

func (e Env) flush(f *frame) error {
	out := f.b.String()
	if e.Clear {
		out = clearScreen + out
	}
	_, err := io.WriteString(e.Out, out)
	return err
}

func (e Env) newFrame() *frame {
	return &frame{p: e.palette()}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

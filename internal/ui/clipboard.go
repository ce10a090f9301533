package ui

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when the clipboard sequence has nowhere to go.
var ErrNoTerminal = errors.New("clipboard needs a terminal")

// Clipboard copies text by emitting an OSC 52 sequence, which most terminal
// emulators (and tmux with set-clipboard on) turn into a system clipboard write.
type Clipboard struct {
	w io.Writer
}

func NewClipboard(w io.Writer) *Clipboard {
	return &Clipboard{w: w}
}

// TerminalClipboard writes to the controlling terminal when one is attached
// to stdout, and otherwise refuses.
func TerminalClipboard() *Clipboard {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return &Clipboard{w: os.Stdout}
	}
	return &Clipboard{}
}

func (c *Clipboard) Copy(text string) error {
	if c == nil || c.w == nil {
		return ErrNoTerminal
	}
	if text == "" || text == "-" {
		return nil
	}
	seq := fmt.Sprintf("\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	if os.Getenv("TMUX") != "" {
		seq = "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
	}
	_, err := io.WriteString(c.w, seq)
	return err
}

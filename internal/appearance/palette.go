package appearance

import "fmt"

// Palette holds the ANSI sequences a view uses. The zero value renders plain text.
type Palette struct {
	Title  string
	Muted  string
	OK     string
	Warn   string
	Err    string
	Info   string
	Reset  string
	Series map[string]string
}

func rgb(r, g, b int) string {
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}

var (
	darkPalette = Palette{
		Title: "\x1b[1m" + rgb(0xe6, 0xee, 0xff),
		Muted: rgb(0x8a, 0x9b, 0xb8),
		OK:    rgb(0x38, 0xd3, 0x9f),
		Warn:  rgb(0xf3, 0xc1, 0x6a),
		Err:   rgb(0xff, 0x6b, 0x81),
		Info:  rgb(0x3a, 0xc9, 0xff),
		Reset: "\x1b[0m",
		Series: map[string]string{
			"cpu":     rgb(0xf3, 0xc1, 0x6a),
			"mem":     rgb(0xf5, 0x8f, 0xc2),
			"inbound": rgb(0x3a, 0xc9, 0xff),
			"users":   rgb(0x38, 0xd3, 0x9f),
			"keys":    rgb(0x8a, 0xa4, 0xff),
			"online":  rgb(0x53, 0xe0, 0xbf),
		},
	}
	lightPalette = Palette{
		Title: "\x1b[1m" + rgb(0x12, 0x1c, 0x2e),
		Muted: rgb(0x5b, 0x6b, 0x84),
		OK:    rgb(0x10, 0x8a, 0x62),
		Warn:  rgb(0xa8, 0x6b, 0x00),
		Err:   rgb(0xc0, 0x23, 0x3b),
		Info:  rgb(0x00, 0x6f, 0xa8),
		Reset: "\x1b[0m",
		Series: map[string]string{
			"cpu":     rgb(0xb3, 0x7a, 0x10),
			"mem":     rgb(0xb8, 0x3f, 0x80),
			"inbound": rgb(0x00, 0x7f, 0xb8),
			"users":   rgb(0x12, 0x8c, 0x63),
			"keys":    rgb(0x40, 0x57, 0xc8),
			"online":  rgb(0x0f, 0x93, 0x77),
		},
	}
)

func PaletteFor(th Theme) Palette {
	if th == Light {
		return lightPalette
	}
	return darkPalette
}

// Paint wraps s in code when the palette has colours.
func (p Palette) Paint(code, s string) string {
	if code == "" || p.Reset == "" {
		return s
	}
	return code + s + p.Reset
}

// Color returns the series colour, or "" for an unknown series.
func (p Palette) Color(series string) string {
	return p.Series[series]
}

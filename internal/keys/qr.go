package keys

import (
	"image/color"
	"image/png"
	"io"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// quietZone is the blank border scanners need around the symbol.
const quietZone = 2

func encodeQR(text string) (barcode.Barcode, error) {
	return qr.Encode(text, qr.M, qr.Auto)
}

// WriteQR renders text as a QR code using half-block characters, two
// modules per character row.
func WriteQR(w io.Writer, text string) error {
	code, err := encodeQR(text)
	if err != nil {
		return err
	}
	b := code.Bounds()
	dark := func(x, y int) bool {
		if x < b.Min.X || y < b.Min.Y || x >= b.Max.X || y >= b.Max.Y {
			return false
		}
		return isDark(code.At(x, y))
	}

	var sb strings.Builder
	for y := b.Min.Y - quietZone; y < b.Max.Y+quietZone; y += 2 {
		for x := b.Min.X - quietZone; x < b.Max.X+quietZone; x++ {
			top, bottom := dark(x, y), dark(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune(' ')
			case top:
				sb.WriteRune('▄')
			case bottom:
				sb.WriteRune('▀')
			default:
				sb.WriteRune('█')
			}
		}
		sb.WriteByte('\n')
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

// WritePNG writes a scaled PNG of the QR code.
func WritePNG(w io.Writer, text string, size int) error {
	code, err := encodeQR(text)
	if err != nil {
		return err
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return err
	}
	return png.Encode(w, scaled)
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}

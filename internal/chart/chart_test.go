package chart

import (
	"bytes"
	"strings"
	"testing"
)

func TestRowScaling(t *testing.T) {
	c := NewCanvas(10, 11)
	tests := []struct {
		v, max float64
		want   int
	}{
		{0, 100, 10},
		{100, 100, 0},
		{50, 100, 5},
		{250, 100, 0},
		{-3, 100, 10},
		{0.5, 0, 5},
	}
	for _, tt := range tests {
		if got := c.Row(tt.v, tt.max); got != tt.want {
			t.Fatalf("Row(%v, %v) = %d, want %d", tt.v, tt.max, got, tt.want)
		}
	}
}

func TestPlotConnectsPoints(t *testing.T) {
	c := NewCanvas(5, 5)
	c.Plot(Series{Values: []float64{0, 4}, Max: 4}, '#')
	// Last column must be filled from bottom to top.
	for y := 0; y < 5; y++ {
		if c.At(4, y) != '#' {
			t.Fatalf("gap at column 4 row %d", y)
		}
	}
	if c.At(0, 4) != '#' {
		t.Fatal("first point missing")
	}
}

func TestWindowMax(t *testing.T) {
	if got := WindowMax(); got != 1 {
		t.Fatalf("empty max = %v", got)
	}
	if got := WindowMax([]float64{0.2, 3}, []float64{7, 1}); got != 7 {
		t.Fatalf("max = %v", got)
	}
}

func TestGlyphClamped(t *testing.T) {
	if Glyph(0) != Glyph(2) || Glyph(9) != Glyph(6) {
		t.Fatal("glyph width not clamped")
	}
	if Glyph(3) == Glyph(5) {
		t.Fatal("widths should look different")
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, 12, 6, 3, Colors{}, Series{Name: "cpu", Values: []float64{10, 20, 30}, Max: 100})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("lines = %d", len(lines))
	}
	if strings.Contains(buf.String(), "\x1b") {
		t.Fatal("plain render contains escape codes")
	}
	if !strings.ContainsRune(buf.String(), Glyph(3)) {
		t.Fatal("series not drawn")
	}
}

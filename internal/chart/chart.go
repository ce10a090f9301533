package chart

import (
	"io"
	"math"
	"strings"
)

// Series is one line on a chart. Max is the value mapped to the top row;
// zero or negative means 1.
type Series struct {
	Name   string
	Color  string
	Values []float64
	Max    float64
}

type cell struct {
	r     rune
	color string
}

// Canvas is a fixed-size grid of terminal cells.
type Canvas struct {
	Width  int
	Height int
	Grid   string
	Reset  string

	cells [][]cell
}

var lineGlyphs = map[int]rune{2: '·', 3: '•', 4: '●', 5: '◆', 6: '█'}

// Glyph maps a line width in [2,6] to the rune used to plot it.
func Glyph(width int) rune {
	return lineGlyphs[min(6, max(2, width))]
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{Width: max(2, width), Height: max(2, height)}
	c.Clear()
	return c
}

// Clear blanks the canvas and draws the five horizontal guide lines.
func (c *Canvas) Clear() {
	c.cells = make([][]cell, c.Height)
	for y := range c.cells {
		c.cells[y] = make([]cell, c.Width)
		for x := range c.cells[y] {
			c.cells[y][x] = cell{r: ' '}
		}
	}
	for i := 1; i <= 5; i++ {
		y := c.Height * i / 6
		if y <= 0 || y >= c.Height {
			continue
		}
		for x := range c.cells[y] {
			c.cells[y][x] = cell{r: '┈', color: c.Grid}
		}
	}
}

// Row maps v onto a row index for a chart topping out at maxValue.
func (c *Canvas) Row(v, maxValue float64) int {
	if maxValue <= 0 || math.IsNaN(maxValue) {
		maxValue = 1
	}
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	frac := min(1, v/maxValue)
	return c.Height - 1 - int(math.Round(frac*float64(c.Height-1)))
}

// Column spreads n points evenly across the width.
func (c *Canvas) Column(i, n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Round(float64(i) / float64(n-1) * float64(c.Width-1)))
}

// Plot draws s, joining consecutive points with vertical strokes so the line
// stays connected when it jumps several rows.
func (c *Canvas) Plot(s Series, glyph rune) {
	n := len(s.Values)
	if n == 0 {
		return
	}
	prevX, prevY := -1, -1
	for i, v := range s.Values {
		x, y := c.Column(i, n), c.Row(v, s.Max)
		if prevX >= 0 {
			for xx := prevX + 1; xx < x; xx++ {
				c.set(xx, prevY+(y-prevY)*(xx-prevX)/(x-prevX), glyph, s.Color)
			}
			lo, hi := min(prevY, y), max(prevY, y)
			for yy := lo; yy <= hi; yy++ {
				c.set(x, yy, glyph, s.Color)
			}
		}
		c.set(x, y, glyph, s.Color)
		prevX, prevY = x, y
	}
}

func (c *Canvas) set(x, y int, r rune, color string) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	c.cells[y][x] = cell{r: r, color: color}
}

// At returns the rune at (x, y); used by tests and by callers composing legends.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.cells[y][x].r
}

func (c *Canvas) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, row := range c.cells {
		current := ""
		for _, cl := range row {
			if cl.color != current && c.Reset != "" {
				if current != "" {
					b.WriteString(c.Reset)
				}
				b.WriteString(cl.color)
				current = cl.color
			}
			b.WriteRune(cl.r)
		}
		if current != "" {
			b.WriteString(c.Reset)
		}
		b.WriteByte('\n')
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WindowMax is the largest value across all series, at least 1. Scales come
// from what is currently held, so the axis moves as old samples age out.
func WindowMax(series ...[]float64) float64 {
	m := 1.0
	for _, s := range series {
		for _, v := range s {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Render draws every series on a fresh canvas and writes it to w.
func Render(w io.Writer, width, height, lineWidth int, palette Colors, series ...Series) error {
	c := NewCanvas(width, height)
	c.Grid, c.Reset = palette.Grid, palette.Reset
	c.Clear()
	g := Glyph(lineWidth)
	for _, s := range series {
		c.Plot(s, g)
	}
	_, err := c.WriteTo(w)
	return err
}

// Colors carries the ANSI codes Render needs; zero value draws plain text.
type Colors struct {
	Grid  string
	Reset string
}

package tui

import (
	"math"

	"github.com/yoockh/voicerelay/internal/spectrum"
)

const (
	barRune    = '█'
	circleRune = '·'
)

// Cell is one character of the rasterised visualisation. Color is empty for
// background cells.
type Cell struct {
	Rune  rune
	Color string
}

// Rasterize projects the ring's canvas onto a cols×rows character grid. The
// inner circle is drawn first and bars on top of it.
func Rasterize(ring spectrum.Ring, bars []spectrum.Bar, cols, rows int, circleColor string) [][]Cell {
	grid := make([][]Cell, rows)
	for r := range grid {
		grid[r] = make([]Cell, cols)
		for c := range grid[r] {
			grid[r][c] = Cell{Rune: ' '}
		}
	}
	if cols <= 0 || rows <= 0 || ring.Width <= 0 || ring.Height <= 0 {
		return grid
	}

	set := func(x, y float64, cell Cell) {
		c := int(x / ring.Width * float64(cols))
		r := int(y / ring.Height * float64(rows))
		if c < 0 || c >= cols || r < 0 || r >= rows {
			return
		}
		grid[r][c] = cell
	}

	cx, cy := ring.Center()
	inner := ring.Radius - 10
	if inner > 0 {
		steps := int(2 * math.Pi * inner)
		for i := 0; i < steps; i++ {
			a := 2 * math.Pi * float64(i) / float64(steps)
			set(cx+math.Cos(a)*inner, cy+math.Sin(a)*inner, Cell{Rune: circleRune, Color: circleColor})
		}
	}

	for _, b := range bars {
		if b.Length <= 0 {
			continue
		}
		cell := Cell{Rune: barRune, Color: b.Color.Hex()}
		steps := int(math.Ceil(b.Length))
		for i := 0; i <= steps; i++ {
			t := float64(i) / float64(steps)
			set(b.X1+(b.X2-b.X1)*t, b.Y1+(b.Y2-b.Y1)*t, cell)
		}
	}
	return grid
}

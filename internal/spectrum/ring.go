package spectrum

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Bar is one radial line of the circular visualisation, in canvas units.
type Bar struct {
	X1, Y1 float64
	X2, Y2 float64
	Length float64
	Hue    float64
	Color  colorful.Color
}

// Ring lays out Bars radial bars around the canvas centre.
type Ring struct {
	Bars      int
	Width     float64
	Height    float64
	Radius    float64
	MaxLength float64
}

func DefaultRing() Ring {
	return Ring{Bars: 64, Width: 400, Height: 400, Radius: 120, MaxLength: 80}
}

func (r Ring) Center() (float64, float64) { return r.Width / 2, r.Height / 2 }

// Layout maps frequency data onto bars. Bar i samples data[i*len(data)/Bars];
// its length is proportional to the value and its hue to i.
func (r Ring) Layout(data []byte) []Bar {
	if r.Bars <= 0 {
		return nil
	}
	cx, cy := r.Center()
	bars := make([]Bar, r.Bars)
	for i := range bars {
		angle := 2 * math.Pi * float64(i) / float64(r.Bars)

		var v byte
		if len(data) > 0 {
			v = data[i*len(data)/r.Bars]
		}
		length := float64(v) / 255 * r.MaxLength

		cos, sin := math.Cos(angle), math.Sin(angle)
		hue := float64(i) / float64(r.Bars) * 360
		bars[i] = Bar{
			X1:     cx + cos*r.Radius,
			Y1:     cy + sin*r.Radius,
			X2:     cx + cos*(r.Radius+length),
			Y2:     cy + sin*(r.Radius+length),
			Length: length,
			Hue:    hue,
			Color:  colorful.Hsl(hue, 0.8, 0.6),
		}
	}
	return bars
}

package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(bin int, amplitude float64, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*float64(bin)*float64(i)/FFTSize))
	}
	return out
}

func TestAnalyser_Silence(t *testing.T) {
	a := NewAnalyser()
	a.Write(make([]int16, FFTSize))

	data := a.ByteFrequencyData(nil)
	require.Len(t, data, BinCount)
	for _, v := range data {
		assert.Zero(t, v)
	}
}

func TestAnalyser_SinePeak(t *testing.T) {
	a := NewAnalyser()
	a.Write(sine(16, 0.5, FFTSize))

	var data []byte
	for range 40 {
		data = a.ByteFrequencyData(data)
	}

	assert.Equal(t, byte(255), data[16])
	for k, v := range data {
		assert.LessOrEqual(t, v, data[16], "bin %d", k)
	}
	assert.Less(t, data[100], byte(200))
	assert.Equal(t, BinCount, a.FrequencyBinCount())
}

func TestAnalyser_SmoothingRisesGradually(t *testing.T) {
	a := NewAnalyser()
	a.Write(sine(32, 0.01, FFTSize))

	first := a.ByteFrequencyData(nil)[32]
	var last byte
	for range 40 {
		last = a.ByteFrequencyData(nil)[32]
	}
	assert.Less(t, first, last)
}

func TestAnalyser_KeepsLatestWindow(t *testing.T) {
	a := NewAnalyser()
	a.Write(sine(16, 0.5, FFTSize))
	// a full window of silence replaces the tone
	a.Write(make([]int16, FFTSize*2))

	a.Reset()
	data := a.ByteFrequencyData(nil)
	for _, v := range data {
		assert.Zero(t, v)
	}
}

func TestBlackman(t *testing.T) {
	w := blackman(FFTSize)
	assert.InDelta(t, 0.0, w[0], 1e-9)
	assert.InDelta(t, 1.0, w[FFTSize/2], 1e-9)
}

func TestRing_Geometry(t *testing.T) {
	r := DefaultRing()
	cx, cy := r.Center()
	assert.Equal(t, 200.0, cx)
	assert.Equal(t, 200.0, cy)

	bars := r.Layout(make([]byte, BinCount))
	require.Len(t, bars, 64)

	assert.InDelta(t, 320, bars[0].X1, 1e-9)
	assert.InDelta(t, 200, bars[0].Y1, 1e-9)
	assert.Zero(t, bars[0].Length)
	assert.InDelta(t, 200, bars[16].X1, 1e-9)
	assert.InDelta(t, 320, bars[16].Y1, 1e-9)
}

func TestRing_LengthAndIndex(t *testing.T) {
	r := DefaultRing()
	data := make([]byte, BinCount)
	for k := range data {
		data[k] = byte(k)
	}
	data[0] = 255

	bars := r.Layout(data)
	assert.InDelta(t, 80, bars[0].Length, 1e-9)
	assert.InDelta(t, 400, bars[0].X2, 1e-9)
	// bar i reads data[i*128/64] == 2i
	assert.InDelta(t, float64(2*10)/255*80, bars[10].Length, 1e-9)
	assert.InDelta(t, float64(2*63)/255*80, bars[63].Length, 1e-9)
}

func TestRing_Hue(t *testing.T) {
	bars := DefaultRing().Layout(nil)
	assert.Equal(t, 0.0, bars[0].Hue)
	assert.Equal(t, 180.0, bars[32].Hue)
	assert.Equal(t, "#eb4747", bars[0].Color.Hex())

	h, s, l := bars[32].Color.Hsl()
	assert.InDelta(t, 180, h, 0.5)
	assert.InDelta(t, 0.8, s, 0.01)
	assert.InDelta(t, 0.6, l, 0.01)
}

func TestRing_Empty(t *testing.T) {
	assert.Nil(t, Ring{}.Layout([]byte{1, 2}))
}

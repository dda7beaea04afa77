// Package spectrum turns captured samples into the byte frequency data and
// circular bar layout drawn by the capture client.
package spectrum

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	FFTSize   = 256
	BinCount  = FFTSize / 2
	Smoothing = 0.8

	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// Analyser mirrors a Web Audio AnalyserNode with fftSize 256: it keeps the
// most recent FFTSize samples and reports smoothed, dB-scaled magnitudes as
// bytes.
type Analyser struct {
	mu sync.Mutex

	fft    *fourier.FFT
	window []float64
	ring   []float64
	pos    int

	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

func NewAnalyser() *Analyser {
	return &Analyser{
		fft:      fourier.NewFFT(FFTSize),
		window:   blackman(FFTSize),
		ring:     make([]float64, FFTSize),
		frame:    make([]float64, FFTSize),
		coeffs:   make([]complex128, FFTSize/2+1),
		smoothed: make([]float64, BinCount),
	}
}

func (a *Analyser) FrequencyBinCount() int { return BinCount }

// Write appends samples to the time-domain window.
func (a *Analyser) Write(samples []int16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(samples) > FFTSize {
		samples = samples[len(samples)-FFTSize:]
	}
	for _, s := range samples {
		a.ring[a.pos] = float64(s) / 32768
		a.pos = (a.pos + 1) % FFTSize
	}
}

// ByteFrequencyData fills dst (grown to BinCount if needed) with the current
// spectrum. Each call advances the smoothing state, like one animation frame.
func (a *Analyser) ByteFrequencyData(dst []byte) []byte {
	if cap(dst) < BinCount {
		dst = make([]byte, BinCount)
	}
	dst = dst[:BinCount]

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.frame {
		a.frame[i] = a.ring[(a.pos+i)%FFTSize] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	const scale = 255 / (MaxDecibels - MinDecibels)
	for k := 0; k < BinCount; k++ {
		mag := cmplxAbs(a.coeffs[k]) / FFTSize
		a.smoothed[k] = Smoothing*a.smoothed[k] + (1-Smoothing)*mag
		dst[k] = toByte(scale * (toDecibels(a.smoothed[k]) - MinDecibels))
	}
	return dst
}

// Reset clears both the sample window and the smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.ring)
	clear(a.smoothed)
	a.pos = 0
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0, a1, a2 := 0.5*(1-alpha), 0.5, 0.5*alpha
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func toDecibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

func toByte(v float64) byte {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

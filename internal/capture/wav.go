package capture

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/yoockh/voicerelay/internal/utils"
)

// WAVSource replays a PCM WAV file. With realtime set, Read is paced to the
// file's sample rate so downstream consumers see live-like timing.
type WAVSource struct {
	mu       sync.Mutex
	f        *os.File
	dec      *wav.Decoder
	format   Format
	bitDepth int
	buf      *audio.IntBuffer

	realtime bool
	started  time.Time
	frames   int64
	closed   bool
	now      func() time.Time
	sleep    func(time.Duration)
}

func OpenWAV(path string, realtime bool) (*WAVSource, error) {
	const op = "capture.OpenWAV"

	f, err := os.Open(path)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "open input", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, utils.E(utils.CodeInvalidArgument, op, "not a PCM wav file", nil)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return nil, utils.E(utils.CodeInvalidArgument, op, "locate PCM chunk", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	return &WAVSource{
		f:        f,
		dec:      dec,
		format:   Format{SampleRate: int(dec.SampleRate), Channels: 1},
		bitDepth: int(dec.BitDepth),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		},
		realtime: realtime,
		now:      time.Now,
		sleep:    time.Sleep,
	}, nil
}

func (w *WAVSource) Format() Format { return w.format }

func (w *WAVSource) Read(out []int16) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.EOF
	}
	if len(out) == 0 {
		return 0, nil
	}

	channels := w.buf.Format.NumChannels
	need := len(out) * channels
	if cap(w.buf.Data) < need {
		w.buf.Data = make([]int, need)
	}
	w.buf.Data = w.buf.Data[:need]

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, "WAVSource.Read", "decode", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	frames := n / channels
	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += w.buf.Data[i*channels+ch]
		}
		out[i] = toInt16(sum/channels, w.bitDepth)
	}

	if w.realtime {
		w.pace(frames)
	}
	return frames, nil
}

func (w *WAVSource) pace(frames int) {
	if w.started.IsZero() {
		w.started = w.now()
	}
	w.frames += int64(frames)
	due := time.Duration(w.frames) * time.Second / time.Duration(w.format.SampleRate)
	if ahead := due - w.now().Sub(w.started); ahead > 0 {
		w.sleep(ahead)
	}
}

func (w *WAVSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}

// toInt16 rescales a decoded sample of the given bit depth to 16 bits.
func toInt16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		// 8-bit PCM is unsigned
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	default:
		return int16(v)
	}
}

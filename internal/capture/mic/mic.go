// Package mic captures from a PortAudio input device.
package mic

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/utils"
)

const (
	SampleRate      = 16000
	FramesPerBuffer = 512
)

// Device is an input-capable PortAudio device.
type Device struct {
	Index    int
	Name     string
	Channels int
	Default  bool
}

// Devices lists input devices. PortAudio is initialised for the duration of
// the call.
func Devices() ([]Device, error) {
	const op = "mic.Devices"

	if err := portaudio.Initialize(); err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "initialize portaudio", err)
	}
	defer portaudio.Terminate()

	all, err := portaudio.Devices()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "list devices", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []Device
	for i, d := range all {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:    i,
			Name:     d.Name,
			Channels: d.MaxInputChannels,
			Default:  def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

// Mic is a mono 16kHz capture.Source.
type Mic struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	pos    int
	closed bool
}

var _ capture.Source = (*Mic)(nil)

// Open starts capturing from the device at index, or the default input when
// index is negative. Any failure to reach the device is reported as
// CodePermissionDenied.
func Open(index int) (*Mic, error) {
	const op = "mic.Open"

	if err := portaudio.Initialize(); err != nil {
		return nil, utils.E(utils.CodePermissionDenied, op, "initialize portaudio", err)
	}

	device, err := pick(index)
	if err != nil {
		portaudio.Terminate()
		return nil, utils.E(utils.CodePermissionDenied, op, "no input device", err)
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = SampleRate
	params.FramesPerBuffer = FramesPerBuffer

	buf := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, utils.E(utils.CodePermissionDenied, op, "open input stream", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		portaudio.Terminate()
		return nil, utils.E(utils.CodePermissionDenied, op, "start input stream", err)
	}

	return &Mic{stream: stream, buf: buf, pos: len(buf)}, nil
}

func pick(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		return portaudio.DefaultInputDevice()
	}
	all, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if index >= len(all) || all[index].MaxInputChannels < 1 {
		return nil, utils.E(utils.CodeInvalidArgument, "mic.pick", "device index out of range", nil)
	}
	return all[index], nil
}

func (m *Mic) Format() capture.Format {
	return capture.Format{SampleRate: SampleRate, Channels: 1}
}

func (m *Mic) Read(out []int16) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, utils.E(utils.CodeUnavailable, "Mic.Read", "closed", nil)
	}
	if m.pos >= len(m.buf) {
		if err := m.stream.Read(); err != nil && err != portaudio.InputOverflowed {
			return 0, utils.E(utils.CodeUnavailable, "Mic.Read", "read stream", err)
		}
		m.pos = 0
	}
	n := copy(out, m.buf[m.pos:])
	m.pos += n
	return n, nil
}

func (m *Mic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	_ = m.stream.Stop()
	err := m.stream.Close()
	portaudio.Terminate()
	return err
}

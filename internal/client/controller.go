// Package client drives the capture client: one audio source feeding the
// spectrum visualiser and at most one transcription source.
package client

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/providers/stt"
	"github.com/yoockh/voicerelay/internal/spectrum"
	"github.com/yoockh/voicerelay/internal/utils"
)

const (
	DefaultServerURL = "ws://localhost:8080/transcribe"
	DefaultTimeslice = 500 * time.Millisecond
	DefaultFPS       = 30

	readChunk = 1024
	stopWait  = 3 * time.Second
)

// Recognizer runs one continuous recognition session over LINEAR16 audio.
// It returns nil when the session ends naturally.
type Recognizer interface {
	Recognize(ctx context.Context, audio <-chan []byte, emit func(stt.StreamResult)) error
}

// Display draws frames produced by the render loop.
type Display interface {
	Render(Frame) error
}

// Frame is everything a display needs for one redraw.
type Frame struct {
	State      State
	Mode       Mode
	Status     Status
	Ring       spectrum.Ring
	Bars       []spectrum.Bar
	Transcript string
}

type Options struct {
	Mode      Mode
	ServerURL string
	Timeslice time.Duration
	FPS       int

	OpenSource func() (capture.Source, error)
	// Recognizer backs ModeNative; nil means recognition is unsupported.
	Recognizer Recognizer
	// RestartPause delays restarting Recognizer after it fails.
	RestartPause time.Duration
	Display      Display
	Dialer       *websocket.Dialer
	Ring         spectrum.Ring
	Logger       *logrus.Logger
}

// audioSink receives every captured block. Feed must not block.
type audioSink interface {
	Feed(samples []int16)
}

type Controller struct {
	opts       Options
	log        *logrus.Logger
	analyser   *spectrum.Analyser
	transcript *Transcript

	smu    sync.RWMutex
	status Status

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	group       *errgroup.Group
	source      capture.Source
	relay       *relayLink
	captureDone chan struct{}
}

func New(opts Options) *Controller {
	if opts.ServerURL == "" {
		opts.ServerURL = DefaultServerURL
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = DefaultTimeslice
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.RestartPause <= 0 {
		opts.RestartPause = DefaultRestartPause
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Ring.Bars == 0 {
		opts.Ring = spectrum.DefaultRing()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Controller{
		opts:       opts,
		log:        opts.Logger,
		analyser:   spectrum.NewAnalyser(),
		transcript: &Transcript{},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() Status {
	c.smu.RLock()
	defer c.smu.RUnlock()
	return c.status
}

func (c *Controller) setStatus(s Status) {
	c.smu.Lock()
	prev := c.status
	c.status = s
	c.smu.Unlock()
	if prev != s {
		c.log.WithField("status", s.Text()).Info("status changed")
	}
}

func (c *Controller) Transcript() string { return c.transcript.String() }

// CaptureDone is closed when the audio source of the current run is
// exhausted or fails. It is nil before the first Start.
func (c *Controller) CaptureDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captureDone
}

// Start opens the audio source and launches the capture pump, the render loop
// and the selected transcription source. A source that cannot be opened
// fails Start with CodePermissionDenied and nothing else is started.
func (c *Controller) Start(ctx context.Context) error {
	const op = "Controller.Start"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCapturing {
		return utils.E(utils.CodeConflict, op, "already capturing", nil)
	}
	if c.opts.OpenSource == nil {
		return utils.E(utils.CodeInvalidArgument, op, "no audio source configured", nil)
	}

	src, err := c.opts.OpenSource()
	if err != nil {
		if !utils.IsCode(err, utils.CodePermissionDenied) {
			err = utils.E(utils.CodePermissionDenied, op, "could not access audio input", err)
		}
		c.log.WithError(err).Error("audio input unavailable")
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	c.analyser.Reset()
	c.state = StateCapturing
	c.cancel = cancel
	c.group = g
	c.source = src
	c.relay = nil
	c.captureDone = make(chan struct{})

	var sink audioSink
	switch c.opts.Mode {
	case ModeNative:
		sink = c.startNative(gctx, g)
	case ModeRelay:
		c.relay = c.startRelay(gctx, g)
		sink = c.relay
	}

	done := c.captureDone
	g.Go(func() error { return c.pump(gctx, src, sink, done) })
	g.Go(func() error { return c.render(gctx) })

	c.log.WithFields(logrus.Fields{
		"mode":        c.opts.Mode.String(),
		"sample_rate": src.Format().SampleRate,
	}).Info("capture started")
	return nil
}

// Stop tears the run down. It is best-effort: failures are logged and a
// goroutine that does not wind down within a few seconds is abandoned.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateCapturing {
		c.mu.Unlock()
		return
	}
	cancel, g, src, link := c.cancel, c.group, c.source, c.relay
	c.state = StateIdle
	c.cancel, c.group, c.source, c.relay = nil, nil, nil, nil
	c.mu.Unlock()

	cancel()
	if link != nil {
		link.close()
	}
	if err := src.Close(); err != nil {
		c.log.WithError(err).Warn("closing audio input failed")
	}

	waited := make(chan error, 1)
	go func() { waited <- g.Wait() }()
	select {
	case err := <-waited:
		if err != nil {
			c.log.WithError(err).Warn("capture ended with error")
		}
	case <-time.After(stopWait):
		c.log.Warn("capture did not stop in time")
	}

	c.setStatus(StatusDisconnected)
	c.analyser.Reset()
	if c.opts.Display != nil {
		if err := c.opts.Display.Render(c.Frame()); err != nil {
			c.log.WithError(err).Debug("final render failed")
		}
	}
	c.log.Info("capture stopped")
}

// Frame samples the analyser, advancing its smoothing by one animation
// frame, and lays out the ring.
func (c *Controller) Frame() Frame {
	data := c.analyser.ByteFrequencyData(nil)
	return Frame{
		State:      c.State(),
		Mode:       c.opts.Mode,
		Status:     c.Status(),
		Ring:       c.opts.Ring,
		Bars:       c.opts.Ring.Layout(data),
		Transcript: c.transcript.String(),
	}
}

func (c *Controller) pump(ctx context.Context, src capture.Source, sink audioSink, done chan<- struct{}) error {
	defer close(done)

	buf := make([]int16, readChunk)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := src.Read(buf)
		if n > 0 {
			c.analyser.Write(buf[:n])
			if sink != nil {
				sink.Feed(buf[:n])
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.log.Info("audio input exhausted")
				return nil
			}
			return utils.E(utils.CodeUnavailable, "Controller.pump", "read audio", err)
		}
	}
}

func (c *Controller) render(ctx context.Context) error {
	if c.opts.Display == nil {
		return nil
	}
	t := time.NewTicker(time.Second / time.Duration(c.opts.FPS))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := c.opts.Display.Render(c.Frame()); err != nil {
				c.log.WithError(err).Debug("render failed")
			}
		}
	}
}

package client

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/providers/stt"
	"github.com/yoockh/voicerelay/internal/utils"
)

// toneSource yields a paced sine wave until closed or limit samples are read.
type toneSource struct {
	mu     sync.Mutex
	closed bool
	n      int
	limit  int
}

func (s *toneSource) Format() capture.Format { return capture.Format{SampleRate: 16000, Channels: 1} }

func (s *toneSource) Read(buf []int16) (int, error) {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.limit > 0 && s.n >= s.limit {
		return 0, io.EOF
	}
	for i := range buf {
		buf[i] = int16(16000 * math.Sin(2*math.Pi*float64(s.n+i)/16))
	}
	s.n += len(buf)
	return len(buf), nil
}

func (s *toneSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *toneSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type recordingDisplay struct {
	mu     sync.Mutex
	frames []Frame
}

func (d *recordingDisplay) Render(f Frame) error {
	d.mu.Lock()
	d.frames = append(d.frames, f)
	d.mu.Unlock()
	return nil
}

func (d *recordingDisplay) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func (d *recordingDisplay) last() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames[len(d.frames)-1]
}

// scriptedRecognizer plays one step per session, then blocks until cancelled.
type scriptedRecognizer struct {
	steps    []func(emit func(stt.StreamResult)) error
	sessions atomic.Int32
}

func (r *scriptedRecognizer) Recognize(ctx context.Context, _ <-chan []byte, emit func(stt.StreamResult)) error {
	i := int(r.sessions.Add(1)) - 1
	if i < len(r.steps) {
		return r.steps[i](emit)
	}
	<-ctx.Done()
	return ctx.Err()
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newController(opts Options) (*Controller, *toneSource) {
	src := &toneSource{}
	if opts.OpenSource == nil {
		opts.OpenSource = func() (capture.Source, error) { return src, nil }
	}
	if opts.FPS == 0 {
		opts.FPS = 100
	}
	opts.Logger = quiet()
	return New(opts), src
}

func TestStart_PermissionDenied(t *testing.T) {
	disp := &recordingDisplay{}
	c, _ := newController(Options{
		Mode:       ModeNative,
		Display:    disp,
		OpenSource: func() (capture.Source, error) { return nil, errors.New("device busy") },
	})

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodePermissionDenied))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, StatusIdle, c.Status())

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, disp.count())
}

func TestStart_WhileCapturingConflicts(t *testing.T) {
	c, _ := newController(Options{Mode: ModeNone})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	err := c.Start(context.Background())
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
	assert.Equal(t, StateCapturing, c.State())
}

func TestNative_Unsupported(t *testing.T) {
	disp := &recordingDisplay{}
	c, src := newController(Options{Mode: ModeNative, Display: disp})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StatusUnsupported, c.Status())
	assert.Equal(t, UnsupportedMessage, c.Transcript())

	// visualisation keeps running
	require.Eventually(t, func() bool { return disp.count() >= 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, b := range c.Frame().Bars {
			if b.Length > 0 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	c.Stop()
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.True(t, src.isClosed())

	final := disp.last()
	assert.Equal(t, StatusDisconnected, final.Status)
	for _, b := range final.Bars {
		assert.Zero(t, b.Length)
	}
}

func TestNative_RestartsAndAppendsFinals(t *testing.T) {
	rec := &scriptedRecognizer{steps: []func(func(stt.StreamResult)) error{
		func(emit func(stt.StreamResult)) error {
			emit(stt.StreamResult{Text: "hel"})
			emit(stt.StreamResult{Text: "hello", Final: true})
			return nil
		},
		func(func(stt.StreamResult)) error {
			return utils.E(utils.CodeTimeout, "test", "ended", stt.ErrNoSpeech)
		},
		func(emit func(stt.StreamResult)) error {
			emit(stt.StreamResult{Text: "world", Final: true})
			return errors.New("network down")
		},
	}}
	c, _ := newController(Options{Mode: ModeNative, Recognizer: rec, RestartPause: 10 * time.Millisecond})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StatusConnected, c.Status())

	require.Eventually(t, func() bool { return rec.sessions.Load() >= 4 }, time.Second, time.Millisecond)
	assert.Equal(t, "hello world ", c.Transcript())
	assert.Equal(t, StatusRecognitionError, c.Status())

	c.Stop()
	n := rec.sessions.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, rec.sessions.Load(), "no restart after stop")
}

func TestNative_NoSpeechIsSilent(t *testing.T) {
	rec := &scriptedRecognizer{steps: []func(func(stt.StreamResult)) error{
		func(func(stt.StreamResult)) error { return stt.ErrNoSpeech },
	}}
	c, _ := newController(Options{Mode: ModeNative, Recognizer: rec})

	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool { return rec.sessions.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, StatusConnected, c.Status())
}

// failingRecognizer fails every session immediately.
type failingRecognizer struct {
	calls atomic.Int32
}

func (r *failingRecognizer) Recognize(context.Context, <-chan []byte, func(stt.StreamResult)) error {
	r.calls.Add(1)
	return errors.New("refused")
}

func TestNative_FailedSessionsRestartPaced(t *testing.T) {
	rec := &failingRecognizer{}
	c, _ := newController(Options{Mode: ModeNative, Recognizer: rec, RestartPause: 50 * time.Millisecond})

	require.NoError(t, c.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	c.Stop()

	n := rec.calls.Load()
	assert.GreaterOrEqual(t, n, int32(2), "keeps restarting")
	assert.LessOrEqual(t, n, int32(6), "restarts are paced")
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestNative_StopInterruptsRestartPause(t *testing.T) {
	rec := &failingRecognizer{}
	c, _ := newController(Options{Mode: ModeNative, Recognizer: rec, RestartPause: time.Hour})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return rec.calls.Load() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	c.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, StateIdle, c.State())
}

// relayServer replies to every binary frame with a transcription and to the
// first one additionally with an error frame.
type relayServer struct {
	*httptest.Server
	mu     sync.Mutex
	frames [][]byte
	closed chan struct{}
}

func newRelayServer(t *testing.T, closeAfter int) *relayServer {
	t.Helper()
	rs := &relayServer{closed: make(chan struct{})}
	up := websocket.Upgrader{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(rs.closed)

		for i := 0; ; i++ {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			rs.mu.Lock()
			rs.frames = append(rs.frames, data)
			rs.mu.Unlock()
			if mt != websocket.BinaryMessage {
				continue
			}
			if i == 0 {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"Processing failed","text":""}`))
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"hi","timestamp":"2024-05-01T12:00:00.000Z"}`))
			if closeAfter > 0 && i+1 >= closeAfter {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *relayServer) wsURL() string { return "ws" + strings.TrimPrefix(rs.URL, "http") }

func (rs *relayServer) frameCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.frames)
}

func TestRelay_StreamsAndAppends(t *testing.T) {
	rs := newRelayServer(t, 0)
	c, _ := newController(Options{Mode: ModeRelay, ServerURL: rs.wsURL(), Timeslice: 20 * time.Millisecond})

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return c.Status() == StatusConnected }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return rs.frameCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return strings.HasPrefix(c.Transcript(), "hi hi ") }, time.Second, 5*time.Millisecond)

	rs.mu.Lock()
	for _, f := range rs.frames {
		assert.NotEmpty(t, f)
		assert.Zero(t, len(f)%2, "frames carry whole LINEAR16 samples")
	}
	rs.mu.Unlock()

	c.Stop()
	assert.Equal(t, StatusDisconnected, c.Status())
	select {
	case <-rs.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server connection was not closed")
	}
}

func TestRelay_DialFailure(t *testing.T) {
	rs := newRelayServer(t, 0)
	url := rs.wsURL()
	rs.Close()

	disp := &recordingDisplay{}
	c, _ := newController(Options{Mode: ModeRelay, ServerURL: url, Display: disp})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool { return c.Status() == StatusConnectionError }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, UnavailableMessage, c.Transcript())
	assert.Equal(t, StateCapturing, c.State())

	// no fallback: the visualiser keeps running, nothing else starts
	n := disp.count()
	require.Eventually(t, func() bool { return disp.count() > n }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusConnectionError, c.Status())
}

func TestRelay_ServerClose(t *testing.T) {
	rs := newRelayServer(t, 1)
	c, _ := newController(Options{Mode: ModeRelay, ServerURL: rs.wsURL(), Timeslice: 10 * time.Millisecond})
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool { return c.Status() == StatusDisconnected }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "hi ", c.Transcript())
}

func TestCaptureDone_OnEOF(t *testing.T) {
	src := &toneSource{limit: 4096}
	c, _ := newController(Options{
		Mode:       ModeNone,
		OpenSource: func() (capture.Source, error) { return src, nil },
	})
	assert.Nil(t, c.CaptureDone())

	require.NoError(t, c.Start(context.Background()))
	select {
	case <-c.CaptureDone():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not finish")
	}
	c.Stop()
	c.Stop()
	assert.Equal(t, StateIdle, c.State())
}

func TestOnRelayMessage(t *testing.T) {
	c, _ := newController(Options{})
	c.onRelayMessage([]byte(`{"text":"one","timestamp":"2024-05-01T12:00:00.000Z"}`))
	c.onRelayMessage([]byte(`{"error":"Processing failed","text":""}`))
	c.onRelayMessage([]byte(`not json`))
	c.onRelayMessage([]byte(`{"text":"two"}`))
	assert.Equal(t, "one two ", c.Transcript())
}

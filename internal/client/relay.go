package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/models"
)

const relayWriteWait = 5 * time.Second

// relayLink owns the socket to the relay server and the bytes captured since
// the last timeslice.
type relayLink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	pending []byte
	closed  bool

	wmu sync.Mutex
}

// Feed buffers audio only while connected; nothing is queued before the
// socket opens.
func (l *relayLink) Feed(samples []int16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil || l.closed {
		return
	}
	l.pending = append(l.pending, capture.PCM16LE(samples)...)
}

func (l *relayLink) attach(conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conn = conn
	return true
}

func (l *relayLink) take() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.pending
	l.pending = nil
	return b
}

func (l *relayLink) send(b []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return l.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (l *relayLink) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	conn := l.conn
	l.pending = nil
	l.mu.Unlock()

	if conn == nil {
		return
	}
	l.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	l.wmu.Unlock()
	_ = conn.Close()
}

func (c *Controller) startRelay(ctx context.Context, g *errgroup.Group) *relayLink {
	link := &relayLink{}
	c.setStatus(StatusConnecting)
	g.Go(func() error {
		c.runRelay(ctx, link)
		return nil
	})
	return link
}

func (c *Controller) runRelay(ctx context.Context, link *relayLink) {
	log := c.log.WithField("server", c.opts.ServerURL)

	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.ServerURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() == nil {
			c.connectionFailed(err)
		}
		return
	}
	if !link.attach(conn) {
		_ = conn.Close()
		return
	}
	defer link.close()

	log.Info("connected to transcription service")
	c.setStatus(StatusConnected)

	go c.frameAudio(ctx, link)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				log.Info("transcription service closed the connection")
				c.setStatus(StatusDisconnected)
			default:
				c.connectionFailed(err)
			}
			return
		}
		c.onRelayMessage(data)
	}
}

// frameAudio sends the audio captured during each timeslice as one binary
// frame; empty slices are skipped.
func (c *Controller) frameAudio(ctx context.Context, link *relayLink) {
	t := time.NewTicker(c.opts.Timeslice)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b := link.take()
			if len(b) == 0 {
				continue
			}
			if err := link.send(b); err != nil {
				c.log.WithError(err).Debug("sending audio frame failed")
				return
			}
			c.log.WithField("bytes", len(b)).Trace("sent audio frame")
		}
	}
}

func (c *Controller) onRelayMessage(data []byte) {
	var msg models.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.WithError(err).Warn("unreadable message from transcription service")
		return
	}
	if msg.IsError() {
		c.log.WithField("error", msg.Error).Warn("transcription service reported an error")
	}
	if msg.Text != "" {
		c.transcript.Append(msg.Text + " ")
	}
}

func (c *Controller) connectionFailed(err error) {
	c.log.WithError(err).Error("transcription service connection failed")
	c.setStatus(StatusConnectionError)
	c.transcript.Set(UnavailableMessage)
}

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicerelay/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	DefaultMaxMessageBytes int64 = 10 << 20
)

type WSHandler struct {
	relay           services.RelayService
	log             *logrus.Logger
	upgrader        websocket.Upgrader
	maxMessageBytes int64
	pingPeriod      time.Duration
}

func NewWSHandler(relay services.RelayService, maxMessageBytes int64, l *logrus.Logger) *WSHandler {
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}
	if l == nil {
		l = logrus.New()
	}
	return &WSHandler{
		relay:           relay,
		log:             l,
		maxMessageBytes: maxMessageBytes,
		pingPeriod:      pingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) SendText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error { return w.c.Close() }

// Transcribe upgrades the request and relays every inbound frame to the
// session's chunk buffer until the peer goes away. Plain HTTP requests get
// the liveness answer.
func (h *WSHandler) Transcribe(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		Liveness(c)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	wc := &wsConn{c: conn}
	sess := h.relay.Open(wc)
	log := h.log.WithField("session_id", sess.ID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer func() {
		cancel()
		h.relay.Close(sess)
		_ = wc.Close()
	}()

	go h.keepAlive(ctx, wc, log)

	conn.SetReadLimit(h.maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			if websocket.IsUnexpectedCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.WithError(rerr).Warn("websocket read failed")
			}
			return
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.relay.HandleChunk(ctx, sess, data); err != nil {
			// the error frame, if any, has already been sent
			log.WithError(err).Debug("chunk handling failed")
		}
	}
}

func (h *WSHandler) keepAlive(ctx context.Context, wc *wsConn, log *logrus.Entry) {
	t := time.NewTicker(h.pingPeriod)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := wc.ping(); err != nil {
				log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

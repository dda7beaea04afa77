package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicerelay/internal/metrics"
	"github.com/yoockh/voicerelay/internal/models"
	"github.com/yoockh/voicerelay/internal/providers/stt"
	"github.com/yoockh/voicerelay/internal/utils"
)

const (
	DefaultFlushThreshold = 3

	// ListeningText replaces an empty transcript from a delegated provider.
	ListeningText = "[listening...]"

	triggerThreshold = "threshold"
	triggerTimer     = "timer"
)

// ResultPublisher fans results out beyond the originating connection.
type ResultPublisher interface {
	Publish(ctx context.Context, sessionID string, res models.TranscriptionResult) error
}

type RelayConfig struct {
	Threshold     int
	FlushInterval time.Duration // 0 disables periodic flushing
	Language      string
}

// RelayService accumulates chunks per session and answers every flush with
// exactly one frame.
type RelayService interface {
	Open(conn Conn) *Session
	HandleChunk(ctx context.Context, s *Session, data []byte) error
	Close(s *Session)
	Shutdown(ctx context.Context) error
	Sessions() SessionService
}

type relayService struct {
	cfg       RelayConfig
	sessions  SessionService
	stt       stt.Provider
	publisher ResultPublisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewRelayService wires a relay. publisher may be nil.
func NewRelayService(cfg RelayConfig, sessions SessionService, provider stt.Provider, publisher ResultPublisher, m *metrics.Metrics, l *logrus.Logger) RelayService {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultFlushThreshold
	}
	if l == nil {
		l = logrus.New()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &relayService{
		cfg:       cfg,
		sessions:  sessions,
		stt:       provider,
		publisher: publisher,
		metrics:   m,
		log:       l,
		now:       time.Now,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

func (r *relayService) Sessions() SessionService { return r.sessions }

func (r *relayService) Open(conn Conn) *Session {
	s := r.sessions.Open(conn)
	r.metrics.RecordSessionOpened()

	if r.cfg.FlushInterval > 0 {
		s.mu.Lock()
		s.timer = time.AfterFunc(r.cfg.FlushInterval, func() { r.onTimer(s) })
		s.mu.Unlock()
	}

	r.log.WithField("session_id", s.ID).Info("New client connected")
	return s
}

func (r *relayService) HandleChunk(ctx context.Context, s *Session, data []byte) error {
	const op = "RelayService.HandleChunk"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return utils.E(utils.CodeNotFound, op, "session closed", nil)
	}

	s.buf.Append(data)
	r.metrics.RecordChunk(len(data))
	r.log.WithFields(logrus.Fields{
		"session_id":  s.ID,
		"chunk_bytes": len(data),
		"chunks":      s.buf.Len(),
	}).Debug("Received audio chunk")

	if s.buf.Len() < r.cfg.Threshold {
		return nil
	}
	return r.flushLocked(ctx, s, triggerThreshold)
}

func (r *relayService) onTimer(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.buf.Len() > 0 {
		// flushLocked re-arms the timer
		_ = r.flushLocked(r.baseCtx, s, triggerTimer)
		return
	}
	if s.timer != nil {
		s.timer.Reset(r.cfg.FlushInterval)
	}
}

// flushLocked drains the buffer and sends one result or one error frame.
// The buffer is empty afterwards whatever the outcome. Caller holds s.mu.
func (r *relayService) flushLocked(ctx context.Context, s *Session, trigger string) (err error) {
	const op = "RelayService.Flush"

	payload, n := s.buf.Drain()
	log := r.log.WithFields(logrus.Fields{
		"session_id":    s.ID,
		"chunks":        n,
		"payload_bytes": len(payload),
		"trigger":       trigger,
	})
	log.Debug("Processing audio chunks")

	defer func() {
		if rec := recover(); rec != nil {
			err = utils.E(utils.CodeInternal, op, "panic during processing", fmt.Errorf("%v", rec))
		}
		if err != nil {
			r.metrics.RecordProcessingFailure()
			log.WithError(err).WithField("code", utils.CodeOf(err)).Error("Error processing audio")
			r.sendErrorLocked(s)
		}
		if s.timer != nil {
			s.timer.Reset(r.cfg.FlushInterval)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.baseCtx, cancel)
	defer stop()

	start := time.Now()
	text, _, terr := r.stt.Transcribe(ctx, payload, r.cfg.Language)
	if terr != nil {
		return utils.E(utils.CodeOf(terr), op, "transcription failed", terr)
	}
	if text == "" {
		text = ListeningText
	}
	r.metrics.RecordFlush(trigger, len(payload), time.Since(start).Seconds())

	res := models.TranscriptionResult{Text: text, Timestamp: r.now().UTC()}
	b, merr := json.Marshal(res)
	if merr != nil {
		return utils.E(utils.CodeInternal, op, "encode result", merr)
	}

	if r.sendLocked(s, b) {
		log.WithField("text", text).Info("Sending transcription")
		if r.publisher != nil {
			if perr := r.publisher.Publish(ctx, s.ID, res); perr != nil {
				log.WithError(perr).Warn("publish result failed")
			}
		}
	}
	return nil
}

// sendLocked writes b if the connection is still open. A result for a closed
// or failing connection is dropped, never queued.
func (r *relayService) sendLocked(s *Session, b []byte) bool {
	if s.closed {
		r.metrics.RecordResultDropped()
		return false
	}
	if err := s.conn.SendText(b); err != nil {
		r.metrics.RecordResultDropped()
		r.log.WithError(err).WithField("session_id", s.ID).Debug("result dropped")
		return false
	}
	return true
}

func (r *relayService) sendErrorLocked(s *Session) {
	b, _ := json.Marshal(models.ErrorResult{Error: models.ProcessingFailed})
	r.sendLocked(s, b)
}

func (r *relayService) Close(s *Session) {
	closed, discarded, err := r.sessions.Close(s.ID)
	if err != nil {
		// already closed
		return
	}
	r.metrics.RecordSessionClosed(r.now().Sub(closed.OpenedAt).Seconds(), discarded)
	r.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"discarded":  discarded,
	}).Info("Client disconnected")
}

// Shutdown cancels in-flight transcriptions and closes every open
// connection. It returns once all sessions are closed or ctx is done.
func (r *relayService) Shutdown(ctx context.Context) error {
	const op = "RelayService.Shutdown"

	r.cancel()
	if err := ctx.Err(); err != nil {
		return utils.E(utils.CodeTimeout, op, "shutdown interrupted", err)
	}

	sessions := r.sessions.List()
	for _, s := range sessions {
		// conn never changes after Open; a running flush may hold s.mu
		_ = s.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range sessions {
			r.Close(s)
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return utils.E(utils.CodeTimeout, op, "shutdown interrupted", ctx.Err())
	}
}

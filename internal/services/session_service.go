package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/voicerelay/internal/models"
	"github.com/yoockh/voicerelay/internal/utils"
)

// Conn is the outbound side of one client connection.
type Conn interface {
	SendText(b []byte) error
	Close() error
}

// Session is the server-side state of one client connection. It owns exactly
// one ChunkBuffer and, when periodic flushing is on, one flush timer.
type Session struct {
	ID       string
	OpenedAt time.Time

	mu     sync.Mutex
	conn   Conn
	buf    *models.ChunkBuffer
	timer  *time.Timer
	closed bool
}

// Buffered returns the number of chunks currently held.
func (s *Session) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// IsOpen reports whether the session has not been closed yet.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

type SessionService interface {
	Open(conn Conn) *Session
	// Close removes the session from the registry, marks it closed, stops its
	// timer and returns the number of chunks that were discarded.
	Close(sessionID string) (*Session, int, error)
	Len() int
	List() []*Session
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewSessionService() SessionService {
	return &sessionService{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (r *sessionService) Open(conn Conn) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		OpenedAt: r.now().UTC(),
		conn:     conn,
		buf:      models.NewChunkBuffer(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *sessionService) Close(sessionID string) (*Session, int, error) {
	const op = "SessionService.Close"

	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return nil, 0, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	discarded := s.buf.Len()
	s.buf.Reset()
	return s, discarded, nil
}

func (r *sessionService) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the open sessions ordered by open time.
func (r *sessionService) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

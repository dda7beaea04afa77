package client

import (
	"strings"
	"sync"
)

const (
	UnsupportedMessage = "Speech recognition is not available. Running visualizer only."
	UnavailableMessage = "Transcription service unavailable. Running visualizer only."
)

// Transcript is the running text view. Sources append; explanatory messages
// replace the content.
type Transcript struct {
	mu sync.RWMutex
	sb strings.Builder
}

func (t *Transcript) Append(s string) {
	t.mu.Lock()
	t.sb.WriteString(s)
	t.mu.Unlock()
}

func (t *Transcript) Set(s string) {
	t.mu.Lock()
	t.sb.Reset()
	t.sb.WriteString(s)
	t.mu.Unlock()
}

func (t *Transcript) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sb.String()
}

// Tail returns at most n trailing runes, for views that only show the end.
func (t *Transcript) Tail(n int) string {
	s := t.String()
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

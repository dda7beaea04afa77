package stt

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Phrases returned by the placeholder provider. The choice has no relation
// to the audio content.
var Phrases = []string{
	"Hello, testing microphone.",
	"The audio quality is good.",
	"Real-time transcription working.",
	"This is a demo transcription.",
	"Speaking into the microphone now.",
	"System processing audio successfully.",
}

// Placeholder stands in for a delegated transcription call. Each call draws
// one phrase uniformly and independently.
type Placeholder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

// NewPlaceholderWithRand uses rng for draws, for reproducible tests.
func NewPlaceholderWithRand(rng *rand.Rand) *Placeholder {
	return &Placeholder{rng: rng}
}

func (p *Placeholder) Transcribe(ctx context.Context, _ []byte, _ string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	return Phrases[p.pick(len(Phrases))], 0, nil
}

func (p *Placeholder) pick(n int) int {
	if p.rng == nil {
		return rand.IntN(n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

func (p *Placeholder) Close() error { return nil }

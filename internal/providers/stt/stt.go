package stt

import "context"

// Provider turns one flushed audio payload into text.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

const (
	KindPlaceholder = "placeholder"
	KindGemini      = "gemini"
	KindGoogle      = "google"
)

type Config struct {
	Kind            string
	Language        string
	GeminiAPIKey    string
	GeminiModel     string
	CredentialsFile string // optional, for the google provider
	SampleRateHz    int32
}

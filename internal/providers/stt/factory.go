package stt

import (
	"context"
	"strings"

	"github.com/yoockh/voicerelay/internal/utils"
)

// New builds the provider named by cfg.Kind. An empty kind means placeholder.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindPlaceholder:
		return NewPlaceholder(), nil
	case KindGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SampleRateHz)
	case KindGoogle:
		return NewGoogleSpeech(ctx, cfg.CredentialsFile, cfg.SampleRateHz)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, "stt.New", "unknown transcriber "+cfg.Kind, nil)
	}
}

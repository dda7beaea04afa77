package stt

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/utils"
)

const (
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiSampleRate = 16000
	geminiPrompt       = "Transcribe the speech in this audio verbatim. Reply with the transcript only."
)

// Gemini delegates transcription to the Gemini API using an API key.
// Payloads are mono PCM16LE at sampleRate and are sent wrapped as WAV.
type Gemini struct {
	client     *genai.Client
	model      string
	sampleRate int
}

func NewGemini(ctx context.Context, apiKey, model string, sampleRateHz int32) (*Gemini, error) {
	const op = "stt.NewGemini"

	if apiKey == "" {
		return nil, utils.E(utils.CodeUnavailable, op, "GEMINI_API_KEY not configured", nil)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if sampleRateHz <= 0 {
		sampleRateHz = defaultGeminiSampleRate
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "genai client", err)
	}
	return &Gemini{client: c, model: model, sampleRate: int(sampleRateHz)}, nil
}

func (g *Gemini) Close() error { return nil }

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	const op = "Gemini.Transcribe"

	contents, err := g.contents(audio, language)
	if err != nil {
		return "", 0, utils.E(utils.CodeInternal, op, "build request", err)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", 0, utils.E(utils.CodeUnavailable, op, "generate content", err)
	}
	return geminiText(resp), 0, nil
}

func (g *Gemini) contents(audio []byte, language string) ([]*genai.Content, error) {
	prompt := geminiPrompt
	if language != "" {
		prompt += " Language: " + language + "."
	}

	data, err := capture.EncodeWAV(audio, g.sampleRate)
	if err != nil {
		return nil, err
	}
	return []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: "audio/wav", Data: data}},
		},
	}}, nil
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/yoockh/voicerelay/internal/utils"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

// NewGoogleSpeech uses application default credentials unless credentialsFile is set.
func NewGoogleSpeech(ctx context.Context, credentialsFile string, sampleRateHz int32) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "stt.NewGoogleSpeech", "speech client", err)
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 16000
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: sampleRateHz,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "id-ID"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, utils.E(utils.CodeUnavailable, "GoogleSpeech.Transcribe", "recognize", err)
	}

	text, conf := BestAlternative(resp.Results)
	return text, conf, nil
}

// BestAlternative picks the most confident non-empty transcript.
func BestAlternative(results []*speechpb.SpeechRecognitionResult) (string, float64) {
	var bestText string
	var bestConf float64
	for _, r := range results {
		for _, alt := range r.GetAlternatives() {
			if alt.GetTranscript() != "" && float64(alt.GetConfidence()) >= bestConf {
				bestText = alt.GetTranscript()
				bestConf = float64(alt.GetConfidence())
			}
		}
	}
	return bestText, bestConf
}

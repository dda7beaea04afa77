package stt

import (
	"context"
	"errors"
	"io"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/yoockh/voicerelay/internal/utils"
)

// ErrNoSpeech marks a recognition session that ended because nothing was said.
var ErrNoSpeech = errors.New("no speech detected")

// StreamResult is one interim or final hypothesis from a streaming session.
type StreamResult struct {
	Text       string
	Final      bool
	Confidence float64
}

// GoogleStreaming runs continuous recognition sessions against Cloud Speech.
type GoogleStreaming struct {
	c            *speech.Client
	language     string
	sampleRateHz int32
}

// NewGoogleStreaming reports CodeUnsupported when no credentials are available
// or the client cannot be built.
func NewGoogleStreaming(ctx context.Context, credentialsFile, language string, sampleRateHz int32) (*GoogleStreaming, error) {
	const op = "stt.NewGoogleStreaming"

	if credentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return nil, utils.E(utils.CodeUnsupported, op, "speech recognition credentials not configured", nil)
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, utils.E(utils.CodeUnsupported, op, "speech client", err)
	}

	if language == "" {
		language = "en-US"
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 16000
	}
	return &GoogleStreaming{c: c, language: language, sampleRateHz: sampleRateHz}, nil
}

func (g *GoogleStreaming) Close() error { return g.c.Close() }

// Recognize streams LINEAR16 audio until the service ends the session, audio
// is closed or ctx is done. A nil return is a natural end.
func (g *GoogleStreaming) Recognize(ctx context.Context, audio <-chan []byte, emit func(StreamResult)) error {
	const op = "GoogleStreaming.Recognize"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := g.c.StreamingRecognize(ctx)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "open stream", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            g.sampleRateHz,
					LanguageCode:               g.language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		return classifyStreamErr(op, err)
	}

	go func() {
		defer stream.CloseSend()
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-audio:
				if !ok {
					return
				}
				if len(b) == 0 {
					continue
				}
				if err := stream.Send(&speechpb.StreamingRecognizeRequest{
					StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: b},
				}); err != nil {
					return
				}
			}
		}
	}()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return classifyStreamErr(op, err)
		}
		if st := resp.GetError(); st != nil && st.GetCode() != int32(codes.OK) {
			return classifyStreamErr(op, grpcstatus.ErrorProto(st))
		}
		for _, r := range resp.GetResults() {
			alts := r.GetAlternatives()
			if len(alts) == 0 || alts[0].GetTranscript() == "" {
				continue
			}
			emit(StreamResult{
				Text:       alts[0].GetTranscript(),
				Final:      r.GetIsFinal(),
				Confidence: float64(alts[0].GetConfidence()),
			})
		}
	}
}

// classifyStreamErr maps OutOfRange (audio timeout or the stream length cap)
// to ErrNoSpeech.
func classifyStreamErr(op string, err error) error {
	switch grpcstatus.Code(err) {
	case codes.OutOfRange:
		return utils.E(utils.CodeTimeout, op, "session ended", ErrNoSpeech)
	case codes.Canceled:
		return nil
	case codes.Unauthenticated, codes.PermissionDenied:
		return utils.E(utils.CodePermissionDenied, op, "recognition refused", err)
	default:
		return utils.E(utils.CodeUnavailable, op, "recognition failed", err)
	}
}

package client

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/providers/stt"
)

const (
	nativeQueue = 64

	// DefaultRestartPause spaces restarts after a failed recognition session.
	DefaultRestartPause = time.Second
)

// nativeSink hands PCM blocks to the recognizer, dropping when it lags.
type nativeSink struct {
	ch chan []byte
}

func (n *nativeSink) Feed(samples []int16) {
	select {
	case n.ch <- capture.PCM16LE(samples):
	default:
	}
}

func (c *Controller) startNative(ctx context.Context, g *errgroup.Group) audioSink {
	if c.opts.Recognizer == nil {
		c.setStatus(StatusUnsupported)
		c.transcript.Set(UnsupportedMessage)
		c.log.Warn("speech recognition unavailable, running visualizer only")
		return nil
	}

	sink := &nativeSink{ch: make(chan []byte, nativeQueue)}
	c.setStatus(StatusConnected)
	g.Go(func() error {
		c.runRecognizer(ctx, sink.ch)
		return nil
	})
	return sink
}

// runRecognizer restarts the recognizer every time a session ends until ctx
// is cancelled. A session that failed is restarted after RestartPause.
func (c *Controller) runRecognizer(ctx context.Context, audio <-chan []byte) {
	for {
		err := c.opts.Recognizer.Recognize(ctx, audio, c.onRecognition)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil:
		case errors.Is(err, stt.ErrNoSpeech):
			c.log.Debug("no speech detected, continuing")
		default:
			c.log.WithError(err).Error("speech recognition error")
			c.setStatus(StatusRecognitionError)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.RestartPause):
			}
		}
		c.log.Debug("restarting recognizer")
	}
}

func (c *Controller) onRecognition(r stt.StreamResult) {
	if !r.Final {
		c.log.WithField("text", r.Text).Debug("interim")
		return
	}
	c.transcript.Append(r.Text + " ")
}

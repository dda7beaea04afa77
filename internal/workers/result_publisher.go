package workers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicerelay/internal/models"
	"github.com/yoockh/voicerelay/internal/utils"
)

// ResponseChannel is the pub/sub channel a session's results are mirrored to.
func ResponseChannel(sessionID string) string {
	return "session:" + sessionID + ":response"
}

type resultEvent struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"session_id"`
	Result    models.TranscriptionResult `json:"result"`
}

// RedisPublisher mirrors every delivered transcription onto Redis so other
// processes can follow a session without holding its socket.
type RedisPublisher struct {
	Redis  *redis.Client
	Logger *logrus.Logger
}

func NewRedisPublisher(rdb *redis.Client, l *logrus.Logger) *RedisPublisher {
	if l == nil {
		l = logrus.New()
	}
	return &RedisPublisher{Redis: rdb, Logger: l}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionID string, res models.TranscriptionResult) error {
	const op = "RedisPublisher.Publish"

	if p.Redis == nil {
		return utils.E(utils.CodeUnavailable, op, "redis client not configured", nil)
	}
	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session id required", nil)
	}

	payload, err := json.Marshal(resultEvent{Type: "transcription", SessionID: sessionID, Result: res})
	if err != nil {
		return utils.E(utils.CodeInternal, op, "encode event", err)
	}

	n, err := p.Redis.Publish(ctx, ResponseChannel(sessionID), string(payload)).Result()
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "redis publish", err)
	}
	p.Logger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"subscribers": n,
	}).Debug("result published")
	return nil
}

// subscription is the part of *redis.PubSub a follower reads from.
type subscription interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Subscribe follows one session's results until ctx is done. The returned
// channel is closed when the subscription ends.
func (p *RedisPublisher) Subscribe(ctx context.Context, sessionID string) (<-chan models.TranscriptionResult, error) {
	const op = "RedisPublisher.Subscribe"

	if p.Redis == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "redis client not configured", nil)
	}
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session id required", nil)
	}
	return p.follow(ctx, p.Redis.Subscribe(ctx, ResponseChannel(sessionID)))
}

func (p *RedisPublisher) follow(ctx context.Context, sub subscription) (<-chan models.TranscriptionResult, error) {
	// the first reply confirms the subscription
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, utils.E(utils.CodeUnavailable, "RedisPublisher.Subscribe", "redis subscribe", err)
	}

	out := make(chan models.TranscriptionResult)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeResultEvent(msg.Payload)
				if err != nil {
					p.Logger.WithError(err).Warn("skipping malformed result event")
					continue
				}
				select {
				case out <- ev.Result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeResultEvent(payload string) (resultEvent, error) {
	var ev resultEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Type != "transcription" {
		return ev, errors.New("unexpected event type " + ev.Type)
	}
	return ev, nil
}

package config

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/voicerelay/internal/utils"
)

// RedisOptions accepts either a redis:// URL or a bare host:port.
func RedisOptions(val string) (*redis.Options, error) {
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		opt, err := redis.ParseURL(val)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, "config.RedisOptions", "invalid REDIS_URL", err)
		}
		return opt, nil
	}
	return &redis.Options{Addr: val}, nil
}

// NewRedis connects and pings. An empty url means fan-out is disabled and
// returns a nil client.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	const op = "config.NewRedis"

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}

	opt, err := RedisOptions(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, utils.E(utils.CodeUnavailable, op, "redis ping", err)
	}
	return rdb, nil
}

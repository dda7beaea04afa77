package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/voicerelay/internal/utils"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/transcribe", cfg.WSPath)
	assert.Equal(t, 3, cfg.FlushThreshold)
	assert.Zero(t, cfg.FlushInterval)
	assert.Equal(t, int64(10<<20), cfg.MaxMessageBytes)
	assert.Equal(t, "placeholder", cfg.Transcriber)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, "en-US", cfg.Language)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("FLUSH_THRESHOLD", "5")
	t.Setenv("FLUSH_INTERVAL", "2s")
	t.Setenv("TRANSCRIBER", " Gemini ")
	t.Setenv("LANGUAGE", "id")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 5, cfg.FlushThreshold)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, "gemini", cfg.Transcriber)
	assert.Equal(t, "id-ID", cfg.Language)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"threshold":   {"FLUSH_THRESHOLD", "0"},
		"transcriber": {"TRANSCRIBER", "whisper"},
		"path":        {"WS_PATH", "transcribe"},
		"log format":  {"LOG_FORMAT", "xml"},
		"port":        {"PORT", "70000"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "en-US", NormalizeLanguage(""))
	assert.Equal(t, "en-US", NormalizeLanguage(" en "))
	assert.Equal(t, "id-ID", NormalizeLanguage("id"))
	assert.Equal(t, "fr-FR", NormalizeLanguage("fr-FR"))
}

func TestRedisOptions(t *testing.T) {
	opt, err := RedisOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)

	opt, err = RedisOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opt.Addr)

	_, err = RedisOptions("redis://host:notaport/x")
	assert.Error(t, err)
}

func TestNewRedis_Disabled(t *testing.T) {
	rdb, err := NewRedis(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

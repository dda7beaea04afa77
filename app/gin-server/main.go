package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicerelay/config"
	"github.com/yoockh/voicerelay/internal/api/handlers"
	"github.com/yoockh/voicerelay/internal/api/routes"
	"github.com/yoockh/voicerelay/internal/logger"
	"github.com/yoockh/voicerelay/internal/metrics"
	"github.com/yoockh/voicerelay/internal/providers/stt"
	"github.com/yoockh/voicerelay/internal/services"
	"github.com/yoockh/voicerelay/internal/workers"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Error("config load failed")
		return 1
	}

	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := stt.New(ctx, stt.Config{
		Kind:            cfg.Transcriber,
		Language:        cfg.Language,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		CredentialsFile: cfg.GoogleCredentials,
		SampleRateHz:    cfg.SampleRateHz,
	})
	if err != nil {
		log.WithError(err).Error("transcriber init failed")
		return 1
	}
	defer provider.Close()

	var publisher services.ResultPublisher
	rdb, err := config.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Error("redis init failed")
		return 1
	}
	if rdb != nil {
		defer rdb.Close()
		publisher = workers.NewRedisPublisher(rdb, log)
		log.Info("Redis connected, results are mirrored to pub/sub")
	}

	m := metrics.NewMetrics()
	relay := services.NewRelayService(services.RelayConfig{
		Threshold:     cfg.FlushThreshold,
		FlushInterval: cfg.FlushInterval,
		Language:      cfg.Language,
	}, services.NewSessionService(), provider, publisher, m, log)

	r := routes.NewRouter(routes.Deps{
		WS:      handlers.NewWSHandler(relay, cfg.MaxMessageBytes, log),
		Metrics: m,
		Logger:  log,
		WSPath:  cfg.WSPath,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.Addr(),
			"ws_path":     cfg.WSPath,
			"transcriber": cfg.Transcriber,
		}).Info("Audio transcription service listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	// hijacked websocket connections are not tracked by http.Server
	if err := relay.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("relay shutdown incomplete")
	}
	log.Info("Server stopped")
	return 0
}

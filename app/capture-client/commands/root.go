package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yoockh/voicerelay/config"
	"github.com/yoockh/voicerelay/internal/capture"
	"github.com/yoockh/voicerelay/internal/capture/mic"
	"github.com/yoockh/voicerelay/internal/client"
	"github.com/yoockh/voicerelay/internal/logger"
	"github.com/yoockh/voicerelay/internal/providers/stt"
	"github.com/yoockh/voicerelay/internal/tui"
)

type rootFlags struct {
	server      string
	mode        string
	input       string
	device      int
	fps         int
	timeslice   time.Duration
	language    string
	credentials string
	cols        int
	logFile     string
	logLevel    string
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:   "capture-client",
	Short: "Visualise audio input and show a live transcript",
	Long: `Capture audio from the default microphone (or a WAV file), draw a
circular frequency visualisation in the terminal and transcribe speech.

Modes:
  native  Cloud Speech streaming recognition (needs Google credentials)
  relay   stream audio to the relay server and show its results
  none    visualiser only

Examples:
  capture-client
  capture-client --mode relay --server ws://localhost:8080/transcribe
  capture-client --input speech.wav --mode relay
  capture-client follow <session-id> --redis redis://localhost:6379/0`,
	SilenceUsage: true,
	RunE:         runCapture,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.server, "server", client.DefaultServerURL, "relay server URL (relay mode)")
	f.StringVarP(&flags.mode, "mode", "m", "native", "transcription mode: native, relay or none")
	f.StringVarP(&flags.input, "input", "i", "", "replay a WAV file instead of the microphone")
	f.IntVar(&flags.device, "device", -1, "PortAudio input device index (-1 for default)")
	f.IntVar(&flags.fps, "fps", client.DefaultFPS, "render frames per second")
	f.DurationVar(&flags.timeslice, "timeslice", client.DefaultTimeslice, "audio frame interval (relay mode)")
	f.StringVarP(&flags.language, "language", "l", "en-US", "recognition language")
	f.StringVar(&flags.credentials, "credentials", "", "Google credentials file (defaults to GOOGLE_APPLICATION_CREDENTIALS)")
	f.IntVar(&flags.cols, "cols", 48, "visualiser width in terminal columns")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.logFile, "log-file", "", "write logs to this file (discarded when empty)")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(followCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func runCapture(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	mode, err := client.ParseMode(flags.mode)
	if err != nil {
		return err
	}

	log, closeLog, err := openLog(flags.logFile, flags.logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openSource, sampleRate, err := sourceOpener(flags.input, flags.device)
	if err != nil {
		return err
	}

	var rec client.Recognizer
	if mode == client.ModeNative {
		g, err := stt.NewGoogleStreaming(ctx, flags.credentials, config.NormalizeLanguage(flags.language), int32(sampleRate))
		if err != nil {
			log.WithError(err).Warn("native recognition unavailable")
		} else {
			defer g.Close()
			rec = g
		}
	}

	c := client.New(client.Options{
		Mode:       mode,
		ServerURL:  flags.server,
		Timeslice:  flags.timeslice,
		FPS:        flags.fps,
		OpenSource: openSource,
		Recognizer: rec,
		Display:    tui.NewTerminal(cmd.OutOrStdout(), tui.NewView(flags.cols, 0)),
		Logger:     log,
	})

	if err := c.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-c.CaptureDone():
	}
	c.Stop()

	if t := c.Transcript(); t != "" && t != client.UnsupportedMessage && t != client.UnavailableMessage {
		fmt.Fprintln(cmd.OutOrStdout(), "\nTranscript:", t)
	}
	return nil
}

// sourceOpener returns the Start-time opener and the sample rate the source
// will produce.
func sourceOpener(input string, device int) (func() (capture.Source, error), int, error) {
	if input == "" {
		return func() (capture.Source, error) { return mic.Open(device) }, mic.SampleRate, nil
	}

	wav, err := capture.OpenWAV(input, false)
	if err != nil {
		return nil, 0, err
	}
	rate := wav.Format().SampleRate
	_ = wav.Close()

	return func() (capture.Source, error) { return capture.OpenWAV(input, true) }, rate, nil
}

func openLog(path, level string) (*logrus.Logger, func(), error) {
	if path == "" {
		return logger.NewWithOptions(logger.Options{Level: level, Format: "text", Output: io.Discard}), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := logger.NewWithOptions(logger.Options{Level: level, Format: "text", Output: f})
	return l, func() { _ = f.Close() }, nil
}

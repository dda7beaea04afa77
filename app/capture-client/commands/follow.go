package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yoockh/voicerelay/config"
	"github.com/yoockh/voicerelay/internal/utils"
	"github.com/yoockh/voicerelay/internal/workers"
)

var followRedisURL string

var followCmd = &cobra.Command{
	Use:   "follow <session-id>",
	Short: "Print a relay session's results from Redis as they arrive",
	Long: `Follow the results the relay server mirrors to Redis for one session.
The server must run with REDIS_URL set; the session id is logged when a
client connects.`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().StringVar(&followRedisURL, "redis", "", "Redis URL (defaults to REDIS_URL)")
}

func runFollow(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	url := strings.TrimSpace(followRedisURL)
	if url == "" {
		url = strings.TrimSpace(os.Getenv("REDIS_URL"))
	}
	if url == "" {
		return utils.E(utils.CodeInvalidArgument, "follow", "no Redis URL: pass --redis or set REDIS_URL", nil)
	}

	log, closeLog, err := openLog(flags.logFile, flags.logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedis(ctx, url)
	if err != nil {
		return err
	}
	defer rdb.Close()

	results, err := workers.NewRedisPublisher(rdb, log).Subscribe(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	stamp := lipgloss.NewStyle().Foreground(lipgloss.Color("#95a5a6"))
	fmt.Fprintf(out, "following %s\n", workers.ResponseChannel(args[0]))
	for res := range results {
		fmt.Fprintf(out, "%s %s\n", stamp.Render(res.Timestamp.Local().Format("15:04:05")), res.Text)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adda-baaj/agent-ping/internal/config"
	"github.com/adda-baaj/agent-ping/internal/logger"
	"github.com/adda-baaj/agent-ping/pkg/agentping"
	"github.com/spf13/cobra"
)

// globalFlags override the matching config values when set.
type globalFlags struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "agentping",
		Short:        "Agent Ping API command line client",
		Long:         "agentping talks to an Agent Ping service: messages, sessions and the live event stream.",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "service base URL (default from AGENT_PING_BASE_URL)")
	root.PersistentFlags().StringVar(&flags.token, "token", "", "access token (default from AGENT_PING_TOKEN)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "per-request timeout (default from AGENT_PING_TIMEOUT)")

	root.AddCommand(
		sendCmd(flags),
		sendMediaCmd(flags),
		sendBulkCmd(flags),
		sessionsCmd(flags),
		sessionCmd(flags),
		messagesCmd(flags),
		ackCmd(flags),
		healthCmd(flags),
		statusCmd(flags),
		watchCmd(flags),
	)
	return root
}

// newClient resolves settings from config and flags and initializes logging on stderr.
func newClient(flags *globalFlags) (*agentping.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.token != "" {
		cfg.Token = flags.token
	}
	if flags.timeout > 0 {
		cfg.Timeout = flags.timeout
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return agentping.NewClient(agentping.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}, log), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

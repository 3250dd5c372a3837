// Command ledger-agent records expenses against the ledger gateway and
// keeps working offline from a local cache.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GillJordan/Home-expense/internal/agent"
	"github.com/GillJordan/Home-expense/internal/cache"
	"github.com/GillJordan/Home-expense/internal/cli"
	"github.com/GillJordan/Home-expense/internal/client"
	"github.com/GillJordan/Home-expense/internal/config"
	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/storage"
)

// app is the state shared by every command of one run.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	kv     *storage.SQLiteKV
	agent  *agent.Agent
}

var (
	current      app
	forceOffline bool
)

var rootCmd = &cobra.Command{
	Use:   "ledger-agent",
	Short: "Record and query household expenses, online or offline",
	Long: `ledger-agent talks to the ledger gateway (LEDGER_GATEWAY_URL).

Every run probes the gateway first. When it answers, writes queued while
offline are sent in order and the local mirror is refreshed. When it does
not, new expenses are queued and reads are served from the mirror.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current.kv != nil {
			return current.kv.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&forceOffline, "offline", false, "skip the gateway probe and work from the local cache")
}

func setup(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).ValidateAgent)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentAgent)

	gw, err := client.New(cfg.GatewayURL, cfg.HTTPTimeout, logger)
	if err != nil {
		return err
	}
	kv, err := cli.OpenCache(cfg.CachePath)
	if err != nil {
		return err
	}

	current = app{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		agent: agent.New(gw, cache.NewLocal(kv),
			agent.WithLogger(logger),
			agent.WithDateMatch(core.DateMatch(cfg.DateMatch))),
	}

	if forceOffline {
		return nil
	}
	if err := current.agent.Start(cmd.Context()); err != nil {
		// a blocked drain or failed refresh must not stop the command
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

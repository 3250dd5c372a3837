package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/GillJordan/Home-expense/internal/cache"
	"github.com/GillJordan/Home-expense/internal/worker"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send queued expenses to the gateway now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.agent.Sync(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d, remaining %d\n", res.Synced, res.Remaining)
		return err
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the local mirror and suggestions from the gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := current.agent.RefreshMirror(ctx); err != nil {
			return err
		}
		if err := current.agent.RefreshSuggestions(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Mirror refreshed")
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List expenses waiting to be sent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, err := current.agent.Pending(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "Nothing pending.")
			return nil
		}
		for i, p := range pending {
			fmt.Fprintf(out, "%d. %s %s %s (by %s, from %s)\n", i+1, p.Date, p.Debit, p.Product, p.By, p.From)
		}
		return nil
	},
}

var pendingDropCmd = &cobra.Command{
	Use:   "drop N",
	Short: "Discard the N-th pending expense, as numbered by 'pending'",
	Long: `Discard a queued expense. Use this when an entry keeps blocking the
sync because the gateway rejects it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("N must be a number: %w", err)
		}
		sub, err := current.agent.DropPending(cmd.Context(), n-1)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s %s\n", sub.Date, sub.Product)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, queue and mirror state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := current.agent.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Gateway:  %s (%s)\n", current.cfg.GatewayURL, st.Connectivity)
		fmt.Fprintf(out, "Pending:  %d\n", st.Pending)
		fmt.Fprintf(out, "Sync:     %s\n", st.Sync.State)
		if st.Sync.State == worker.StateBlocked {
			if st.Sync.Blocked != nil {
				fmt.Fprintf(out, "Blocked:  %s %s\n", st.Sync.Blocked.Date, st.Sync.Blocked.Product)
			}
			fmt.Fprintf(out, "Error:    %v\n", st.Sync.Err)
		}
		refreshed := "never"
		if !st.MirrorRefreshedAt.IsZero() {
			refreshed = st.MirrorRefreshedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "Mirror:   %d rows, refreshed %s\n", st.MirrorRows, refreshed)
		fmt.Fprintf(out, "Cache:    %s\n", current.cfg.CachePath)

		updated, err := current.kv.Updated(cmd.Context())
		if err != nil {
			return err
		}
		for _, key := range []string{cache.KeyPending, cache.KeyMirror, cache.KeySuggestions} {
			written := "never"
			if t, ok := updated[key]; ok {
				written = t.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "  %-12s written %s\n", key, written)
		}
		return nil
	},
}

func init() {
	pendingCmd.AddCommand(pendingDropCmd)
	rootCmd.AddCommand(syncCmd, refreshCmd, pendingCmd, statusCmd)
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GillJordan/Home-expense/internal/amqp"
	"github.com/GillJordan/Home-expense/internal/cli"
	"github.com/GillJordan/Home-expense/internal/log"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep probing the gateway and sync as soon as it is back",
	Long: `Probe the gateway every LEDGER_PROBE_INTERVAL. Coming back online sends
the queued expenses and refreshes the mirror. With AMQP_URL set, row events
published by the gateway refresh the mirror as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := current.logger
		ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return current.agent.Watch(gctx, current.cfg.ProbeInterval)
		})

		if current.cfg.AMQPURL != "" {
			events, err := amqp.NewClient(current.cfg.AMQPURL, current.cfg.AMQPExchange, current.cfg.AMQPQueue, logger)
			if err != nil {
				logger.Warn("Row events unavailable, probing only", log.FieldError, err)
			} else {
				defer events.Close()
				g.Go(func() error {
					return events.ConsumeRowAppended(gctx, func(ctx context.Context, msg *amqp.RowAppendedMessage) error {
						logger.DebugContext(ctx, "Row event received", log.FieldPartition, msg.Partition)
						// not redelivered: the next row event or reconnect refreshes again
						if err := current.agent.RefreshMirror(ctx); err != nil {
							logger.WarnContext(ctx, "Mirror refresh after row event failed", log.FieldError, err)
						}
						return nil
					})
				})
			}
		}

		logger.Info("Watching gateway", "gateway", current.cfg.GatewayURL, "interval", current.cfg.ProbeInterval.String())
		err := g.Wait()
		if ctx.Err() != nil {
			<-done
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

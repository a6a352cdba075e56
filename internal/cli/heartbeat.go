package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackroad/websocket-manager/internal/model"
)

func newHeartbeatCmd() *cobra.Command {
	var latency int64

	cmd := &cobra.Command{
		Use:   "heartbeat WS_ID",
		Short: "Update the heartbeat for a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var latencyMs *int64
			if cmd.Flags().Changed("latency") {
				latencyMs = &latency
			}

			updated, err := a.registry.UpdateHeartbeat(cmd.Context(), args[0], latencyMs)
			if err != nil {
				return err
			}
			if !updated {
				return model.ErrConnectionNotFound
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat updated for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Int64Var(&latency, "latency", 0, "measured latency in milliseconds")

	return cmd
}

func newHeartbeatCheckCmd() *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "heartbeat-check",
		Short: "Remove connections with stale heartbeats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.monitor.Sweep(cmd.Context(), time.Duration(timeoutSeconds)*time.Second)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Active: %d  Timed out: %d\n", len(result.Active), len(result.TimedOut))
			for _, sessionID := range result.TimedOut {
				fmt.Fprintf(cmd.OutOrStdout(), "  Removed: %s\n", sessionID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 30, "heartbeat timeout in seconds")

	return cmd
}

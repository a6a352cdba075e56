// Package cli implements the wsman command line surface. It parses user
// input into typed values and calls the registry, delivery, monitor, and
// query services; no domain behavior lives here.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/blackroad/websocket-manager/internal/config"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wsman",
		Short:         "wsman: track WebSocket sessions, relay messages, and monitor heartbeats",
		Long:          "wsman tracks logical WebSocket sessions owned by agents, relays broadcast and direct messages to them, monitors liveness via heartbeats, and reports history and statistics.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("db", config.DefaultDBPath(), "path to the SQLite store")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConnectCmd(),
		newDisconnectCmd(),
		newListCmd(),
		newBroadcastCmd(),
		newSendCmd(),
		newHeartbeatCmd(),
		newHeartbeatCheckCmd(),
		newHistoryCmd(),
		newStatsCmd(),
	)

	return rootCmd
}

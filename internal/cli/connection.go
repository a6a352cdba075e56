package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/blackroad/websocket-manager/internal/model"
)

func newConnectCmd() *cobra.Command {
	var wsID string
	var metadataJSON string

	cmd := &cobra.Command{
		Use:   "connect AGENT",
		Short: "Register a new WebSocket connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var metadata map[string]string
			if metadataJSON != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
					return fmt.Errorf("invalid metadata: %w", err)
				}
			}

			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sessionID := wsID
			if sessionID == "" {
				sessionID = uuid.New().String()
			}

			conn, err := a.registry.Add(cmd.Context(), sessionID, args[0], metadata)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Connected: %s (agent=%s)\n", conn.SessionID, conn.Agent)
			return nil
		},
	}

	cmd.Flags().StringVar(&wsID, "ws-id", "", "session ID (auto-generated if omitted)")
	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "JSON metadata")

	return cmd
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect WS_ID",
		Short: "Disconnect an active connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.registry.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return model.ErrConnectionNotFound
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Disconnected: %s\n", args[0])
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			conns := a.registry.GetAll()
			if len(conns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active connections.")
				return nil
			}

			for _, conn := range conns {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-36s agent=%-20s msgs=%5d hb=%s\n",
					conn.SessionID,
					conn.Agent,
					conn.MessageCount,
					conn.LastHeartbeat.Format(time.RFC3339),
				)
			}
			return nil
		},
	}
}

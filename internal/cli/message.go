package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/pkg/filter"
)

func newBroadcastCmd() *cobra.Command {
	var agent string
	var msgType string

	cmd := &cobra.Command{
		Use:   "broadcast MESSAGE",
		Short: "Broadcast a message to all active connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var f filter.Filter
			if agent != "" {
				f = filter.ByAgent(agent)
			}

			delivered, err := a.delivery.Broadcast(cmd.Context(), args[0], f, msgType, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Broadcast to %d connection(s)\n", len(delivered))
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "restrict targets to one agent")
	cmd.Flags().StringVar(&msgType, "type", model.MessageTypeBroadcast, "message type label")

	return cmd
}

func newSendCmd() *cobra.Command {
	var msgType string

	cmd := &cobra.Command{
		Use:   "send WS_ID MESSAGE",
		Short: "Send a direct message to a connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			msg, err := a.delivery.Send(cmd.Context(), args[0], args[1], msgType, nil)
			if err != nil {
				return err
			}
			if msg == nil {
				return model.ErrConnectionNotFound
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s to %s\n", msg.MessageID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&msgType, "type", model.MessageTypeData, "message type label")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var wsID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent messages, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			messages, err := a.history.MessageHistory(cmd.Context(), wsID, limit)
			if err != nil {
				return err
			}

			for _, msg := range messages {
				content := msg.Content
				if len(content) > 60 {
					content = content[:60]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %-12s %s\n",
					msg.SentAt.Format(time.RFC3339),
					msg.Type,
					content,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wsID, "ws-id", "", "restrict to messages sent by or to this session")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of messages")

	return cmd
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adda-baaj/agent-ping/pkg/agentping"
	"github.com/spf13/cobra"
)

func sendCmd(flags *globalFlags) *cobra.Command {
	var (
		msg    agentping.OutboundMessage
		attach []string
	)
	cmd := &cobra.Command{
		Use:   "send <session-key> [text]",
		Short: "Send a message to a session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			msg.SessionKey = args[0]
			if len(args) > 1 {
				msg.Text = args[1]
			}
			for _, u := range attach {
				msg.Attachments = append(msg.Attachments, agentping.Attachment{URL: u})
			}
			out, err := client.SendMessage(cmd.Context(), msg)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&msg.Channel, "channel", "", "channel override")
	cmd.Flags().StringVar(&msg.AccountID, "account-id", "", "account override")
	cmd.Flags().StringVar(&msg.PeerID, "peer-id", "", "peer override")
	cmd.Flags().StringVar(&msg.ReplyTo, "reply-to", "", "message ID to reply to")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "attachment URL (repeatable)")
	return cmd
}

func sendMediaCmd(flags *globalFlags) *cobra.Command {
	var opts agentping.MediaOptions
	cmd := &cobra.Command{
		Use:   "send-media <session-key> <url>",
		Short: "Send a single attachment to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.SendMedia(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&opts.Filename, "filename", "", "attachment file name")
	cmd.Flags().StringVar(&opts.MimeType, "mime-type", "", "attachment MIME type")
	cmd.Flags().StringVar(&opts.Text, "text", "", "caption")
	return cmd
}

func sendBulkCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send-bulk <file.json|->",
		Short: "Send a JSON array of messages in one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var msgs []agentping.OutboundMessage
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return fmt.Errorf("decode messages: %w", err)
			}
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.SendBulk(cmd.Context(), msgs)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func sessionsCmd(flags *globalFlags) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.ListSessions(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", agentping.DefaultSessionsLimit, "maximum sessions to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "sessions to skip")
	return cmd
}

func sessionCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session <session-key>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func messagesCmd(flags *globalFlags) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "messages <session-key>",
		Short: "List messages stored for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.GetMessages(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", agentping.DefaultMessagesLimit, "maximum messages to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "messages to skip")
	return cmd
}

func ackCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <json-object|->",
		Short: "Post an inbound acknowledgement payload verbatim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(args[0])
			if args[0] == "-" {
				var err error
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("decode ack payload: %w", err)
			}
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.EmitEvent(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func healthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			out, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [event...]",
		Short: "Stream events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sub, err := client.Subscribe(ctx, args...)
			if err != nil {
				return err
			}
			defer sub.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				evt, err := sub.Next()
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, agentping.ErrSubscriptionClosed) {
						return nil
					}
					return err
				}
				if err := enc.Encode(evt); err != nil {
					return err
				}
			}
		},
	}
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if strings.TrimSpace(name) == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return raw, nil
}

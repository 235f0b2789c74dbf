package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"woosh/internal/domain"
	"woosh/internal/services/conversation"
)

// show <chat>: fetch and decrypt the chat once.
func showCmd() *cobra.Command {
	var markRead bool
	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Fetch and decrypt the messages of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat := domain.ChatID(args[0])
			if markRead {
				if _, err := appCtx.Messages.MarkAllRead(cmd.Context(), chat); err != nil {
					return err
				}
			}
			msgs, err := appCtx.Messages.ReceiveMessages(cmd.Context(), chat)
			if err != nil {
				return err
			}
			rec, _, err := appCtx.Sessions.GetSession(chat)
			if err != nil {
				return err
			}
			printMessages(cmd.OutOrStdout(), rec, msgs, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark the peer's messages read first (starts their expiry)")
	return cmd
}

// send <chat> <message>: encrypt and send.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <message>",
		Short: "Encrypt and send a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := appCtx.Messages.SendMessage(cmd.Context(), domain.ChatID(args[0]), args[1])
			if err != nil {
				return &conversation.Error{Text: conversation.SendFailedText, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", res.MessageID)
			return nil
		},
	}
}

// read <chat>: mark the peer's messages read.
func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <chat-id>",
		Short: "Mark the peer's messages read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := appCtx.Messages.MarkAllRead(cmd.Context(), domain.ChatID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d\n", res.MarkedCount)
			return nil
		},
	}
}

func printMessages(w io.Writer, rec domain.SessionKeyRecord, msgs []domain.DecryptedMessage, now time.Time) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "(no messages)")
		return
	}
	for _, m := range msgs {
		fmt.Fprintln(w, formatMessage(rec, m, now))
	}
}

func formatMessage(rec domain.SessionKeyRecord, m domain.DecryptedMessage, now time.Time) string {
	who := "me"
	if rec.PeerUID != "" && m.SenderUID == rec.PeerUID {
		who = rec.PeerEmail.String()
	} else if rec.PeerUID == "" {
		who = m.SenderUID.String()
	}
	line := fmt.Sprintf("[%s] %s: %s", m.SentAt().Format(time.TimeOnly), who, m.Text)
	if label := conversation.Label(m.Message, now); label != "" {
		line += " (" + label + ")"
	}
	return line
}

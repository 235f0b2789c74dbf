package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"woosh/internal/crypto"
	"woosh/internal/domain"
)

// start <email>: negotiate (or re-open) a chat and store its key.
func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <peer-email>",
		Short: "Start a chat with a peer and agree on a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := appCtx.Sessions.StartSession(cmd.Context(), domain.Email(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "chat:        %s\n", rec.ChatID)
			fmt.Fprintf(out, "peer:        %s\n", rec.PeerEmail)
			fmt.Fprintf(out, "fingerprint: %s\n", crypto.Fingerprint(rec.AESKey))
			return nil
		},
	}
}

// forget <chat>: drop the locally stored key.
func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <chat-id>",
		Short: "Delete the stored key for a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Sessions.Forget(domain.ChatID(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "forgotten")
			return nil
		},
	}
}

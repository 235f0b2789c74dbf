package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"woosh/internal/crypto"
	"woosh/internal/domain"
)

// fingerprint <chat>: print the key fingerprint so both sides can compare it
// out of band.
func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <chat-id>",
		Short: "Print the fingerprint of a chat key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat := domain.ChatID(args[0])
			rec, ok, err := appCtx.Sessions.GetSession(chat)
			if err != nil {
				return err
			}
			if !ok {
				details, err := appCtx.Relay.ChatDetails(cmd.Context(), chat)
				if err != nil {
					return err
				}
				if rec, err = appCtx.Sessions.ReconcileSession(chat, details.AESKey); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", crypto.Fingerprint(rec.AESKey))
			return nil
		},
	}
}

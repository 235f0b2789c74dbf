package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chats on the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := appCtx.Relay.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHAT\tPEER\tUNREAD\tKEY\tCREATED")
			for _, c := range chats {
				_, ok, err := appCtx.Sessions.GetSession(c.ChatID)
				if err != nil {
					return err
				}
				key := "-"
				if ok {
					key = "stored"
				}
				created := ""
				if c.CreatedAt > 0 {
					created = time.Unix(c.CreatedAt, 0).Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.ChatID, c.PeerEmail, c.UnreadCount, key, created)
			}
			return tw.Flush()
		},
	}
}

package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"woosh/internal/domain"
	"woosh/internal/services/conversation"
)

const clearScreen = "\033[H\033[2J"

// watch: interactive conversation. Lines typed on stdin are sent; the screen
// is redrawn on every update and once a second for expiry countdowns.
func watchCmd() *cobra.Command {
	var peer string
	cmd := &cobra.Command{
		Use:   "watch [chat-id]",
		Short: "Open a live conversation",
		Long: "Open a live conversation with an existing chat, or start a new one with --peer.\n" +
			"Type a line and press enter to send it. /quit leaves.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (peer != "") {
				return errors.New("give either a chat id or --peer")
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			view := appCtx.NewConversation()
			defer view.Close()

			var err error
			if peer != "" {
				err = view.Start(ctx, domain.Email(peer))
			} else {
				err = view.Resume(domain.ChatID(args[0]))
			}
			if err != nil {
				return err
			}

			runErr := make(chan error, 1)
			go func() { runErr <- view.Run(ctx) }()
			go readInput(ctx, cmd.InOrStdin(), view, cancel)

			out := cmd.OutOrStdout()
			scr := &screen{sessions: appCtx.Sessions}
			redraw := func() { scr.draw(out, view.Snapshot()) }
			tick := time.NewTicker(time.Second)
			defer tick.Stop()
			for {
				select {
				case err := <-runErr:
					redraw()
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				case <-view.Updates():
					redraw()
				case <-tick.C:
					redraw()
				}
			}
		},
	}
	cmd.Flags().StringVar(&peer, "peer", "", "start a new chat with this email")
	return cmd
}

func readInput(ctx context.Context, in io.Reader, view *conversation.View, quit func()) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit":
			quit()
			return
		}
		view.SetDraft(line)
		// Failures land in the snapshot and keep the draft.
		_ = view.SendDraft(ctx)
	}
	quit()
}

type recordLookup interface {
	GetSession(chat domain.ChatID) (domain.SessionKeyRecord, bool, error)
}

// screen draws conversation frames. The chat record is read from the store
// once the view is Ready and reused for every later frame.
type screen struct {
	sessions recordLookup
	rec      domain.SessionKeyRecord
	cached   bool
}

func (s *screen) draw(w io.Writer, snap conversation.Snapshot) {
	if !s.cached && snap.State == conversation.StateReady {
		if rec, ok, err := s.sessions.GetSession(snap.ChatID); err == nil && ok {
			s.rec, s.cached = rec, true
		}
	}
	rec := s.rec
	if rec.PeerEmail == "" {
		rec.PeerEmail = snap.Peer
	}

	fmt.Fprint(w, clearScreen)
	fmt.Fprintf(w, "%s  %s  [%s]\n\n", snap.ChatID, snap.Peer, snap.State)
	for _, m := range snap.Messages {
		fmt.Fprintln(w, formatMessage(rec, m, snap.At))
	}
	fmt.Fprintln(w)
	if snap.Err != nil {
		fmt.Fprintf(w, "! %s\n", userText(snap.Err))
	}
	if snap.Draft != "" {
		fmt.Fprintf(w, "> %s\n", snap.Draft)
	}
}

func userText(err error) string {
	var ue *conversation.Error
	if errors.As(err, &ue) {
		return ue.Text
	}
	return err.Error()
}

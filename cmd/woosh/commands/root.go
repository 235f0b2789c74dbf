package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"woosh/internal/app"
	"woosh/internal/relay"
)

var (
	home     string
	relayURL string
	backend  string
	logLevel string
	appCtx   *app.App
)

// Execute builds the command tree and runs it under ctx.
func Execute(ctx context.Context) error {
	err := newRootCmd().ExecuteContext(ctx)
	if relay.IsUnauthorized(err) {
		fmt.Fprintln(os.Stderr, "The relay rejected your token. Run `woosh login` again.")
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "woosh",
		Short:        "End-to-end encrypted chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("relay") {
				cfg.RelayURL = relayURL
			}
			if flags.Changed("store") {
				cfg.Store = backend
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			appCtx, err = app.New(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx == nil {
				return nil
			}
			return appCtx.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.woosh, env WOOSH_HOME)")
	pf.StringVar(&relayURL, "relay", "", "relay base URL (env WOOSH_RELAY_URL)")
	pf.StringVar(&backend, "store", "", "session store backend: bolt or file (env WOOSH_STORE)")
	pf.StringVar(&logLevel, "log-level", "", "log level (env WOOSH_LOG_LEVEL)")

	root.AddCommand(
		loginCmd(),
		logoutCmd(),
		startCmd(),
		listCmd(),
		showCmd(),
		sendCmd(),
		readCmd(),
		watchCmd(),
		forgetCmd(),
		fingerprintCmd(),
	)
	return root
}

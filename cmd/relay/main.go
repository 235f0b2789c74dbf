package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"woosh/internal/domain"
	"woosh/internal/protocol/dh"
	"woosh/internal/relayserver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "relay",
		Short:        "In-memory woosh relay",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load before the environment")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the relay HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := relayserver.LoadConfig(envFile)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			srv := relayserver.New(cfg, log, relayserver.WithAgreement(dh.Default()))
			return srv.ListenAndServe(cmd.Context())
		},
	}

	var uid, email string
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := relayserver.LoadConfig(envFile)
			if err != nil {
				return err
			}
			if uid == "" {
				uid = uuid.NewString()
			}
			tok, err := relayserver.IssueToken(cfg.JWTSecret, domain.UID(uid), domain.Email(email), cfg.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&uid, "uid", "", "user id (random when empty)")
	token.Flags().StringVar(&email, "email", "", "user email")
	_ = token.MarkFlagRequired("email")

	root.AddCommand(serve, token)
	return root
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log, nil
}

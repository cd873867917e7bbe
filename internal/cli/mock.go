package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailview/internal/config"
	"mailview/internal/mockserver"

	"github.com/spf13/cobra"
)

func newMockCmd() *cobra.Command {
	var addr string
	var seedFile string

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve an in-memory copy of the mail API for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			seed := mockserver.DefaultSeed()
			if seedFile != "" {
				seed, err = mockserver.LoadSeed(seedFile)
				if err != nil {
					return err
				}
			}

			srv := mockserver.New(seed, logger)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving mock mail API on http://%s\n", addr)
			for _, u := range seed.Users {
				fmt.Fprintf(cmd.OutOrStdout(), "  user %s\n", u.Email)
			}

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().StringVar(&seedFile, "seed", "", "YAML or JSON file with users and messages")

	return cmd
}

package cli

import (
	"fmt"

	"mailview/internal/api"
	"mailview/internal/secrets"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server, login and inbox status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Server: %s\n", cfg.Server.BaseURL)
			fmt.Fprintf(out, "User: %s\n", valueOr(cfg.Auth.Username, "(not set)"))
			if info, err := secrets.ResolveBackendInfo(); err == nil {
				fmt.Fprintf(out, "Keyring: %s (%s)\n", info.Value, info.Source)
			}
			if cfg.Auth.Session == "" {
				fmt.Fprintln(out, "Session: none")
				return nil
			}
			fmt.Fprintf(out, "Session: from %s\n", cfg.Auth.SessionSource)

			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			list, err := s.client.ListMailbox(cmd.Context(), api.Inbox)
			if err != nil {
				return loginHint(err)
			}
			fmt.Fprintf(out, "Inbox: %d messages, %d unread\n", len(list), countUnread(list))
			return nil
		},
	}
	return cmd
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

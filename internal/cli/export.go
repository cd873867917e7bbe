package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"mailview/internal/api"
	"mailview/internal/email"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Save a message as an .eml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := api.ParseMessageID(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			msg, err := s.client.GetMessage(cmd.Context(), id)
			if err != nil {
				return loginHint(err)
			}

			host := ""
			if u, err := url.Parse(s.cfg.Server.BaseURL); err == nil {
				host = u.Hostname()
			}
			raw, err := email.Export(*msg, host)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(raw)
				return err
			}
			if output == "" {
				output = id.String() + ".eml"
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, raw, 0o600); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <id>.eml, - for stdout)")

	return cmd
}

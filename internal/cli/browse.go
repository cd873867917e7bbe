package cli

import (
	"mailview/internal/tui"

	"github.com/spf13/cobra"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse mailboxes interactively with back and forward history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			bridge := &tui.Bridge{}
			s, err := openSession(cmd, bridge)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			m := tui.New(cmd.Context(), s.router, s.ctrl, s.cfg.Auth.Username)
			return tui.Run(cmd.Context(), m, bridge)
		},
	}
	return cmd
}

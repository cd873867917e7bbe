package cli

import (
	"mailview/internal/api"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Read a message by id (marks it read)",
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

			s.router.Message(cmd.Context(), id)
			v, err := s.settle()
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), v)
			return nil
		},
	}
	return cmd
}

package cli

import (
	"mailview/internal/api"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list [inbox|sent|archive]",
		Short:     "List a mailbox",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(api.Inbox), string(api.Sent), string(api.Archive)},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runList(cmd, name)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, name string) (err error) {
	s, err := openSession(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

	if name == "" {
		name = s.cfg.Defaults.Mailbox
	}
	mailbox, err := api.ParseMailbox(name)
	if err != nil {
		return err
	}

	s.router.Mailbox(cmd.Context(), mailbox)
	v, err := s.settle()
	if err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), v)
	return nil
}

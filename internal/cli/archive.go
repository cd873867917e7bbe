package cli

import (
	"fmt"

	"mailview/internal/api"
	"mailview/internal/view"

	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	return newArchiveToggleCmd("archive", "Move a message out of the inbox into the archive", view.ArchiveShow)
}

func newUnarchiveCmd() *cobra.Command {
	return newArchiveToggleCmd("unarchive", "Return an archived message to the inbox", view.UnarchiveShow)
}

// newArchiveToggleCmd opens the message first, the same way the detail view
// decides which control to offer, and only flips it when want is offered.
func newArchiveToggleCmd(use, short string, want view.ArchiveControl) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
			switch {
			case v.Archive == want:
			case v.Archive == view.ArchiveHidden:
				return fmt.Errorf("message %d was sent by you and cannot be %sd", id, use)
			case want == view.ArchiveShow:
				return fmt.Errorf("message %d is already archived", id)
			default:
				return fmt.Errorf("message %d is not archived", id)
			}

			if err := s.router.ToggleArchive(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd.\n", want.Label())
			return nil
		},
	}
	return cmd
}

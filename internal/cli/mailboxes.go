package cli

import (
	"fmt"
	"text/tabwriter"

	"mailview/internal/api"

	"github.com/spf13/cobra"
)

func newMailboxesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailboxes",
		Short: "List mailboxes with message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "MAILBOX\tTOTAL\tUNREAD")
			for _, name := range api.Mailboxes {
				list, err := s.client.ListMailbox(cmd.Context(), name)
				if err != nil {
					return loginHint(err)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\n", name, len(list), countUnread(list))
			}
			return tw.Flush()
		},
	}
	return cmd
}

func countUnread(list []api.MessageSummary) int {
	n := 0
	for _, m := range list {
		if !m.Read {
			n++
		}
	}
	return n
}

package cli

import (
	"fmt"
	"strings"

	"mailview/internal/api"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var mailbox string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Filter a mailbox by sender or subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			query := strings.ToLower(strings.TrimSpace(args[0]))
			if query == "" {
				return fmt.Errorf("query must not be empty")
			}

			name, err := api.ParseMailbox(mailbox)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			s.router.Mailbox(cmd.Context(), name)
			v, err := s.settle()
			if err != nil {
				return err
			}

			matches := filterSummaries(v.Summaries, query)
			fmt.Fprintf(cmd.OutOrStdout(), "Mailbox: %s (%d of %d match)\n", v.Heading(), len(matches), len(v.Summaries))
			printMessages(cmd.OutOrStdout(), matches)
			return nil
		},
	}

	cmd.Flags().StringVar(&mailbox, "mailbox", string(api.Inbox), "Mailbox to search")

	return cmd
}

func filterSummaries(list []api.MessageSummary, query string) []api.MessageSummary {
	var out []api.MessageSummary
	for _, m := range list {
		if strings.Contains(strings.ToLower(m.Sender), query) || strings.Contains(strings.ToLower(m.Subject), query) {
			out = append(out, m)
		}
	}
	return out
}

package cli

import (
	"fmt"

	"mailview/internal/api"

	"github.com/spf13/cobra"
)

func newReplyCmd() *cobra.Command {
	var body string
	var bodyFile string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reply <id>",
		Short: "Reply to a message, quoting it below your text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := api.ParseMessageID(args[0])
			if err != nil {
				return err
			}
			content, err := loadBody(body, bodyFile)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			s.router.Message(cmd.Context(), id)
			if _, err := s.settle(); err != nil {
				return err
			}
			if err := s.router.Reply(); err != nil {
				return err
			}

			v := s.ctrl.Current()
			draft := v.Draft
			if content != "" {
				draft.Body = content + "\n\n" + draft.Body
			}

			if dryRun {
				v.Draft = draft
				printView(cmd.OutOrStdout(), v)
				return nil
			}
			if err := s.router.Submit(cmd.Context(), draft); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Replied to %s.\n", draft.Recipients)
			return nil
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Reply text placed above the quoted message")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Path to file containing the reply text")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the prefilled reply instead of sending it")

	return cmd
}

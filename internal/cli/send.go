package cli

import (
	"fmt"
	"strings"

	"mailview/internal/view"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var to []string
	var subject string
	var body string
	var bodyFile string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			content, err := loadBody(body, bodyFile)
			if err != nil {
				return err
			}
			recipients := splitList(to...)
			if len(recipients) == 0 {
				return fmt.Errorf("at least one recipient is required")
			}

			s, err := openSession(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { err = s.finish(cmd.ErrOrStderr(), err) }()

			s.router.Compose()
			draft := view.Draft{
				Recipients: strings.Join(recipients, ", "),
				Subject:    subject,
				Body:       content,
			}
			if err := s.router.Submit(cmd.Context(), draft); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sent.")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&to, "to", nil, "Recipient addresses (repeatable or comma-separated)")
	cmd.Flags().StringVar(&subject, "subject", "", "Message subject")
	cmd.Flags().StringVar(&body, "body", "", "Message body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Path to file containing message body")

	return cmd
}

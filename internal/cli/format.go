package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"mailview/internal/api"
	"mailview/internal/view"
)

func printMessages(out io.Writer, messages []api.MessageSummary) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t\tDATE\tFROM\tSUBJECT")
	for _, msg := range messages {
		flag := " "
		if !msg.Read {
			flag = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", msg.ID, flag, msg.Timestamp, msg.Sender, msg.Subject)
	}
	_ = tw.Flush()
}

func printMessage(out io.Writer, msg *api.Message, archive view.ArchiveControl) {
	fmt.Fprintf(out, "ID: %d\n", msg.ID)
	fmt.Fprintf(out, "From: %s\n", msg.Sender)
	fmt.Fprintf(out, "To: %s\n", msg.Recipients.String())
	fmt.Fprintf(out, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(out, "Timestamp: %s\n", msg.Timestamp)
	if label := archive.Label(); label != "" {
		fmt.Fprintf(out, "Actions: Reply, %s\n", label)
	} else {
		fmt.Fprintln(out, "Actions: Reply")
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, msg.Body)
}

// printView is the plain-text renderer for one-shot commands.
func printView(out io.Writer, v view.View) {
	switch v.Kind {
	case view.KindMailbox:
		fmt.Fprintf(out, "Mailbox: %s\n", v.Heading())
		if v.Empty() {
			fmt.Fprintln(out, view.EmptyMailbox)
			return
		}
		printMessages(out, v.Summaries)
	case view.KindMessage:
		if v.Message == nil {
			fmt.Fprintf(out, "%s: not loaded\n", v.Heading())
			return
		}
		printMessage(out, v.Message, v.Archive)
	case view.KindCompose:
		fmt.Fprintln(out, v.Title)
		fmt.Fprintf(out, "To: %s\n", v.Draft.Recipients)
		fmt.Fprintf(out, "Subject: %s\n", v.Draft.Subject)
		fmt.Fprintln(out, "")
		fmt.Fprint(out, v.Draft.Body)
	}
}

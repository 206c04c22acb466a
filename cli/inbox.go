// ABOUTME: Conversation CLI commands
// ABOUTME: Send a message to a contact and list threads by recent activity
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/harperreed/pipecrm/app"
)

// SendMessageCommand: send-message <contact-id> <text>. The contact's thread
// is opened on first use.
func SendMessageCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("send-message", out)
	incoming := fs.Bool("incoming", false, "Record the message as received from the contact")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: send-message [--incoming] <contact-id> <text>")
	}

	contactID, err := parseID("contact ID", fs.Arg(0))
	if err != nil {
		return err
	}

	ctx := context.Background()
	conv, err := a.Inbox.Open(ctx, contactID, a.Config.Owner)
	if err != nil {
		return err
	}

	if *incoming {
		_, err = a.Inbox.Receive(ctx, conv.ID, fs.Arg(1))
	} else {
		_, err = a.Inbox.Send(ctx, conv.ID, fs.Arg(1))
	}
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	fmt.Fprintf(out, "✓ Message added to conversation with %s\n", conv.ContactName)
	return nil
}

// ConversationsCommand lists threads, most recent first. With a conversation
// id it prints that thread.
func ConversationsCommand(a *app.App, out io.Writer, args []string) error {
	fs := newFlagSet("conversations", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()

	if fs.NArg() > 0 {
		id, err := parseID("conversation ID", fs.Arg(0))
		if err != nil {
			return err
		}
		conv, err := a.Inbox.Thread(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Conversation with %s\n\n", conv.ContactName)
		for _, m := range conv.Messages {
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Sender, m.Message)
		}
		return nil
	}

	convs, err := a.Inbox.List(ctx, a.Config.Owner)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "ID\tCONTACT\tLAST MESSAGE\tWHEN")
	fmt.Fprintln(w, "--\t-------\t------------\t----")
	for _, c := range convs {
		when := "-"
		if !c.Time.IsZero() {
			when = c.Time.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.ContactName, orDash(c.LastMessage), when)
	}
	return w.Flush()
}

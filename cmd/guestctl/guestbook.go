package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/invite"
)

var guestbookFlags struct {
	name    string
	message string
	secret  string
	retries int
}

var guestbookCmd = &cobra.Command{
	Use:     "guestbook",
	Aliases: []string{"gb"},
	Short:   "Read, write and delete guestbook entries",
}

var guestbookPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Write a guestbook entry",
	Long: `Write a guestbook entry. The secret (at least 4 characters) is needed to
delete the entry later; it is never shown again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := invite.NewGuestbookController(newStore(), nil, invite.WithLogger(logger))
		c.SetForm(domain.GuestbookInput{
			Name:    guestbookFlags.name,
			Message: guestbookFlags.message,
			Secret:  guestbookFlags.secret,
		})
		rec, err := retry(cmd.Context(), guestbookFlags.retries, func(ctx context.Context) (domain.GuestbookEntry, error) {
			return c.Submit(ctx)
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), rec)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Posted %s. Keep your secret to delete it later.\n", rec.ID)
		return nil
	},
}

var guestbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		var items []domain.GuestbookEntry
		if err := newStore().Query(ctx, domain.TableGuestbook, &items); err != nil {
			return err
		}
		return printGuestbook(cmd.OutOrStdout(), items)
	},
}

var guestbookDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete your entry with its secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		c := invite.NewGuestbookController(newStore(), nil, invite.WithLogger(logger))
		err := c.Delete(ctx, args[0], guestbookFlags.secret)
		switch {
		case errors.Is(err, invite.ErrSecretMismatch):
			return errors.New("the secret does not match this entry")
		case errors.Is(err, invite.ErrNotFound):
			return fmt.Errorf("entry %s does not exist", args[0])
		case err != nil:
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
		return nil
	},
}

func init() {
	pf := guestbookPostCmd.Flags()
	pf.StringVar(&guestbookFlags.name, "name", "", "your name")
	pf.StringVar(&guestbookFlags.message, "message", "", "your message")
	pf.StringVar(&guestbookFlags.secret, "secret", "", "secret needed to delete the entry")
	pf.IntVar(&guestbookFlags.retries, "retries", 2, "retries after a failed submission")

	guestbookDeleteCmd.Flags().StringVar(&guestbookFlags.secret, "secret", "", "the secret chosen when posting")

	guestbookCmd.AddCommand(guestbookPostCmd, guestbookListCmd, guestbookDeleteCmd)
}

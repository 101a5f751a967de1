package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/invite"
)

var rsvpFlags struct {
	guest     string
	name      string
	attending string
	guests    int
	children  int
	message   string
	retries   int
}

var rsvpCmd = &cobra.Command{
	Use:   "rsvp",
	Short: "Answer the invitation",
	Long: `Answer the invitation. --guest prefills the name the way a personalised
invitation link does; --name overrides it. Guest and child counts are sent
as zero when --attending=no.`,
	Args: cobra.NoArgs,
	RunE: runRSVP,
}

var rsvpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List responses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		var items []domain.RSVP
		if err := newStore().Query(ctx, domain.TableRSVPs, &items); err != nil {
			return err
		}
		return printRSVPs(cmd.OutOrStdout(), items)
	},
}

func init() {
	def := domain.DefaultRSVPInput()
	f := rsvpCmd.Flags()
	f.StringVar(&rsvpFlags.guest, "guest", "", "prefill the name from an invitation link")
	f.StringVar(&rsvpFlags.name, "name", "", "your name")
	f.StringVar(&rsvpFlags.attending, "attending", string(def.Attending), "yes or no")
	f.IntVar(&rsvpFlags.guests, "guests", def.GuestCount, "number of adults including you")
	f.IntVar(&rsvpFlags.children, "children", def.ChildCount, "number of children")
	f.StringVar(&rsvpFlags.message, "message", "", "a note to the couple")
	f.IntVar(&rsvpFlags.retries, "retries", 2, "retries after a failed submission")

	rsvpCmd.AddCommand(rsvpListCmd)
}

func runRSVP(cmd *cobra.Command, _ []string) error {
	c := invite.NewRSVPController(newStore(), nil, invite.WithLogger(logger))
	if rsvpFlags.guest != "" {
		c.Prefill(rsvpFlags.guest)
	}
	form := c.Form()
	if rsvpFlags.name != "" {
		form.Name = rsvpFlags.name
	}
	form.Attending = domain.Attendance(rsvpFlags.attending)
	form.GuestCount = rsvpFlags.guests
	form.ChildCount = rsvpFlags.children
	form.Message = rsvpFlags.message
	c.SetForm(form)

	rec, err := retry(cmd.Context(), rsvpFlags.retries, func(ctx context.Context) (domain.RSVP, error) {
		return c.Submit(ctx)
	})
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Thank you, %s! Your response was saved (%s).\n", rec.Name, rec.ID)
	return nil
}

// retry calls submit until it succeeds, fails for a reason a retry cannot
// fix, or attempts run out. The controller keeps its idempotency key
// across attempts.
func retry[T any](ctx context.Context, retries int, submit func(context.Context) (T, error)) (T, error) {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, cfg.GetDuration(cfgKeyTimeout)+time.Second)
		rec, err := submit(actx)
		cancel()
		if err == nil || attempt >= retries || !invite.Retryable(err) {
			return rec, err
		}
		var apiErr *invite.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != 429 {
			return rec, err
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("submission failed, retrying")
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

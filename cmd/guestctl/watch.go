package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/domain"
	"github.com/tbourn/go-wedding-backend/internal/invite"
)

var watchCmd = &cobra.Command{
	Use:       "watch TABLE",
	Short:     "Print a table and follow its changes until interrupted",
	Long:      `Print a table and follow its live changes. TABLE is one of rsvps, guestbook, photos or questions.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: domain.Tables,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newStore()
		out := cmd.OutOrStdout()
		switch args[0] {
		case domain.TableRSVPs:
			return watch(cmd.Context(), store, args[0], out, printRSVPs)
		case domain.TableGuestbook:
			return watch(cmd.Context(), store, args[0], out, printGuestbook)
		case domain.TablePhotos:
			return watch(cmd.Context(), store, args[0], out, printPhotos)
		default:
			return watch(cmd.Context(), store, args[0], out, printQuestions)
		}
	},
}

// watch seeds a list for table, prints it, then prints every change the
// feed merges into it until ctx ends.
func watch[T invite.Keyed](ctx context.Context, store invite.Store, table string, w io.Writer, show func(io.Writer, []T) error) error {
	list := invite.NewOrderedList[T](invite.OrderOf(table))
	var mu sync.Mutex
	list.OnChange(func(ev invite.ListEvent[T], _ []T) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "-- %s %s\n", ev.Kind, ev.Record.Key())
		_ = show(w, []T{ev.Record})
	})

	m := invite.NewMerge(store, table, list, invite.WithLogger(logger))
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	mu.Lock()
	err := show(w, list.Items())
	mu.Unlock()
	if err != nil {
		return err
	}
	if m.Degraded() {
		return fmt.Errorf("%s: live updates unavailable", table)
	}
	logger.Info().Str("table", table).Msg("watching for changes (Ctrl-C to stop)")
	<-ctx.Done()
	return nil
}

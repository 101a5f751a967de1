package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/invite"
)

var popupScroll []float64

var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Inspect and snooze the automatic RSVP prompt",
}

var popupCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Replay a scroll session and report when the prompt would open",
	Long: `Replay a scroll session, given as the fractions of the page scrolled in
order, and report the position at which the RSVP prompt opens by itself.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newScheduler()
		if err != nil {
			return err
		}
		for _, f := range popupScroll {
			if p.OnScroll(f) {
				fmt.Fprintf(cmd.OutOrStdout(), "prompt opens at %.0f%%\n", f*100)
				return nil
			}
		}
		if until, ok := p.SnoozedUntil(); ok && p.State() == invite.Suppressed {
			fmt.Fprintf(cmd.OutOrStdout(), "prompt snoozed until %s\n", until.Format("2006-01-02 15:04"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "prompt stays closed")
		return nil
	},
}

var popupSnoozeCmd = &cobra.Command{
	Use:   "snooze",
	Short: "Don't show the prompt again today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newScheduler()
		if err != nil {
			return err
		}
		until, err := p.Snooze()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "prompt snoozed until %s\n", until.Format("2006-01-02 15:04"))
		return nil
	},
}

var popupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the prompt is armed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newScheduler()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "state: %s (threshold %.0f%%)\n", p.State(), cfg.GetFloat64(cfgKeyPopupThreshold)*100)
		if until, ok := p.SnoozedUntil(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "snooze: %s\n", until.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var popupResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove a stored snooze",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := stateKV().Delete(invite.SnoozeKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "snooze cleared")
		return nil
	},
}

func init() {
	popupCheckCmd.Flags().Float64SliceVar(&popupScroll, "scroll", []float64{0.1, 0.25, 0.5, 0.75, 1}, "scroll fractions in order")
	popupCmd.AddCommand(popupCheckCmd, popupSnoozeCmd, popupStatusCmd, popupResetCmd)
}

func stateKV() *invite.FileKV {
	return invite.NewFileKV(afero.NewOsFs(), cfg.GetString(cfgKeyStateFile))
}

func newScheduler() (*invite.PopupScheduler, error) {
	return invite.NewPopupScheduler(stateKV(), cfg.GetFloat64(cfgKeyPopupThreshold), invite.WithLogger(logger))
}

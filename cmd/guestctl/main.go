// Command guestctl drives the guest side of the wedding invitation from a
// terminal: RSVPs, the guestbook, photo uploads, the live change feed and
// the RSVP prompt schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tbourn/go-wedding-backend/internal/invite"
	"github.com/tbourn/go-wedding-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// flagConfig is set by the --config flag.
	flagConfig string
	flagServer string
	flagJSON   bool
	flagDebug  bool

	// cfg is loaded by PersistentPreRunE.
	cfg    *viper.Viper
	logger zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guestctl",
	Short: "guestctl talks to a wedding invitation backend as a guest",
	Long: `guestctl answers the invitation, writes in the guestbook, uploads photos
and follows the live lists of a wedding invitation backend.

Settings come from guestctl.yaml (current directory or ~/.guestctl), then
GUESTCTL_* environment variables, then flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./guestctl.yaml or ~/.guestctl/guestctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "API base URL, e.g. http://localhost:8080/api/v1")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print records as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log HTTP requests")

	rootCmd.AddCommand(versionCmd, rsvpCmd, guestbookCmd, photosCmd, questionsCmd, watchCmd, popupCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	v, err := loadConfig(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagServer != "" {
		v.Set(cfgKeyServer, flagServer)
	}
	if flagDebug {
		v.Set(cfgKeyLogLevel, "debug")
	}
	cfg = v
	logger = sysutil.SetupLogger(os.Stderr, v.GetString(cfgKeyLogLevel), true)
	return nil
}

// newStore builds the HTTP store from the loaded settings.
func newStore() *invite.HTTPStore {
	return invite.NewHTTPStore(cfg.GetString(cfgKeyServer), cfg.GetDuration(cfgKeyTimeout), invite.WithLogger(logger))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "guestctl", version)
	},
}

// withTimeout bounds one-shot commands; watch uses the bare command context.
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	d := cfg.GetDuration(cfgKeyTimeout)
	if d <= 0 {
		d = defaultTimeout
	}
	// Query may walk several pages, each bounded by the client timeout.
	return context.WithTimeout(cmd.Context(), 4*d+time.Second)
}

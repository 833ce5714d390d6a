package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/console"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// verbose forces debug logging.
	verbose bool
)

// newRootCommand builds the catpoint command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "catpoint",
		Short: "Control the catpoint home security system.",
		Long: `Controls the catpoint home security system from the terminal.

Arm or disarm the system, register door, window and motion sensors, report
sensor activity and feed camera snapshots to the cat detector. State and
sensors are persisted between invocations; "watch" runs until interrupted
and scans every snapshot dropped into the camera inbox.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	root.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "log debug messages regardless of the configured level")

	root.AddCommand(
		newStatusCommand(),
		newArmCommand(),
		newDisarmCommand(),
		newSensorCommand(),
		newScanCommand(),
		newWatchCommand(),
	)

	version.AttachCobraVersionCommand(root)

	return root
}

// Execute runs the catpoint CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above.
	}
}

// withSession opens a session for the command, runs fn and closes the session.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *console.Session) error) error {
	ctx := logger.WithName(cmd.Context(), cmd.Name())
	ctx = logger.WithKV(ctx, "config", configPath)

	s, err := console.Open(ctx, &console.Options{
		ConfigPath: configPath,
		Out:        cmd.OutOrStdout(),
		Verbose:    verbose,
	})
	if err != nil {
		return err
	}

	err = fn(ctx, s)
	if closeErr := s.Close(context.WithoutCancel(ctx)); err == nil {
		err = closeErr
	}

	return err
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/service/console"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print arming status, alarm status and sensor summary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.Status(ctx)
			})
		},
	}
}

func newArmCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "arm home|away",
		Short:     "Arm the system. Every sensor is reset to inactive.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.SetArming(ctx, args[0])
			})
		},
	}
}

func newDisarmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and silence the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.SetArming(ctx, string(domain.Disarmed))
			})
		},
	}
}

func newSensorCommand() *cobra.Command {
	sensorCmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors.",
	}

	sensorTypes := make([]string, 0, 3)
	for _, t := range []domain.SensorType{domain.Door, domain.Window, domain.Motion} {
		sensorTypes = append(sensorTypes, strings.ToLower(string(t)))
	}

	typeHint := strings.Join(sensorTypes, "|")

	sensorCmd.AddCommand(
		&cobra.Command{
			Use:   fmt.Sprintf("add <name> %s", typeHint),
			Short: "Register a new inactive sensor.",
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *console.Session) error {
					return s.AddSensor(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   fmt.Sprintf("remove <name> [%s]", typeHint),
			Short: "Unregister a sensor.",
			Args:  cobra.RangeArgs(1, 2), //nolint:mnd // Name and optional type.
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *console.Session) error {
					return s.RemoveSensor(ctx, args[0], optionalArg(args, 1))
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered sensors.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSession(cmd, func(ctx context.Context, s *console.Session) error {
					return s.ListSensors(ctx)
				})
			},
		},
		newActivationCommand("activate", "Report a sensor as triggered.", true, typeHint),
		newActivationCommand("deactivate", "Report a sensor as cleared.", false, typeHint),
	)

	return sensorCmd
}

func newActivationCommand(use, short string, active bool, typeHint string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <name> [%s]", use, typeHint),
		Short: short,
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd // Name and optional type.
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.SetSensorActive(ctx, args[0], optionalArg(args, 1), active)
			})
		},
	}
}

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Analyze a camera snapshot for cats.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.Scan(ctx, args[0])
			})
		},
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Scan every snapshot dropped into the camera inbox until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *console.Session) error {
				return s.Watch(ctx)
			})
		},
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}

	return ""
}

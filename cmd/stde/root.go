package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/internal/config"
	"github.com/ha1tch/webstde/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), log: logging.NewNop()}

	root := &cobra.Command{
		Use:           "stde",
		Short:         "State transition diagram tool",
		Long:          `stde validates, formats and renders state transition diagrams exported by the diagram editor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.NewWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	root.PersistentFlags().String("config", config.DefaultPath(), "Configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newInfoCmd(a),
		newValidateCmd(a),
		newFmtCmd(a),
		newDotCmd(a),
		newRenderCmd(a),
		newLayoutCmd(a),
		newServeCmd(a),
	)
	return root
}

// Command stdedit is a terminal editor for state transition diagrams.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/internal/config"
	"github.com/ha1tch/webstde/internal/logging"
	"github.com/ha1tch/webstde/pkg/editor"
	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath, logFile, logLevel string
	cmd := &cobra.Command{
		Use:           "stdedit [file.json]",
		Short:         "Edit a state transition diagram in the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			log, closeLog, err := openLog(logFile, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closeLog()

			m := stde.New("")
			filename := ""
			if len(args) == 1 {
				filename = args[0]
				loaded, err := stdefile.ReadFile(filename)
				switch {
				case err == nil:
					m = loaded
				case errors.Is(err, fs.ErrNotExist):
					// New file, created on first save.
				default:
					return err
				}
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()

			opts := cfg.SessionOptions()
			opts.Logger = log
			ed := NewEditor(screen, editor.New(m, opts), cfg, cfgPath, log)
			ed.filename = filename
			ed.run()
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", config.DefaultPath(), "Configuration file")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file (the terminal is owned by the editor)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

func openLog(path, level string) (*slog.Logger, func(), error) {
	if path == "" {
		return logging.NewNop(), func() {}, nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return logging.NewWriter(f, lvl), func() { f.Close() }, nil
}

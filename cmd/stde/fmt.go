package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/pkg/stdefile"
)

func newFmtCmd(a *app) *cobra.Command {
	var (
		write   bool
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "fmt <file.json>...",
		Short: "Rewrite diagrams in canonical form",
		Long: `Parses each diagram and prints it back in canonical field order. With -w the
files are rewritten in place when they differ.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				orig, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				m, err := stdefile.ParseJSON(orig)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				data, err := stdefile.ToJSON(m, !compact)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				data = append(data, '\n')

				if !write {
					cmd.OutOrStdout().Write(data)
					continue
				}
				if bytes.Equal(orig, data) {
					continue
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					return err
				}
				a.log.Info("formatted", "file", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite files in place")
	cmd.Flags().BoolVar(&compact, "compact", false, "Emit single-line JSON")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/pkg/stdefile"
)

func newValidateCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file.json>...",
		Short: "Check diagrams for errors and questionable constructs",
		Long: `Parses each file, reporting structural errors (bad signal widths, dangling
transition indices, unknown fields) and analysis warnings. With --strict,
warnings also fail the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				m, err := stdefile.ReadFile(path)
				if err != nil {
					a.log.Warn("invalid diagram", "file", path, "error", err)
					fmt.Fprintf(out, "%s: %v\n", path, err)
					failed++
					continue
				}
				warnings := m.Analyse()
				for _, w := range warnings {
					fmt.Fprintf(out, "%s: warning: %s\n", path, w)
				}
				if strict && len(warnings) > 0 {
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: ok (%d states, %d transitions)\n", path, len(m.States()), len(m.Transitions()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

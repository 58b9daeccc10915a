package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/pkg/stdefile"
)

func newDotCmd(a *app) *cobra.Command {
	var output, title string
	cmd := &cobra.Command{
		Use:   "dot <file.json>",
		Short: "Export a diagram as Graphviz DOT",
		Long:  `Emits a digraph with node positions pinned to the editor layout; render it with "neato -n".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := stdefile.ReadFile(args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = m.ID()
			}
			dot := stdefile.GenerateDOT(m, title)
			if output == "" {
				_, err := cmd.OutOrStdout().Write([]byte(dot))
				return err
			}
			if err := os.WriteFile(output, []byte(dot), 0644); err != nil {
				return err
			}
			a.log.Info("wrote dot", "file", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Graph title (default diagram id)")
	return cmd
}

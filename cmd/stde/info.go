package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ha1tch/webstde/pkg/stde"
	"github.com/ha1tch/webstde/pkg/stdefile"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.json>",
		Short: "Summarise a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := stdefile.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if m.ID() != "" {
				fmt.Fprintf(out, "ID:          %s\n", m.ID())
			}
			fmt.Fprintf(out, "Signals:     %d\n", len(m.Signals()))
			fmt.Fprintf(out, "States:      %d\n", len(m.States()))
			fmt.Fprintf(out, "Transitions: %d\n", len(m.Transitions()))

			if sigs := m.Signals(); len(sigs) > 0 {
				fmt.Fprintln(out)
				for _, s := range sigs {
					fmt.Fprintf(out, "  %-12s %-8s %3d  %-11s %s\n", s.ID(), s.Type(), s.Bits(), s.Direction(), s.Desc())
				}
			}
			if states := m.States(); len(states) > 0 {
				fmt.Fprintln(out)
				for _, s := range states {
					fmt.Fprintf(out, "  [%d] %-12s (%g, %g) %s\n", s.Idx(), s.ID(), s.Pos().X, s.Pos().Y, stde.FormatOutputs(s.MooreOutput()))
				}
			}
			if trans := m.Transitions(); len(trans) > 0 {
				fmt.Fprintln(out)
				for _, t := range trans {
					fmt.Fprintf(out, "  %s -> %s  %s\n", t.From().ID(), t.To().ID(), t.Label())
				}
			}
			return nil
		},
	}
}

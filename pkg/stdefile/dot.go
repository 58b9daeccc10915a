package stdefile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/webstde/pkg/stde"
)

// dotScale converts canvas units to Graphviz points.
const dotScale = 0.5

// GenerateDOT converts a machine to Graphviz DOT format. Nodes are named by
// state index, so duplicate state ids stay distinct, and carry pinned
// positions from the canvas (use neato -n to honour them).
func GenerateDOT(m *stde.StateMachine, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph STD {\n")
	sb.WriteString("    node [shape=ellipse, fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(title)))
		sb.WriteString("\n")
	}

	for _, s := range m.States() {
		label := s.ID()
		if out := stde.FormatOutputs(s.MooreOutput()); out != "" {
			label += "\\n" + out
		}
		attrs := []string{
			fmt.Sprintf("label=\"%s\"", escapeDOTLabel(label)),
			// DOT y grows upward.
			fmt.Sprintf("pos=\"%.0f,%.0f!\"", s.Pos().X*dotScale, -s.Pos().Y*dotScale),
		}
		if s.Desc() != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=\"%s\"", escapeDOT(s.Desc())))
		}
		sb.WriteString(fmt.Sprintf("    s%d [%s];\n", s.Idx(), strings.Join(attrs, ", ")))
	}
	sb.WriteString("\n")

	for _, t := range m.Transitions() {
		sb.WriteString(fmt.Sprintf("    s%d -> s%d", t.From().Idx(), t.To().Idx()))
		if label := t.Label(); label != "" {
			sb.WriteString(fmt.Sprintf(" [label=\"%s\"]", escapeDOT(label)))
		}
		sb.WriteString(";\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// escapeDOTLabel escapes a label that already contains \n line breaks.
func escapeDOTLabel(s string) string {
	parts := strings.Split(s, "\\n")
	for i, p := range parts {
		parts[i] = escapeDOT(p)
	}
	return strings.Join(parts, "\\n")
}

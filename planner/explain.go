package planner

import "strings"

// ExplainLines renders plan one operator per line, children indented two
// spaces below their parent.
func ExplainLines(plan PlanNode) []string {
	var lines []string
	var visit func(n PlanNode, depth int)
	visit = func(n PlanNode, depth int) {
		lines = append(lines, strings.Repeat("  ", depth)+n.String())
		for _, c := range n.Children() {
			visit(c, depth+1)
		}
	}
	visit(plan, 0)
	return lines
}

// Explain is ExplainLines joined by newlines.
func Explain(plan PlanNode) string {
	return strings.Join(ExplainLines(plan), "\n")
}

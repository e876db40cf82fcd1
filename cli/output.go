package cli

import (
	"fmt"
	"io"
	"strings"

	"mit.edu/dsg/physopt/codec"
	"mit.edu/dsg/physopt/optimizer"
	"mit.edu/dsg/physopt/planner"
)

func renderPlan(format string, plan planner.PlanNode) (string, error) {
	if format == "yaml" {
		doc, err := codec.Encode(plan)
		if err != nil {
			return "", err
		}
		return string(doc), nil
	}
	return planner.Explain(plan) + "\n", nil
}

// writeStats prints the rewrite counters. In YAML mode they follow the plan
// as a second document.
func writeStats(w io.Writer, format string, stats []optimizer.EventCount) {
	if format == "yaml" {
		fmt.Fprintln(w, "---")
		if len(stats) == 0 {
			fmt.Fprintln(w, "{}")
		}
		for _, s := range stats {
			fmt.Fprintf(w, "%s: %d\n", s.Event, s.Count)
		}
		return
	}
	fmt.Fprintln(w)
	if len(stats) == 0 {
		fmt.Fprintln(w, "no rewrites")
		return
	}
	width := 0
	for _, s := range stats {
		width = max(width, len(s.Event))
	}
	for _, s := range stats {
		fmt.Fprintf(w, "%s%s  %d\n", s.Event, strings.Repeat(" ", width-len(s.Event)), s.Count)
	}
}

package common

import "fmt"

// Assert checks a condition and panics if it is false.
//
// Assertions guard invariants the optimizer itself establishes (for example,
// that a node built by a constructor has the arity its kind demands). Conditions
// that depend on the input plan are reported as PlanError values instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

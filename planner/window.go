package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/common"
)

type WindowFunc int

const (
	WinCount WindowFunc = iota
	WinSum
	WinMin
	WinMax
	WinRowNumber
	WinRank
	WinFirstValue
	WinLastValue
	WinLag
	WinLead
)

func (f WindowFunc) String() string {
	switch f {
	case WinCount:
		return "count"
	case WinSum:
		return "sum"
	case WinMin:
		return "min"
	case WinMax:
		return "max"
	case WinRowNumber:
		return "row_number"
	case WinRank:
		return "rank"
	case WinFirstValue:
		return "first_value"
	case WinLastValue:
		return "last_value"
	case WinLag:
		return "lag"
	case WinLead:
		return "lead"
	}
	return "???"
}

// ParseWindowFunc is the inverse of WindowFunc.String.
func ParseWindowFunc(s string) (WindowFunc, bool) {
	for f := WinCount; f <= WinLead; f++ {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

func (f WindowFunc) usesFrame() bool {
	switch f {
	case WinRowNumber, WinRank, WinLag, WinLead:
		return false
	}
	return true
}

// reversed returns the function that yields the same result when the input is
// consumed in the opposite order.
func (f WindowFunc) reversed() (WindowFunc, bool) {
	switch f {
	case WinCount, WinSum, WinMin, WinMax:
		return f, true
	case WinFirstValue:
		return WinLastValue, true
	case WinLastValue:
		return WinFirstValue, true
	case WinLag:
		return WinLead, true
	case WinLead:
		return WinLag, true
	}
	return f, false
}

type FrameUnits int

const (
	RowsFrame FrameUnits = iota
	RangeFrame
)

func (u FrameUnits) String() string {
	if u == RangeFrame {
		return "RANGE"
	}
	return "ROWS"
}

type FrameBoundKind int

const (
	PrecedingBound FrameBoundKind = iota
	CurrentRowBound
	FollowingBound
)

// FrameBound is one end of a window frame. A nil Offset on a preceding or
// following bound means UNBOUNDED.
type FrameBound struct {
	Kind   FrameBoundKind
	Offset *int64
}

func UnboundedPreceding() FrameBound {
	return FrameBound{Kind: PrecedingBound}
}

func UnboundedFollowing() FrameBound {
	return FrameBound{Kind: FollowingBound}
}

func CurrentRow() FrameBound {
	return FrameBound{Kind: CurrentRowBound}
}

func Preceding(n int64) FrameBound {
	return FrameBound{Kind: PrecedingBound, Offset: &n}
}

func Following(n int64) FrameBound {
	return FrameBound{Kind: FollowingBound, Offset: &n}
}

func (b FrameBound) IsUnbounded() bool {
	return b.Kind != CurrentRowBound && b.Offset == nil
}

func (b FrameBound) reverse() FrameBound {
	switch b.Kind {
	case PrecedingBound:
		return FrameBound{Kind: FollowingBound, Offset: b.Offset}
	case FollowingBound:
		return FrameBound{Kind: PrecedingBound, Offset: b.Offset}
	}
	return b
}

func (b FrameBound) String() string {
	if b.Kind == CurrentRowBound {
		return "CURRENT ROW"
	}
	dir := "PRECEDING"
	if b.Kind == FollowingBound {
		dir = "FOLLOWING"
	}
	if b.Offset == nil {
		return "UNBOUNDED " + dir
	}
	return fmt.Sprintf("%d %s", *b.Offset, dir)
}

type WindowFrame struct {
	Units FrameUnits
	Start FrameBound
	End   FrameBound
}

// DefaultWindowFrame is the SQL default: everything up to the current row's
// peers when there is an ORDER BY, the whole partition otherwise.
func DefaultWindowFrame(hasOrderBy bool) WindowFrame {
	if hasOrderBy {
		return WindowFrame{Units: RangeFrame, Start: UnboundedPreceding(), End: CurrentRow()}
	}
	return WindowFrame{Units: RowsFrame, Start: UnboundedPreceding(), End: UnboundedFollowing()}
}

// Reverse mirrors the frame for evaluation over reversed input.
func (f WindowFrame) Reverse() WindowFrame {
	return WindowFrame{Units: f.Units, Start: f.End.reverse(), End: f.Start.reverse()}
}

func (f WindowFrame) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", f.Units, f.Start, f.End)
}

// WindowExpr is one window function call with its OVER clause.
type WindowExpr struct {
	Func        WindowFunc
	Args        []Expr
	PartitionBy []Expr
	OrderBy     LexOrdering
	Frame       WindowFrame
}

// Name is the output column name of the expression.
func (w WindowExpr) Name() string {
	args := make([]string, len(w.Args))
	for i, a := range w.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", w.Func, strings.Join(args, ", "))
}

func (w WindowExpr) resultType() common.Type {
	switch w.Func {
	case WinCount, WinRowNumber, WinRank:
		return common.IntType
	}
	if len(w.Args) > 0 {
		return w.Args[0].OutputType()
	}
	return common.IntType
}

// Reverse returns an expression computing the same values over input sorted
// by the reverse of OrderBy. It reports false for functions that depend on the
// direction of the scan in a way that cannot be mirrored.
func (w WindowExpr) Reverse() (WindowExpr, bool) {
	f, ok := w.Func.reversed()
	if !ok {
		return WindowExpr{}, false
	}
	return WindowExpr{
		Func:        f,
		Args:        w.Args,
		PartitionBy: w.PartitionBy,
		OrderBy:     w.OrderBy.Reverse(),
		Frame:       w.Frame.Reverse(),
	}, true
}

// UsesBoundedMemory reports whether the expression can be evaluated over
// sorted input without buffering whole partitions.
func (w WindowExpr) UsesBoundedMemory() bool {
	if !w.Func.usesFrame() {
		return true
	}
	return !w.Frame.End.IsUnbounded()
}

func (w WindowExpr) String() string {
	var b strings.Builder
	b.WriteString(w.Name())
	if len(w.PartitionBy) > 0 {
		fmt.Fprintf(&b, " PARTITION BY %s", exprList(w.PartitionBy))
	}
	if len(w.OrderBy) > 0 {
		fmt.Fprintf(&b, " ORDER BY %s", w.OrderBy)
	}
	if w.Func.usesFrame() {
		fmt.Fprintf(&b, " %s", w.Frame)
	}
	return b.String()
}

// WindowRequirement is the input ordering a window set needs: the partition
// keys of the first expression in any direction, then its ORDER BY.
func WindowRequirement(exprs []WindowExpr) LexRequirement {
	if len(exprs) == 0 {
		return nil
	}
	req := RequirementFromExprs(exprs[0].PartitionBy)
	req = append(req, exprs[0].OrderBy.Requirement()...)
	if len(req) == 0 {
		return nil
	}
	return req
}

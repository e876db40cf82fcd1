package planner

import (
	"strings"
)

// SortOptions is the direction and null placement of one sort key. The zero
// value is ASC NULLS FIRST.
type SortOptions struct {
	Descending bool
	NullsLast  bool
}

// Reverse flips both the direction and the null placement, which is the order a
// backwards scan of a sorted stream observes.
func (o SortOptions) Reverse() SortOptions {
	return SortOptions{Descending: !o.Descending, NullsLast: !o.NullsLast}
}

func (o SortOptions) String() string {
	switch {
	case !o.Descending && !o.NullsLast:
		return "ASC"
	case !o.Descending && o.NullsLast:
		return "ASC NULLS LAST"
	case o.Descending && !o.NullsLast:
		return "DESC"
	default:
		return "DESC NULLS LAST"
	}
}

// SortExpr is one key of a concrete ordering.
type SortExpr struct {
	Expr    Expr
	Options SortOptions
}

func NewSortExpr(expr Expr, options SortOptions) SortExpr {
	return SortExpr{Expr: expr, Options: options}
}

func (s SortExpr) String() string {
	return s.Expr.String() + " " + s.Options.String()
}

// Satisfies reports whether this key meets the requirement r.
func (s SortExpr) Satisfies(r SortRequirement) bool {
	return ExprEqual(s.Expr, r.Expr) && (r.Options == nil || *r.Options == s.Options)
}

// LexOrdering is a lexicographic ordering; the first key is the most
// significant. A nil LexOrdering means "no known ordering".
type LexOrdering []SortExpr

func (o LexOrdering) String() string {
	parts := make([]string, len(o))
	for i, s := range o {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Requirement converts the ordering into an equivalent requirement with every
// option pinned.
func (o LexOrdering) Requirement() LexRequirement {
	if len(o) == 0 {
		return nil
	}
	req := make(LexRequirement, len(o))
	for i, s := range o {
		opts := s.Options
		req[i] = SortRequirement{Expr: s.Expr, Options: &opts}
	}
	return req
}

// Reverse returns the ordering with every key's options reversed.
func (o LexOrdering) Reverse() LexOrdering {
	if o == nil {
		return nil
	}
	out := make(LexOrdering, len(o))
	for i, s := range o {
		out[i] = SortExpr{Expr: s.Expr, Options: s.Options.Reverse()}
	}
	return out
}

// Equal reports key-by-key equality.
func (o LexOrdering) Equal(other LexOrdering) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if !ExprEqual(o[i].Expr, other[i].Expr) || o[i].Options != other[i].Options {
			return false
		}
	}
	return true
}

// SortRequirement is one key of a required ordering. A nil Options accepts
// either direction and either null placement.
type SortRequirement struct {
	Expr    Expr
	Options *SortOptions
}

func (r SortRequirement) String() string {
	if r.Options == nil {
		return r.Expr.String()
	}
	return r.Expr.String() + " " + r.Options.String()
}

// Compatible reports whether r is equal to or more specific than other.
func (r SortRequirement) Compatible(other SortRequirement) bool {
	if !ExprEqual(r.Expr, other.Expr) {
		return false
	}
	if other.Options == nil {
		return true
	}
	return r.Options != nil && *r.Options == *other.Options
}

// LexRequirement is an ordering requirement. A nil LexRequirement means "no
// requirement".
type LexRequirement []SortRequirement

func (r LexRequirement) String() string {
	parts := make([]string, len(r))
	for i, s := range r {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ToOrdering turns the requirement into a concrete ordering, defaulting
// unconstrained keys to ASC NULLS FIRST.
func (r LexRequirement) ToOrdering() LexOrdering {
	if len(r) == 0 {
		return nil
	}
	out := make(LexOrdering, len(r))
	for i, s := range r {
		var opts SortOptions
		if s.Options != nil {
			opts = *s.Options
		}
		out[i] = SortExpr{Expr: s.Expr, Options: opts}
	}
	return out
}

// RequirementFromExprs builds a requirement over exprs with no direction constraint.
func RequirementFromExprs(exprs []Expr) LexRequirement {
	if len(exprs) == 0 {
		return nil
	}
	req := make(LexRequirement, len(exprs))
	for i, e := range exprs {
		req[i] = SortRequirement{Expr: e}
	}
	return req
}

// MeetOrderings returns the longest common prefix of the given orderings, or
// nil if any of them is missing or the prefix is empty.
func MeetOrderings(orderings []LexOrdering) LexOrdering {
	if len(orderings) == 0 {
		return nil
	}
	for _, o := range orderings {
		if len(o) == 0 {
			return nil
		}
	}
	first := orderings[0]
	n := len(first)
	for _, o := range orderings[1:] {
		i := 0
		for i < n && i < len(o) && ExprEqual(first[i].Expr, o[i].Expr) && first[i].Options == o[i].Options {
			i++
		}
		n = i
	}
	if n == 0 {
		return nil
	}
	return append(LexOrdering(nil), first[:n]...)
}

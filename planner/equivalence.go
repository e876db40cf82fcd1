package planner

import (
	mapset "github.com/deckarep/golang-set/v2"

	"mit.edu/dsg/physopt/catalog"
)

// EquivalenceProperties is what an operator guarantees about its output rows
// beyond the schema: groups of expressions known to be equal, the orderings
// every partition is sorted by, and expressions that are constant.
//
// Values are immutable once handed out by a plan node; the With* methods
// return modified copies.
type EquivalenceProperties struct {
	schema       catalog.Schema
	classes      [][]Expr // the first member of each class is its representative
	orderings    []LexOrdering
	constants    []Expr
	constantKeys mapset.Set[string]
}

func NewEquivalenceProperties(schema catalog.Schema) *EquivalenceProperties {
	return &EquivalenceProperties{
		schema:       schema,
		constantKeys: mapset.NewThreadUnsafeSet[string](),
	}
}

func (e *EquivalenceProperties) Clone() *EquivalenceProperties {
	out := &EquivalenceProperties{
		schema:       e.schema,
		classes:      make([][]Expr, len(e.classes)),
		orderings:    append([]LexOrdering(nil), e.orderings...),
		constants:    append([]Expr(nil), e.constants...),
		constantKeys: e.constantKeys.Clone(),
	}
	for i, c := range e.classes {
		out.classes[i] = append([]Expr(nil), c...)
	}
	return out
}

func (e *EquivalenceProperties) Schema() catalog.Schema {
	return e.schema
}

func (e *EquivalenceProperties) Classes() [][]Expr {
	return e.classes
}

func (e *EquivalenceProperties) Orderings() []LexOrdering {
	return e.orderings
}

func (e *EquivalenceProperties) Constants() []Expr {
	return e.constants
}

// WithSchema returns a copy bound to a different (wider) schema. Used by
// operators that append columns, such as windows.
func (e *EquivalenceProperties) WithSchema(schema catalog.Schema) *EquivalenceProperties {
	out := e.Clone()
	out.schema = schema
	return out
}

// WithOrderings returns a copy whose known orderings are replaced.
func (e *EquivalenceProperties) WithOrderings(orderings ...LexOrdering) *EquivalenceProperties {
	out := e.Clone()
	out.orderings = nil
	out.AddNewOrderings(orderings...)
	return out
}

// WithReorder returns a copy that assumes the output is sorted by ordering and
// nothing else.
func (e *EquivalenceProperties) WithReorder(ordering LexOrdering) *EquivalenceProperties {
	return e.WithOrderings(ordering)
}

func (e *EquivalenceProperties) classOf(x Expr) int {
	for i, c := range e.classes {
		for _, m := range c {
			if ExprEqual(m, x) {
				return i
			}
		}
	}
	return -1
}

// AddEqualConditions records that a and b always hold the same value.
func (e *EquivalenceProperties) AddEqualConditions(a, b Expr) {
	ia, ib := e.classOf(a), e.classOf(b)
	switch {
	case ia >= 0 && ib >= 0:
		if ia == ib {
			return
		}
		e.classes[ia] = append(e.classes[ia], e.classes[ib]...)
		e.classes = append(e.classes[:ib], e.classes[ib+1:]...)
	case ia >= 0:
		e.classes[ia] = append(e.classes[ia], b)
	case ib >= 0:
		e.classes[ib] = append(e.classes[ib], a)
	default:
		if ExprEqual(a, b) {
			return
		}
		e.classes = append(e.classes, []Expr{a, b})
	}
}

// AddConstants records expressions known to be constant across the output.
func (e *EquivalenceProperties) AddConstants(exprs ...Expr) {
	for _, x := range exprs {
		if e.constantKeys.Add(x.String()) {
			e.constants = append(e.constants, x)
		}
	}
}

// AddNewOrderings records additional orderings the output satisfies. Empty
// orderings are ignored.
func (e *EquivalenceProperties) AddNewOrderings(orderings ...LexOrdering) {
	for _, o := range orderings {
		if len(o) > 0 {
			e.orderings = append(e.orderings, o)
		}
	}
}

// NormalizeExpr replaces x by the representative of its equivalence class.
func (e *EquivalenceProperties) NormalizeExpr(x Expr) Expr {
	if i := e.classOf(x); i >= 0 {
		return e.classes[i][0]
	}
	return x
}

func (e *EquivalenceProperties) isConstant(x Expr) bool {
	if e.constantKeys.Contains(x.String()) {
		return true
	}
	if i := e.classOf(x); i >= 0 {
		for _, m := range e.classes[i] {
			if e.constantKeys.Contains(m.String()) {
				return true
			}
		}
	}
	return false
}

// NormalizeRequirement rewrites r over class representatives and drops keys
// that are constant or already appear earlier.
func (e *EquivalenceProperties) NormalizeRequirement(r LexRequirement) LexRequirement {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out LexRequirement
	for _, s := range r {
		if e.isConstant(s.Expr) {
			continue
		}
		n := e.NormalizeExpr(s.Expr)
		if !seen.Add(n.String()) {
			continue
		}
		out = append(out, SortRequirement{Expr: n, Options: s.Options})
	}
	return out
}

// NormalizeSortExprs is NormalizeRequirement for concrete orderings.
func (e *EquivalenceProperties) NormalizeSortExprs(o LexOrdering) LexOrdering {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out LexOrdering
	for _, s := range o {
		if e.isConstant(s.Expr) {
			continue
		}
		n := e.NormalizeExpr(s.Expr)
		if !seen.Add(n.String()) {
			continue
		}
		out = append(out, SortExpr{Expr: n, Options: s.Options})
	}
	return out
}

// OrderingSatisfy reports whether the output is guaranteed to be sorted by o.
func (e *EquivalenceProperties) OrderingSatisfy(o LexOrdering) bool {
	return e.OrderingSatisfyRequirement(o.Requirement())
}

// OrderingSatisfyRequirement reports whether the output meets r: after
// normalization r must be a prefix of one of the known orderings.
func (e *EquivalenceProperties) OrderingSatisfyRequirement(r LexRequirement) bool {
	req := e.NormalizeRequirement(r)
	if len(req) == 0 {
		return true
	}
	for _, o := range e.orderings {
		provided := e.NormalizeSortExprs(o)
		if len(req) > len(provided) {
			continue
		}
		ok := true
		for i := range req {
			if !provided[i].Satisfies(req[i]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// RequirementsCompatible reports whether provided is equal to or more
// specific than required under this node's equivalences.
func (e *EquivalenceProperties) RequirementsCompatible(provided, required LexRequirement) bool {
	p := e.NormalizeRequirement(provided)
	r := e.NormalizeRequirement(required)
	if len(r) > len(p) {
		return false
	}
	for i := range r {
		if !p[i].Compatible(r[i]) {
			return false
		}
	}
	return true
}

// Shifted returns a copy with every expression's columns moved right by
// offset and bound to schema. Used for the right side of joins.
func (e *EquivalenceProperties) Shifted(offset int, schema catalog.Schema) *EquivalenceProperties {
	out := NewEquivalenceProperties(schema)
	for _, c := range e.classes {
		shifted := make([]Expr, len(c))
		for i, m := range c {
			shifted[i] = ShiftColumns(m, offset)
		}
		out.classes = append(out.classes, shifted)
	}
	for _, k := range e.constants {
		out.AddConstants(ShiftColumns(k, offset))
	}
	for _, o := range e.orderings {
		out.AddNewOrderings(ShiftOrdering(o, offset))
	}
	return out
}

// Merge folds other's classes and constants into e. Orderings are not merged.
func (e *EquivalenceProperties) Merge(other *EquivalenceProperties) {
	for _, c := range other.classes {
		for _, m := range c[1:] {
			e.AddEqualConditions(c[0], m)
		}
	}
	e.AddConstants(other.constants...)
}

// Project maps the properties through a projection. mapping translates an
// input expression to its output counterpart, or reports false if the
// projection drops it.
func (e *EquivalenceProperties) Project(mapping func(Expr) (Expr, bool), schema catalog.Schema) *EquivalenceProperties {
	out := NewEquivalenceProperties(schema)
	for _, c := range e.classes {
		var mapped []Expr
		for _, m := range c {
			if x, ok := mapping(m); ok {
				mapped = append(mapped, x)
			}
		}
		for _, m := range mapped[min(1, len(mapped)):] {
			out.AddEqualConditions(mapped[0], m)
		}
	}
	for _, k := range e.constants {
		if x, ok := mapping(k); ok {
			out.AddConstants(x)
		}
	}
	for _, o := range e.orderings {
		out.AddNewOrderings(ProjectOrdering(o, mapping))
	}
	return out
}

// ShiftOrdering moves the columns of every key right by offset.
func ShiftOrdering(o LexOrdering, offset int) LexOrdering {
	if o == nil {
		return nil
	}
	out := make(LexOrdering, len(o))
	for i, s := range o {
		out[i] = SortExpr{Expr: ShiftColumns(s.Expr, offset), Options: s.Options}
	}
	return out
}

// ProjectOrdering keeps the longest prefix of o whose keys survive mapping.
func ProjectOrdering(o LexOrdering, mapping func(Expr) (Expr, bool)) LexOrdering {
	var out LexOrdering
	for _, s := range o {
		x, ok := mapping(s.Expr)
		if !ok {
			break
		}
		out = append(out, SortExpr{Expr: x, Options: s.Options})
	}
	return out
}

package planner

import (
	"fmt"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// Expr represents a node in an expression tree.
// Expressions are stateless and immutable. Two expressions are considered the
// same when their String forms match; column references print their position,
// so equal strings imply equal references.
type Expr interface {
	// OutputType returns the type of value this expression produces.
	OutputType() common.Type

	// Children returns the direct sub-expressions.
	Children() []Expr

	// WithChildren rebuilds the expression over new sub-expressions.
	WithChildren(children []Expr) Expr

	// String returns a string representation of the expression.
	String() string
}

// ExprEqual reports whether two expressions are structurally identical.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// BoundValueExpr is a reference to a column of the input schema, bound by position.
type BoundValueExpr struct {
	fieldOffset int // offset of the column in the input schema
	outputType  common.Type
	name        string
}

func NewColumnValueExpression(fieldOffset int, schema catalog.Schema) *BoundValueExpr {
	return &BoundValueExpr{
		fieldOffset: fieldOffset,
		outputType:  schema[fieldOffset].Type,
		name:        schema[fieldOffset].Name,
	}
}

// NewColumnByName binds the named column of schema.
func NewColumnByName(name string, schema catalog.Schema) (*BoundValueExpr, error) {
	idx := schema.IndexOf(name)
	if idx < 0 {
		return nil, common.NewPlanError(common.NoSuchTableError, "column '%s' not found in %s", name, schema)
	}
	return NewColumnValueExpression(idx, schema), nil
}

func (e *BoundValueExpr) Index() int {
	return e.fieldOffset
}

func (e *BoundValueExpr) Name() string {
	return e.name
}

func (e *BoundValueExpr) OutputType() common.Type {
	return e.outputType
}

func (e *BoundValueExpr) Children() []Expr {
	return nil
}

func (e *BoundValueExpr) WithChildren([]Expr) Expr {
	return e
}

func (e *BoundValueExpr) String() string {
	return fmt.Sprintf("%s@%d", e.name, e.fieldOffset)
}

// withOffset returns the same column moved to position idx.
func (e *BoundValueExpr) withOffset(idx int) *BoundValueExpr {
	return &BoundValueExpr{fieldOffset: idx, outputType: e.outputType, name: e.name}
}

type ConstantValueExpr struct {
	val common.Value
}

func NewConstantValueExpression(val common.Value) *ConstantValueExpr {
	return &ConstantValueExpr{val: val}
}

func (e *ConstantValueExpr) Value() common.Value {
	return e.val
}

func (e *ConstantValueExpr) OutputType() common.Type {
	return e.val.Type()
}

func (e *ConstantValueExpr) Children() []Expr {
	return nil
}

func (e *ConstantValueExpr) WithChildren([]Expr) Expr {
	return e
}

func (e *ConstantValueExpr) String() string {
	return e.val.String()
}

type ComparisonType int

const (
	Equal ComparisonType = iota
	NotEqual
	GreaterThan
	LessThan
	GreaterThanOrEqual
	LessThanOrEqual
)

func (c ComparisonType) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case GreaterThanOrEqual:
		return ">="
	case LessThanOrEqual:
		return "<="
	}
	return "???"
}

type ComparisonExpression struct {
	left     Expr
	right    Expr
	compType ComparisonType
}

func NewComparisonExpression(left Expr, right Expr, compType ComparisonType) *ComparisonExpression {
	return &ComparisonExpression{
		left:     left,
		right:    right,
		compType: compType,
	}
}

func (e *ComparisonExpression) Left() Expr { return e.left }
func (e *ComparisonExpression) Right() Expr { return e.right }
func (e *ComparisonExpression) CompType() ComparisonType { return e.compType }

func (e *ComparisonExpression) OutputType() common.Type {
	return common.IntType
}

func (e *ComparisonExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *ComparisonExpression) WithChildren(children []Expr) Expr {
	return NewComparisonExpression(children[0], children[1], e.compType)
}

func (e *ComparisonExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left.String(), e.compType.String(), e.right.String())
}

type BinaryLogicType int

const (
	And BinaryLogicType = iota
	Or
)

func (l BinaryLogicType) String() string {
	switch l {
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return "???"
}

type BinaryLogicExpression struct {
	left      Expr
	right     Expr
	logicType BinaryLogicType
}

func NewBinaryLogicExpression(left Expr, right Expr, logicType BinaryLogicType) *BinaryLogicExpression {
	return &BinaryLogicExpression{
		left:      left,
		right:     right,
		logicType: logicType,
	}
}

func (e *BinaryLogicExpression) Left() Expr { return e.left }
func (e *BinaryLogicExpression) Right() Expr { return e.right }
func (e *BinaryLogicExpression) LogicType() BinaryLogicType { return e.logicType }

func (e *BinaryLogicExpression) OutputType() common.Type {
	return common.IntType
}

func (e *BinaryLogicExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *BinaryLogicExpression) WithChildren(children []Expr) Expr {
	return NewBinaryLogicExpression(children[0], children[1], e.logicType)
}

func (e *BinaryLogicExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left.String(), e.logicType.String(), e.right.String())
}

type NegationExpression struct {
	child Expr
}

func NewNegationExpression(child Expr) *NegationExpression {
	return &NegationExpression{
		child: child,
	}
}

func (e *NegationExpression) OutputType() common.Type {
	return common.IntType
}

func (e *NegationExpression) Children() []Expr {
	return []Expr{e.child}
}

func (e *NegationExpression) WithChildren(children []Expr) Expr {
	return NewNegationExpression(children[0])
}

func (e *NegationExpression) String() string {
	return fmt.Sprintf("!(%s)", e.child.String())
}

type NullCheckType int

const (
	IsNull NullCheckType = iota
	IsNotNull
)

func (n NullCheckType) String() string {
	switch n {
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	}
	return "???"
}

type NullCheckExpression struct {
	child     Expr
	checkType NullCheckType
}

func NewNullCheckExpression(child Expr, checkType NullCheckType) *NullCheckExpression {
	return &NullCheckExpression{
		child:     child,
		checkType: checkType,
	}
}

func (e *NullCheckExpression) CheckType() NullCheckType { return e.checkType }

func (e *NullCheckExpression) OutputType() common.Type {
	return common.IntType
}

func (e *NullCheckExpression) Children() []Expr {
	return []Expr{e.child}
}

func (e *NullCheckExpression) WithChildren(children []Expr) Expr {
	return NewNullCheckExpression(children[0], e.checkType)
}

func (e *NullCheckExpression) String() string {
	return fmt.Sprintf("(%s %s)", e.child.String(), e.checkType.String())
}

type ArithmeticType int

const (
	Add ArithmeticType = iota
	Sub
	Mult
	Div
	Mod
)

func (a ArithmeticType) String() string {
	switch a {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mult:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	}
	return "?"
}

type ArithmeticExpression struct {
	left  Expr
	right Expr
	op    ArithmeticType
}

func NewArithmeticExpression(left Expr, right Expr, op ArithmeticType) *ArithmeticExpression {
	return &ArithmeticExpression{
		left:  left,
		right: right,
		op:    op,
	}
}

func (e *ArithmeticExpression) Op() ArithmeticType { return e.op }

func (e *ArithmeticExpression) OutputType() common.Type {
	return common.IntType
}

func (e *ArithmeticExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *ArithmeticExpression) WithChildren(children []Expr) Expr {
	return NewArithmeticExpression(children[0], children[1], e.op)
}

func (e *ArithmeticExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left.String(), e.op.String(), e.right.String())
}

// RewriteColumns rebuilds e with every column reference replaced by fn. It
// reports false if fn rejects any column.
func RewriteColumns(e Expr, fn func(col *BoundValueExpr) (Expr, bool)) (Expr, bool) {
	if col, ok := e.(*BoundValueExpr); ok {
		return fn(col)
	}
	children := e.Children()
	if len(children) == 0 {
		return e, true
	}
	rewritten := make([]Expr, len(children))
	for i, c := range children {
		nc, ok := RewriteColumns(c, fn)
		if !ok {
			return nil, false
		}
		rewritten[i] = nc
	}
	return e.WithChildren(rewritten), true
}

// ShiftColumns moves every column reference of e right by offset positions.
func ShiftColumns(e Expr, offset int) Expr {
	shifted, _ := RewriteColumns(e, func(col *BoundValueExpr) (Expr, bool) {
		return col.withOffset(col.fieldOffset + offset), true
	})
	return shifted
}

// CollectColumns returns every column reference in e, in visiting order.
func CollectColumns(e Expr) []*BoundValueExpr {
	var cols []*BoundValueExpr
	var visit func(Expr)
	visit = func(x Expr) {
		if col, ok := x.(*BoundValueExpr); ok {
			cols = append(cols, col)
			return
		}
		for _, c := range x.Children() {
			visit(c)
		}
	}
	visit(e)
	return cols
}

// SplitConjunction flattens a tree of ANDs into its conjuncts.
func SplitConjunction(e Expr) []Expr {
	if logic, ok := e.(*BinaryLogicExpression); ok && logic.logicType == And {
		return append(SplitConjunction(logic.left), SplitConjunction(logic.right)...)
	}
	return []Expr{e}
}

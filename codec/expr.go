package codec

import (
	"strconv"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/planner"
)

// exprDoc is the wire form of an expression. Exactly one of Index/Column,
// Literal or Op is set. A column may be given by name alone in hand-written
// plans; encoded plans always carry the index as well.
type exprDoc struct {
	Column  string      `yaml:"column,omitempty"`
	Index   *int        `yaml:"index,omitempty"`
	Literal *literalDoc `yaml:"literal,omitempty"`
	Op      string      `yaml:"op,omitempty"`
	Args    []exprDoc   `yaml:"args,omitempty"`
}

type literalDoc struct {
	Type  common.Type `yaml:"type"`
	Value string      `yaml:"value,omitempty"`
	Null  bool        `yaml:"null,omitempty"`
}

type sortDoc struct {
	Expr       exprDoc `yaml:"expr"`
	Descending bool    `yaml:"descending,omitempty"`
	NullsLast  bool    `yaml:"nulls_last,omitempty"`
}

var comparisonOps = map[string]planner.ComparisonType{
	"=": planner.Equal, "!=": planner.NotEqual,
	">": planner.GreaterThan, "<": planner.LessThan,
	">=": planner.GreaterThanOrEqual, "<=": planner.LessThanOrEqual,
}

var logicOps = map[string]planner.BinaryLogicType{"AND": planner.And, "OR": planner.Or}

var arithmeticOps = map[string]planner.ArithmeticType{
	"+": planner.Add, "-": planner.Sub, "*": planner.Mult, "/": planner.Div, "%": planner.Mod,
}

var nullCheckOps = map[string]planner.NullCheckType{"IS NULL": planner.IsNull, "IS NOT NULL": planner.IsNotNull}

const notOp = "NOT"

func encodeExpr(e planner.Expr) (exprDoc, error) {
	switch x := e.(type) {
	case *planner.BoundValueExpr:
		idx := x.Index()
		return exprDoc{Column: x.Name(), Index: &idx}, nil
	case *planner.ConstantValueExpr:
		return exprDoc{Literal: encodeValue(x.Value())}, nil
	}

	var op string
	switch x := e.(type) {
	case *planner.ComparisonExpression:
		op = x.CompType().String()
	case *planner.BinaryLogicExpression:
		op = x.LogicType().String()
	case *planner.ArithmeticExpression:
		op = x.Op().String()
	case *planner.NullCheckExpression:
		op = x.CheckType().String()
	case *planner.NegationExpression:
		op = notOp
	default:
		return exprDoc{}, common.NewPlanError(common.SerializationError, "cannot encode expression %s", e)
	}
	args, err := encodeExprs(e.Children())
	if err != nil {
		return exprDoc{}, err
	}
	return exprDoc{Op: op, Args: args}, nil
}

func encodeExprs(exprs []planner.Expr) ([]exprDoc, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]exprDoc, len(exprs))
	for i, e := range exprs {
		d, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func encodeValue(v common.Value) *literalDoc {
	if v.IsNull() {
		return &literalDoc{Type: v.Type(), Null: true}
	}
	if v.Type() == common.StringType {
		return &literalDoc{Type: v.Type(), Value: v.StringValue()}
	}
	return &literalDoc{Type: v.Type(), Value: strconv.FormatInt(v.IntValue(), 10)}
}

func encodeOrdering(o planner.LexOrdering) ([]sortDoc, error) {
	if o == nil {
		return nil, nil
	}
	out := make([]sortDoc, len(o))
	for i, s := range o {
		d, err := encodeExpr(s.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = sortDoc{Expr: d, Descending: s.Options.Descending, NullsLast: s.Options.NullsLast}
	}
	return out, nil
}

func decodeExpr(d exprDoc, schema catalog.Schema) (planner.Expr, error) {
	switch {
	case d.Index != nil:
		if *d.Index < 0 || *d.Index >= len(schema) {
			return nil, common.NewPlanError(common.SerializationError,
				"column index %d out of range for %s", *d.Index, schema)
		}
		if d.Column != "" && schema[*d.Index].Name != d.Column {
			return nil, common.NewPlanError(common.SerializationError,
				"column %s@%d does not match %s", d.Column, *d.Index, schema)
		}
		return planner.NewColumnValueExpression(*d.Index, schema), nil
	case d.Column != "":
		col, err := planner.NewColumnByName(d.Column, schema)
		if err != nil {
			return nil, err
		}
		return col, nil
	case d.Literal != nil:
		v, err := decodeValue(d.Literal)
		if err != nil {
			return nil, err
		}
		return planner.NewConstantValueExpression(v), nil
	}

	args, err := decodeExprs(d.Args, schema)
	if err != nil {
		return nil, err
	}
	arity := 2
	if _, ok := nullCheckOps[d.Op]; ok || d.Op == notOp {
		arity = 1
	}
	if len(args) != arity {
		return nil, common.NewPlanError(common.SerializationError,
			"operator %q takes %d arguments, got %d", d.Op, arity, len(args))
	}
	if t, ok := comparisonOps[d.Op]; ok {
		return planner.NewComparisonExpression(args[0], args[1], t), nil
	}
	if t, ok := logicOps[d.Op]; ok {
		return planner.NewBinaryLogicExpression(args[0], args[1], t), nil
	}
	if t, ok := arithmeticOps[d.Op]; ok {
		return planner.NewArithmeticExpression(args[0], args[1], t), nil
	}
	if t, ok := nullCheckOps[d.Op]; ok {
		return planner.NewNullCheckExpression(args[0], t), nil
	}
	if d.Op == notOp {
		return planner.NewNegationExpression(args[0]), nil
	}
	return nil, common.NewPlanError(common.SerializationError, "unknown operator %q", d.Op)
}

func decodeExprs(docs []exprDoc, schema catalog.Schema) ([]planner.Expr, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]planner.Expr, len(docs))
	for i, d := range docs {
		e, err := decodeExpr(d, schema)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeValue(d *literalDoc) (common.Value, error) {
	switch d.Type {
	case common.IntType:
		if d.Null {
			return common.NewNullInt(), nil
		}
		n, err := strconv.ParseInt(d.Value, 10, 64)
		if err != nil {
			return common.Value{}, common.NewPlanError(common.SerializationError, "bad int literal %q", d.Value)
		}
		return common.NewIntValue(n), nil
	case common.StringType:
		if d.Null {
			return common.NewNullString(), nil
		}
		return common.NewStringValue(d.Value), nil
	}
	return common.Value{}, common.NewPlanError(common.SerializationError, "literal without a type")
}

func decodeOrdering(docs []sortDoc, schema catalog.Schema) (planner.LexOrdering, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(planner.LexOrdering, len(docs))
	for i, d := range docs {
		e, err := decodeExpr(d.Expr, schema)
		if err != nil {
			return nil, err
		}
		out[i] = planner.NewSortExpr(e, planner.SortOptions{Descending: d.Descending, NullsLast: d.NullsLast})
	}
	return out, nil
}

package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// ProjectionNode projects specific columns or expressions from its child.
// Aliases name the output columns, one per expression.
type ProjectionNode struct {
	Child       PlanNode
	Expressions []Expr
	Aliases     []string
	schema      catalog.Schema
	planProperties
}

func NewProjectionNode(child PlanNode, exprs []Expr, aliases []string) *ProjectionNode {
	common.Assert(len(exprs) == len(aliases), "projection needs one alias per expression")
	schema := make(catalog.Schema, len(exprs))
	for i, e := range exprs {
		schema[i] = catalog.Column{Name: aliases[i], Type: e.OutputType(), Nullable: true}
		if col, ok := e.(*BoundValueExpr); ok {
			schema[i].Nullable = child.OutputSchema()[col.Index()].Nullable
		}
	}
	n := &ProjectionNode{
		Child:       child,
		Expressions: exprs,
		Aliases:     aliases,
		schema:      schema,
	}

	eq := child.EquivalenceProperties().Project(n.mapExpr, schema)
	partitioning := child.OutputPartitioning()
	if partitioning.Scheme == HashScheme {
		mapped := make([]Expr, 0, len(partitioning.Exprs))
		for _, e := range partitioning.Exprs {
			if m, ok := n.mapExpr(e); ok {
				mapped = append(mapped, m)
			}
		}
		if len(mapped) == len(partitioning.Exprs) {
			partitioning = NewHashPartitioning(mapped, partitioning.Count)
		} else {
			partitioning = NewUnknownPartitioning(partitioning.Count)
		}
	}
	n.planProperties = newPlanProperties(eq, ProjectOrdering(child.OutputOrdering(), n.mapExpr), partitioning, child.Unbounded())
	return n
}

// mapExpr translates an input expression to the output column that carries it.
func (n *ProjectionNode) mapExpr(e Expr) (Expr, bool) {
	for i, p := range n.Expressions {
		if ExprEqual(p, e) {
			return NewColumnValueExpression(i, n.schema), true
		}
	}
	return nil, false
}

func (n *ProjectionNode) Kind() NodeKind {
	return ProjectionKind
}

func (n *ProjectionNode) OutputSchema() catalog.Schema {
	return n.schema
}

func (n *ProjectionNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *ProjectionNode) RequiredInputOrdering() []LexRequirement {
	return noOrderingRequirement(1)
}

func (n *ProjectionNode) RequiredInputDistribution() []Distribution {
	return unspecifiedDistribution(1)
}

func (n *ProjectionNode) MaintainsInputOrder() []bool {
	return []bool{true}
}

func (n *ProjectionNode) WithNewChildren(children []PlanNode) (PlanNode, error) {
	if err := checkArity(ProjectionKind, children, 1); err != nil {
		return nil, err
	}
	if err := checkSchema(ProjectionKind, n.Child, children[0]); err != nil {
		return nil, err
	}
	return NewProjectionNode(children[0], n.Expressions, n.Aliases), nil
}

func (n *ProjectionNode) String() string {
	parts := make([]string, len(n.Expressions))
	for i, e := range n.Expressions {
		parts[i] = fmt.Sprintf("%s as %s", e, n.Aliases[i])
	}
	return fmt.Sprintf("Projection: expr=[%s]", strings.Join(parts, ", "))
}

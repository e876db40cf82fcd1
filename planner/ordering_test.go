package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/common"
)

// Schema: [a(int), b(int), c(string), d(int)]
func planTestSchema() catalog.Schema {
	return catalog.Schema{
		{Name: "a", Type: common.IntType},
		{Name: "b", Type: common.IntType, Nullable: true},
		{Name: "c", Type: common.StringType},
		{Name: "d", Type: common.IntType},
	}
}

func column(name string) Expr {
	c, err := NewColumnByName(name, planTestSchema())
	if err != nil {
		panic(err)
	}
	return c
}

func ascKey(name string) SortExpr {
	return NewSortExpr(column(name), SortOptions{})
}

func descKey(name string) SortExpr {
	return NewSortExpr(column(name), SortOptions{Descending: true})
}

func TestSortOptions(t *testing.T) {
	tests := []struct {
		opts     SortOptions
		str      string
		reversed SortOptions
	}{
		{SortOptions{}, "ASC", SortOptions{Descending: true, NullsLast: true}},
		{SortOptions{NullsLast: true}, "ASC NULLS LAST", SortOptions{Descending: true}},
		{SortOptions{Descending: true}, "DESC", SortOptions{NullsLast: true}},
		{SortOptions{Descending: true, NullsLast: true}, "DESC NULLS LAST", SortOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.opts.String())
			assert.Equal(t, tt.reversed, tt.opts.Reverse())
			assert.Equal(t, tt.opts, tt.opts.Reverse().Reverse())
		})
	}
}

func TestLexOrdering(t *testing.T) {
	o := LexOrdering{ascKey("a"), descKey("b")}
	assert.Equal(t, "[a@0 ASC, b@1 DESC]", o.String())
	assert.Equal(t, "[a@0 DESC NULLS LAST, b@1 ASC NULLS LAST]", o.Reverse().String())
	assert.True(t, o.Equal(LexOrdering{ascKey("a"), descKey("b")}))
	assert.False(t, o.Equal(LexOrdering{ascKey("a")}))
	assert.False(t, o.Equal(LexOrdering{ascKey("a"), ascKey("b")}))

	var none LexOrdering
	assert.Nil(t, none.Requirement())
	assert.Nil(t, none.Reverse())

	req := o.Requirement()
	require.Len(t, req, 2)
	require.NotNil(t, req[1].Options)
	assert.True(t, req[1].Options.Descending)
	assert.True(t, o.Equal(req.ToOrdering()))
}

func TestSortRequirementCompatible(t *testing.T) {
	asc := SortOptions{}
	desc := SortOptions{Descending: true}
	pinnedAsc := SortRequirement{Expr: column("a"), Options: &asc}
	pinnedDesc := SortRequirement{Expr: column("a"), Options: &desc}
	loose := SortRequirement{Expr: column("a")}
	other := SortRequirement{Expr: column("b")}

	assert.True(t, pinnedAsc.Compatible(loose))
	assert.True(t, pinnedAsc.Compatible(pinnedAsc))
	assert.False(t, loose.Compatible(pinnedAsc))
	assert.False(t, pinnedAsc.Compatible(pinnedDesc))
	assert.False(t, pinnedAsc.Compatible(other))

	assert.True(t, ascKey("a").Satisfies(loose))
	assert.True(t, descKey("a").Satisfies(pinnedDesc))
	assert.False(t, descKey("a").Satisfies(pinnedAsc))
}

func TestRequirementToOrdering(t *testing.T) {
	req := RequirementFromExprs([]Expr{column("c"), column("a")})
	assert.Equal(t, "[c@2, a@0]", req.String())
	assert.Equal(t, "[c@2 ASC, a@0 ASC]", req.ToOrdering().String())
	assert.Nil(t, RequirementFromExprs(nil))
	assert.Nil(t, LexRequirement(nil).ToOrdering())
}

func TestMeetOrderings(t *testing.T) {
	tests := []struct {
		name      string
		orderings []LexOrdering
		expected  LexOrdering
	}{
		{"single", []LexOrdering{{ascKey("a"), ascKey("b")}}, LexOrdering{ascKey("a"), ascKey("b")}},
		{"common prefix", []LexOrdering{{ascKey("a"), ascKey("b")}, {ascKey("a"), ascKey("c")}}, LexOrdering{ascKey("a")}},
		{"direction differs", []LexOrdering{{ascKey("a")}, {descKey("a")}}, nil},
		{"one unsorted", []LexOrdering{{ascKey("a")}, nil}, nil},
		{"none", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MeetOrderings(tt.orderings)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}
}

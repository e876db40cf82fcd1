package optimizer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	name     string
	children []*testNode
}

func (n *testNode) ChildNodes() []*testNode {
	return n.children
}

func (n *testNode) WithChildNodes(children []*testNode) (*testNode, error) {
	return &testNode{name: n.name, children: children}, nil
}

//	root
//	├── a
//	│   └── a1
//	└── b
func testTree() *testNode {
	return &testNode{name: "root", children: []*testNode{
		{name: "a", children: []*testNode{{name: "a1"}}},
		{name: "b"},
	}}
}

func TestTransformOrder(t *testing.T) {
	var up, down []string
	_, err := TransformUp(testTree(), func(n *testNode) (*testNode, error) {
		up = append(up, n.name)
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a", "b", "root"}, up)

	_, err = TransformDown(testTree(), func(n *testNode) (*testNode, error) {
		down = append(down, n.name)
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a", "a1", "b"}, down)
}

func TestTransformDownVisitsReplacement(t *testing.T) {
	// Replacing a node with a new subtree makes the walk continue into the
	// replacement's children.
	var seen []string
	got, err := TransformDown(testTree(), func(n *testNode) (*testNode, error) {
		seen = append(seen, n.name)
		if n.name == "b" {
			return &testNode{name: "b'", children: []*testNode{{name: "b1"}}}, nil
		}
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a", "a1", "b", "b1"}, seen)
	assert.Equal(t, "b'", got.children[1].name)
}

func TestTransformError(t *testing.T) {
	boom := errors.New("boom")
	fail := func(n *testNode) (*testNode, error) {
		if n.name == "a1" {
			return nil, boom
		}
		return n, nil
	}

	_, err := TransformUp(testTree(), fail)
	assert.ErrorIs(t, err, boom)

	_, err = TransformDown(testTree(), fail)
	assert.ErrorIs(t, err, boom)
}

package optimizer

// TreeNode is implemented by the per-pass contexts the rewrites walk. A
// context wraps a plan node together with whatever the pass tracks about it.
type TreeNode[T any] interface {
	// ChildNodes returns fresh contexts for the children of the wrapped plan.
	ChildNodes() []T

	// WithChildNodes rebuilds the context over rewritten children.
	WithChildNodes(children []T) (T, error)
}

// TransformUp rewrites every child of node first and then node itself.
func TransformUp[T TreeNode[T]](node T, fn func(T) (T, error)) (T, error) {
	children := node.ChildNodes()
	if len(children) > 0 {
		rewritten := make([]T, len(children))
		for i, c := range children {
			r, err := TransformUp(c, fn)
			if err != nil {
				var zero T
				return zero, err
			}
			rewritten[i] = r
		}
		rebuilt, err := node.WithChildNodes(rewritten)
		if err != nil {
			var zero T
			return zero, err
		}
		node = rebuilt
	}
	return fn(node)
}

// TransformDown rewrites node first and then every child of the result.
func TransformDown[T TreeNode[T]](node T, fn func(T) (T, error)) (T, error) {
	node, err := fn(node)
	if err != nil {
		var zero T
		return zero, err
	}
	children := node.ChildNodes()
	if len(children) == 0 {
		return node, nil
	}
	rewritten := make([]T, len(children))
	for i, c := range children {
		r, err := TransformDown(c, fn)
		if err != nil {
			var zero T
			return zero, err
		}
		rewritten[i] = r
	}
	return node.WithChildNodes(rewritten)
}

package internal

import "slices"

// ancestors returns n and every notifier reachable from it through parent
// edges.
func (n *Notifier) ancestors() map[*Notifier]struct{} {
	seen := map[*Notifier]struct{}{n: {}}
	stack := []*Notifier{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, p := range cur.parents {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				stack = append(stack, p)
			}
		}
	}
	return seen
}

// link creates the upward edge child -> parent.
func link(child, parent *Notifier) {
	child.parents = append(child.parents, parent)
	parent.children = append(parent.children, child)
}

// unlink removes the edge child -> parent if present.
func unlink(child, parent *Notifier) bool {
	i := slices.Index(child.parents, parent)
	if i < 0 {
		return false
	}

	child.parents = slices.Delete(child.parents, i, i+1)
	if j := slices.Index(parent.children, child); j >= 0 {
		parent.children = slices.Delete(parent.children, j, j+1)
	}
	return true
}

func deleteHandle(list []Handle, h Handle) []Handle {
	return slices.DeleteFunc(list, func(x Handle) bool { return x == h })
}

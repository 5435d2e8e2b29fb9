package sigl

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(g *Graph, names ...string) []*Notifier {
	ns := make([]*Notifier, len(names))
	for i, name := range names {
		ns[i] = g.NewNotifier(name, nil)
		if i > 0 {
			ns[i-1].ConnectTo(ns[i])
		}
	}
	return ns
}

func TestAddAction(t *testing.T) {
	t.Run("collapses repeated marks", func(t *testing.T) {
		g := NewGraph()
		n := g.NewNotifier("buffer", nil)

		a := n.AddAction(Load)
		b := n.AddAction(Load)

		assert.Same(t, a, b)
		assert.Equal(t, 1, n.ActionCount())

		n.AddAction(Create)
		assert.Equal(t, 2, n.ActionCount())
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		g := NewGraph()
		n := g.NewNotifier("texture", nil)

		n.AddAction(Create)
		n.AddAction(Load)
		n.AddAction(Create)
		n.AddAction(Release)

		kinds := []Kind{}
		for i := range n.ActionCount() {
			kinds = append(kinds, n.Action(i).Kind())
		}
		assert.Equal(t, []Kind{Create, Load, Release}, kinds)
	})

	t.Run("affinity follows the kind", func(t *testing.T) {
		g := NewGraph()
		n := g.NewNotifier("node", nil)

		assert.Equal(t, Main, n.AddAction(TransformUpdated).Affinity())
		assert.Equal(t, Main, n.AddAction(CameraUpdated).Affinity())
		assert.Equal(t, GL, n.AddAction(Create).Affinity())

		assert.True(t, n.HasActionsFor(Main))
		assert.True(t, n.HasActionsFor(GL))
	})

	t.Run("custom kinds", func(t *testing.T) {
		g := NewGraph()
		n := g.NewNotifier("frustum", nil)

		a := n.AddAction(frustumUpdated)
		assert.Equal(t, "frustum_updated", a.Kind().String())
		assert.Equal(t, Main, a.Affinity())
		assert.Panics(t, func() { RegisterKind("frustum_updated", Main) })
	})

	t.Run("action index out of range panics", func(t *testing.T) {
		g := NewGraph()
		n := g.NewNotifier("empty", nil)
		assert.Panics(t, func() { n.Action(0) })
	})
}

var frustumUpdated = RegisterKind("frustum_updated", Main)

func TestPropagation(t *testing.T) {
	t.Run("mirrors the same instance to every ancestor", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "vbo", "mesh", "geometry")

		a := ns[0].AddAction(Create)

		for _, n := range ns {
			require.Equal(t, 1, n.ActionCount(), n.Name())
			assert.Same(t, a, n.Action(0), n.Name())
		}
		assert.Same(t, ns[0], a.Owner())
	})

	t.Run("diamonds receive an action once", func(t *testing.T) {
		g := NewGraph()
		node := g.NewNotifier("node", nil)
		left := g.NewNotifier("material a", nil)
		right := g.NewNotifier("material b", nil)
		tex := g.NewNotifier("texture", nil)

		left.ConnectTo(node)
		right.ConnectTo(node)
		tex.ConnectTo(left)
		tex.ConnectTo(right)

		tex.AddAction(Load)

		assert.Equal(t, 1, node.ActionCount())
		assert.Equal(t, 1, left.ActionCount())
		assert.Equal(t, 1, right.ActionCount())
		assert.Equal(t, 1, g.LiveActions())
	})

	t.Run("connecting mirrors actions already pending", func(t *testing.T) {
		g := NewGraph()
		geom := g.NewNotifier("geometry", nil)
		mesh := g.NewNotifier("mesh", nil)
		vbo := g.NewNotifier("vbo", nil)
		vbo.ConnectTo(mesh)

		a := vbo.AddAction(Create)
		b := mesh.AddAction(Load)

		mesh.ConnectTo(geom)

		assert.Equal(t, []*Action{a, b}, slices.Collect(geom.Actions()))
	})

	t.Run("connecting twice is a no-op", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "child", "parent")
		ns[0].ConnectTo(ns[1])

		ns[0].AddAction(Create)
		assert.Len(t, ns[0].Parents(), 1)
		assert.Equal(t, 1, ns[1].ActionCount())
	})

	t.Run("cycles panic", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "a", "b", "c")

		assert.Panics(t, func() { ns[2].ConnectTo(ns[0]) })
		assert.Panics(t, func() { ns[1].ConnectTo(ns[1]) })
		assert.Empty(t, ns[2].Parents())
	})

	t.Run("graphs cannot be mixed", func(t *testing.T) {
		a := NewGraph().NewNotifier("a", nil)
		b := NewGraph().NewNotifier("b", nil)

		assert.Panics(t, func() { a.ConnectTo(b) })
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("withdraws mirrored actions", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "texture", "material", "geometry")

		a := ns[0].AddAction(Load)
		ns[1].AddAction(Create)

		ns[0].DisconnectFrom(ns[1])

		assert.True(t, a.Pending())
		assert.Equal(t, 1, ns[0].ActionCount())
		assert.Equal(t, 1, ns[1].ActionCount())
		assert.Equal(t, 1, ns[2].ActionCount())
		assert.Equal(t, "material", ns[2].Action(0).Owner().Name())
	})

	t.Run("keeps actions still reachable", func(t *testing.T) {
		g := NewGraph()
		root := g.NewNotifier("root", nil)
		a := g.NewNotifier("a", nil)
		b := g.NewNotifier("b", nil)
		leaf := g.NewNotifier("leaf", nil)
		a.ConnectTo(root)
		b.ConnectTo(root)
		leaf.ConnectTo(a)
		leaf.ConnectTo(b)

		leaf.AddAction(Create)
		leaf.DisconnectFrom(a)

		assert.False(t, a.HasActions())
		assert.True(t, b.HasActions())
		assert.True(t, root.HasActions())
	})

	t.Run("unknown parents are ignored", func(t *testing.T) {
		g := NewGraph()
		a := g.NewNotifier("a", nil)
		b := g.NewNotifier("b", nil)

		a.AddAction(Create)
		a.DisconnectFrom(b)
		assert.Equal(t, 1, a.ActionCount())
	})
}

func TestDispose(t *testing.T) {
	t.Run("removes owned actions everywhere", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "vbo", "mesh", "geometry")

		a := ns[0].AddAction(Create)
		ns[0].Dispose()

		assert.False(t, a.Pending())
		assert.False(t, ns[1].HasActions())
		assert.False(t, ns[2].HasActions())
		assert.Empty(t, ns[1].Children())
		assert.True(t, ns[0].Disposed())
		assert.Equal(t, 0, g.LiveActions())

		ns[0].Dispose()
	})

	t.Run("keeps descendants alive", func(t *testing.T) {
		g := NewGraph()
		ns := chain(g, "vbo", "mesh", "geometry")

		a := ns[0].AddAction(Load)
		ns[1].Dispose()

		assert.True(t, a.Pending())
		assert.Equal(t, 1, ns[0].ActionCount())
		assert.False(t, ns[2].HasActions())
		assert.Empty(t, ns[0].Parents())
	})
}

package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type applyFunc func(a *Action, ctx any) bool

func (f applyFunc) ApplyAction(a *Action, ctx any) bool { return f(a, ctx) }

func TestRuntime(t *testing.T) {
	t.Run("actions know every list holding them", func(t *testing.T) {
		r := NewRuntime(Options{})
		root := r.NewNotifier("root", nil)
		left := r.NewNotifier("left", nil)
		right := r.NewNotifier("right", nil)
		leaf := r.NewNotifier("leaf", nil)

		left.ConnectTo(root)
		right.ConnectTo(root)
		leaf.ConnectTo(left)
		leaf.ConnectTo(right)

		a := leaf.AddAction(KindCreate)

		assert.ElementsMatch(t, []*Notifier{leaf, left, right, root}, a.members)
		assert.Equal(t, 1, root.ActionCount())
		assert.Equal(t, 1, r.LiveActions())
	})

	t.Run("prune keeps ancestors still reachable through another path", func(t *testing.T) {
		r := NewRuntime(Options{})
		root := r.NewNotifier("root", nil)
		left := r.NewNotifier("left", nil)
		right := r.NewNotifier("right", nil)
		leaf := r.NewNotifier("leaf", nil)

		left.ConnectTo(root)
		right.ConnectTo(root)
		leaf.ConnectTo(left)
		leaf.ConnectTo(right)

		a := leaf.AddAction(KindLoad)
		leaf.DisconnectFrom(left)

		assert.ElementsMatch(t, []*Notifier{leaf, right, root}, a.members)
		assert.False(t, left.HasActions())
		assert.True(t, root.HasActions())
	})

	t.Run("marking a running action re-arms it", func(t *testing.T) {
		r := NewRuntime(Options{})

		var n *Notifier
		calls := 0
		n = r.NewNotifier("buffer", applyFunc(func(a *Action, ctx any) bool {
			calls++
			if calls == 1 {
				assert.Same(t, a, n.AddAction(KindLoad))
				assert.True(t, a.flags.has(flagRearmed))
			}
			return true
		}))

		a := n.AddAction(KindLoad)

		res := r.Drain(n, AffinityGL, nil)
		assert.Equal(t, DrainResult{Applied: 1}, res)
		assert.True(t, a.Pending())
		assert.Equal(t, flagNone, a.flags)

		r.Drain(n, AffinityGL, nil)
		assert.False(t, a.Pending())
		assert.Equal(t, 2, calls)
	})

	t.Run("a panicking handler leaves the action pending and unclaimed", func(t *testing.T) {
		r := NewRuntime(Options{})
		n := r.NewNotifier("texture", applyFunc(func(a *Action, ctx any) bool {
			panic("load before create")
		}))

		a := n.AddAction(KindLoad)

		assert.PanicsWithValue(t, "load before create", func() {
			r.Drain(n, AffinityGL, nil)
		})
		assert.True(t, a.Pending())
		assert.Equal(t, flagNone, a.flags)
	})

	t.Run("observers see every attempt", func(t *testing.T) {
		var events []Event
		r := NewRuntime(Options{Observers: []func(Event){func(ev Event) { events = append(events, ev) }}})

		parent := r.NewNotifier("mesh", nil)
		child := r.NewNotifier("vbo", applyFunc(func(a *Action, ctx any) bool {
			return a.Kind() == KindCreate
		}))
		child.ConnectTo(parent)

		child.AddAction(KindCreate)
		child.AddAction(KindLoad)
		r.Drain(parent, AffinityGL, nil)

		require.Len(t, events, 2)
		assert.Equal(t, Event{Drained: "mesh", Owner: "vbo", Kind: KindCreate, Affinity: AffinityGL, Applied: true}, events[0])
		assert.Equal(t, Event{Drained: "mesh", Owner: "vbo", Kind: KindLoad, Affinity: AffinityGL, Applied: false}, events[1])
	})

	t.Run("dispose frees owned actions and detaches", func(t *testing.T) {
		r := NewRuntime(Options{})
		root := r.NewNotifier("root", nil)
		mid := r.NewNotifier("mid", nil)
		leaf := r.NewNotifier("leaf", nil)
		mid.ConnectTo(root)
		leaf.ConnectTo(mid)

		mid.AddAction(KindTransformUpdated)
		leaf.AddAction(KindCreate)
		require.Equal(t, 2, root.ActionCount())

		mid.Dispose()

		assert.False(t, root.HasActions())
		assert.True(t, leaf.HasActions())
		assert.Empty(t, leaf.Parents())
		assert.Empty(t, root.Children())
		assert.Equal(t, 1, r.LiveActions())
		assert.Panics(t, func() { mid.AddAction(KindLoad) })
	})
}

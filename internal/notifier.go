package internal

import (
	"fmt"
	"iter"
	"slices"
)

// Notifier holds the actions pending on one graph object and on everything
// connected below it.
type Notifier struct {
	rt      *Runtime
	name    string
	applier Applier

	pending []Handle        // insertion order
	own     map[Kind]Handle // actions this notifier raised, by kind

	parents  []*Notifier
	children []*Notifier

	disposed bool
}

func (n *Notifier) Name() string      { return n.name }
func (n *Notifier) Runtime() *Runtime { return n.rt }
func (n *Notifier) Applier() Applier  { return n.applier }

// AddAction raises an action of the given kind with the kind's default
// affinity.
func (n *Notifier) AddAction(kind Kind) *Action {
	return n.AddActionOn(kind, kind.Affinity())
}

// AddActionOn raises an action of the given kind on an explicit affinity. If
// an action of that kind is already pending for n it is returned instead,
// re-armed when a handler is applying it right now.
func (n *Notifier) AddActionOn(kind Kind, affinity Affinity) *Action {
	if kind == KindInvalid {
		panic("internal: cannot raise an invalid action kind")
	}

	r := n.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.disposed {
		panic(fmt.Sprintf("internal: action %s raised on disposed notifier %s", kind, n.name))
	}

	if h, ok := n.own[kind]; ok {
		if a := r.arena.get(h); a != nil {
			if a.flags.has(flagRunning) {
				a.flags.set(flagRearmed)
			}
			return a
		}
		delete(n.own, kind)
	}

	a := &Action{owner: n, kind: kind, affinity: affinity}
	a.handle = r.arena.alloc(a)
	n.own[kind] = a.handle

	r.mirror(a, n)

	return a
}

// ConnectTo adds the upward edge n -> parent and mirrors every action
// already pending in n into parent and its ancestors. The graph has to stay
// acyclic: connecting a notifier to itself, to one of its descendants or to
// a notifier of another graph panics.
func (n *Notifier) ConnectTo(parent *Notifier) {
	if parent == n {
		panic(fmt.Sprintf("internal: notifier %s connected to itself", n.name))
	}
	if parent.rt != n.rt {
		panic(fmt.Sprintf("internal: notifier %s connected to %s from another graph", n.name, parent.name))
	}

	r := n.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.disposed || parent.disposed {
		panic(fmt.Sprintf("internal: cannot connect disposed notifiers %s -> %s", n.name, parent.name))
	}
	if slices.Contains(n.parents, parent) {
		return
	}
	if _, ok := parent.ancestors()[n]; ok {
		panic(fmt.Sprintf("internal: connecting %s -> %s creates a cycle", n.name, parent.name))
	}

	link(n, parent)

	for _, h := range n.pending {
		if a := r.arena.get(h); a != nil {
			r.mirror(a, parent)
		}
	}
}

// DisconnectFrom removes the edge n -> parent. Mirrored actions are
// withdrawn from every ancestor that no longer reaches their owner.
func (n *Notifier) DisconnectFrom(parent *Notifier) {
	r := n.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	if !unlink(n, parent) {
		return
	}

	for _, h := range slices.Clone(n.pending) {
		if a := r.arena.get(h); a != nil {
			r.prune(a)
		}
	}
}

// Dispose frees the actions raised by n and detaches it from the graph.
// Disposing twice is a no-op.
func (n *Notifier) Dispose() {
	r := n.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.disposed {
		return
	}
	n.disposed = true

	for _, h := range n.own {
		if a := r.arena.get(h); a != nil {
			r.remove(a)
		}
	}
	clear(n.own)

	for _, p := range slices.Clone(n.parents) {
		unlink(n, p)
	}
	for _, c := range slices.Clone(n.children) {
		unlink(c, n)
	}

	for _, h := range slices.Clone(n.pending) {
		if a := r.arena.get(h); a != nil {
			r.prune(a)
		}
	}
	n.pending = nil
}

func (n *Notifier) Disposed() bool {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return n.disposed
}

func (n *Notifier) ActionCount() int {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return len(n.pending)
}

// Action returns the i-th pending action in insertion order.
func (n *Notifier) Action(i int) *Action {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	if i < 0 || i >= len(n.pending) {
		panic(fmt.Sprintf("internal: action index %d out of range [0:%d] on %s", i, len(n.pending), n.name))
	}
	return n.rt.arena.get(n.pending[i])
}

func (n *Notifier) HasActions() bool {
	return n.ActionCount() > 0
}

func (n *Notifier) HasActionsFor(affinity Affinity) bool {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return n.countFor(affinity) > 0
}

func (n *Notifier) countFor(affinity Affinity) int {
	count := 0
	for _, h := range n.pending {
		if a := n.rt.arena.get(h); a != nil && a.affinity == affinity {
			count++
		}
	}
	return count
}

// Actions iterates over a snapshot of the pending list.
func (n *Notifier) Actions() iter.Seq[*Action] {
	n.rt.mu.Lock()
	snapshot := make([]*Action, 0, len(n.pending))
	for _, h := range n.pending {
		if a := n.rt.arena.get(h); a != nil {
			snapshot = append(snapshot, a)
		}
	}
	n.rt.mu.Unlock()

	return slices.Values(snapshot)
}

// Parents returns the notifiers n propagates into.
func (n *Notifier) Parents() []*Notifier {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return slices.Clone(n.parents)
}

func (n *Notifier) Children() []*Notifier {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return slices.Clone(n.children)
}

func (n *Notifier) String() string {
	return n.name
}

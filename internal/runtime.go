package internal

import (
	"sync"

	"github.com/AnatoleLucet/sigl/log"
)

// Applier is implemented by the objects notifiers are mixed into. ctx is
// nil for main-thread actions.
type Applier interface {
	ApplyAction(a *Action, ctx any) bool
}

// Event describes one attempt at applying an action.
type Event struct {
	Drained  string // notifier being drained
	Owner    string
	Kind     Kind
	Affinity Affinity
	Applied  bool
}

type Options struct {
	Logger    *log.Logger
	MaxPasses int
	Observers []func(Event)
}

const DefaultMaxPasses = 8

// Runtime holds one action graph. A single mutex guards the arena and every
// pending list in it, so an action is always mirrored or removed as a whole.
type Runtime struct {
	mu sync.Mutex

	arena arena

	lg        *log.Logger
	maxPasses int
	observers []func(Event)
}

func NewRuntime(opts Options) *Runtime {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}

	return &Runtime{
		lg:        opts.Logger,
		maxPasses: opts.MaxPasses,
		observers: opts.Observers,
	}
}

func (r *Runtime) NewNotifier(name string, applier Applier) *Notifier {
	return &Notifier{
		rt:      r,
		name:    name,
		applier: applier,
		own:     make(map[Kind]Handle),
	}
}

// LiveActions returns the number of actions pending anywhere in the graph.
func (r *Runtime) LiveActions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.arena.live
}

func (r *Runtime) MaxPasses() int {
	return r.maxPasses
}

func (r *Runtime) Logger() *log.Logger {
	return r.lg
}

func (r *Runtime) notify(ev Event) {
	for _, fn := range r.observers {
		fn(ev)
	}
}

// mirror inserts a into from and every ancestor of it. Membership is kept
// upward closed, so a notifier that already holds a stops the walk.
func (r *Runtime) mirror(a *Action, from *Notifier) {
	stack := []*Notifier{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if a.isMember(n) {
			continue
		}

		n.pending = append(n.pending, a.handle)
		a.members = append(a.members, n)
		stack = append(stack, n.parents...)
	}
}

// remove takes a out of every pending list holding it and frees its slot.
func (r *Runtime) remove(a *Action) {
	for _, m := range a.members {
		m.pending = deleteHandle(m.pending, a.handle)
	}
	a.members = nil

	if h, ok := a.owner.own[a.kind]; ok && h == a.handle {
		delete(a.owner.own, a.kind)
	}

	r.arena.release(a.handle)
}

// prune withdraws a from the notifiers that no longer reach its owner.
func (r *Runtime) prune(a *Action) {
	reach := a.owner.ancestors()

	kept := a.members[:0]
	for _, m := range a.members {
		if _, ok := reach[m]; ok {
			kept = append(kept, m)
		} else {
			m.pending = deleteHandle(m.pending, a.handle)
		}
	}
	clear(a.members[len(kept):])
	a.members = kept
}

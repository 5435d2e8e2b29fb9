package internal

import (
	"fmt"
	"slices"
)

// Action records that its owner needs one operation applied on one thread.
// The same instance sits in the pending list of its owner and of every
// ancestor it was mirrored into.
type Action struct {
	owner    *Notifier
	kind     Kind
	affinity Affinity

	handle  Handle
	flags   actionFlags
	members []*Notifier // notifiers whose pending list holds handle
}

func (a *Action) Owner() *Notifier   { return a.owner }
func (a *Action) Kind() Kind         { return a.kind }
func (a *Action) Affinity() Affinity { return a.affinity }

// Pending reports whether the action is still waiting to be applied.
func (a *Action) Pending() bool {
	r := a.owner.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.arena.get(a.handle) == a
}

func (a *Action) String() string {
	return fmt.Sprintf("%s(%s)@%s", a.kind, a.owner.name, a.affinity)
}

func (a *Action) isMember(n *Notifier) bool {
	return slices.Contains(a.members, n)
}

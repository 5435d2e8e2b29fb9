package internal

import "slices"

// DrainResult counts what one drain pass did.
type DrainResult struct {
	Applied  int
	Deferred int
}

// Drain runs one pass over n's pending list and applies, in insertion order,
// every action of the given affinity. Applied actions are removed from every
// list holding them; actions whose handler reports "not ready" stay pending.
//
// Handlers run without the graph lock held so they may raise new actions.
// Actions raised during the pass are not part of it.
func (r *Runtime) Drain(n *Notifier, affinity Affinity, ctx any) DrainResult {
	r.mu.Lock()
	snapshot := slices.Clone(n.pending)
	r.mu.Unlock()

	var res DrainResult
	for _, h := range snapshot {
		a := r.claim(n, h, affinity)
		if a == nil {
			continue
		}

		applied := r.run(a, ctx)
		if applied {
			res.Applied++
		} else {
			res.Deferred++
			r.lg.Debug("action deferred", "action", a.String(), "drained", n.name)
		}

		r.notify(Event{
			Drained:  n.name,
			Owner:    a.owner.name,
			Kind:     a.kind,
			Affinity: a.affinity,
			Applied:  applied,
		})
	}

	if res.Applied > 0 || res.Deferred > 0 {
		r.lg.Debug("drained", "notifier", n.name, "affinity", affinity.String(),
			"applied", res.Applied, "deferred", res.Deferred)
	}

	return res
}

// claim marks the action behind h as running if it is still pending in n,
// matches affinity and is not being applied by another pass.
func (r *Runtime) claim(n *Notifier, h Handle, affinity Affinity) *Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.arena.get(h)
	if a == nil || a.affinity != affinity || a.flags.has(flagRunning) || !a.isMember(n) {
		return nil
	}

	a.flags.set(flagRunning)
	return a
}

// run applies a claimed action. The flags are reset even when the handler
// panics, in which case the action stays pending.
func (r *Runtime) run(a *Action, ctx any) (applied bool) {
	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		rearmed := a.flags.has(flagRearmed)
		a.flags.clear(flagRunning | flagRearmed)

		if applied && !rearmed && r.arena.get(a.handle) == a {
			r.remove(a)
		}
	}()

	if a.owner.applier == nil {
		return true
	}
	return a.owner.applier.ApplyAction(a, ctx)
}

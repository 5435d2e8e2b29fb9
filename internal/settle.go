package internal

import (
	"errors"
	"fmt"
)

// ErrStalled is returned by Settle when a drain pass applied nothing while
// actions of the drained affinity are still pending.
var ErrStalled = errors.New("actions stalled")

// Settle drains n until no action of the given affinity is left. It returns
// the number of passes it ran.
//
// A pass that applies nothing means every remaining action failed in a
// recoverable way; Settle then stops and returns an error wrapping
// ErrStalled. Running out of passes while every pass still makes progress is
// an ordering bug in the graph and panics.
func (r *Runtime) Settle(n *Notifier, affinity Affinity, ctx any) (int, error) {
	for pass := 1; pass <= r.maxPasses; pass++ {
		if !n.HasActionsFor(affinity) {
			return pass - 1, nil
		}

		res := r.Drain(n, affinity, ctx)
		if res.Applied == 0 {
			left := n.countLocked(affinity)
			r.lg.Error("settle stalled", "notifier", n.name, "affinity", affinity.String(), "pending", left)
			return pass, fmt.Errorf("%w: %d %s actions pending on %s", ErrStalled, left, affinity, n.name)
		}
	}

	if !n.HasActionsFor(affinity) {
		return r.maxPasses, nil
	}

	panic(fmt.Sprintf("internal: %s actions on %s did not settle within %d passes", affinity, n.name, r.maxPasses))
}

func (n *Notifier) countLocked(affinity Affinity) int {
	n.rt.mu.Lock()
	defer n.rt.mu.Unlock()

	return n.countFor(affinity)
}

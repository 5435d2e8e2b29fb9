package scene

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// gpuResource is the part of a gpu resource the action handlers drive.
type gpuResource interface {
	ID() gpu.ID
	State() gpu.State
	IsCreated() bool
	IsLoaded() bool
	Err() error
	Create(c *gpu.Context) bool
	Release(c *gpu.Context)
	Forget()
}

// resource is the notifier and lifecycle shared by every GPU backed scene
// object.
type resource struct {
	*sigl.Notifier

	scene *Scene
	res   gpuResource
	lost  atomic.Bool

	depMu sync.Mutex
	// dependents are reloaded along with r, like a frame buffer with its
	// attachments.
	dependents []*resource
}

func (s *Scene) newResource(name string, res gpuResource, h sigl.Handler) *resource {
	r := &resource{
		Notifier: s.graph.NewNotifier(name, h),
		scene:    s,
		res:      res,
	}
	r.ConnectTo(s.pending)
	s.track(r)
	return r
}

// raise queues the initial Create and Load. Constructors call it once the
// resource is connected to its attachments.
func (r *resource) raise() {
	r.AddAction(sigl.Create)
	r.AddAction(sigl.Load)
}

// ID returns the backend name, or gpu.InvalidID until the resource is
// created on the GL goroutine.
func (r *resource) ID() gpu.ID       { return r.res.ID() }
func (r *resource) State() gpu.State { return r.res.State() }
func (r *resource) IsCreated() bool  { return r.res.IsCreated() }
func (r *resource) IsLoaded() bool   { return r.res.IsLoaded() }
func (r *resource) Err() error       { return r.res.Err() }

// reload raises Load on r and on every resource built on top of it.
func (r *resource) reload() {
	r.AddAction(sigl.Load)

	r.depMu.Lock()
	deps := slices.Clone(r.dependents)
	r.depMu.Unlock()

	for _, d := range deps {
		d.AddAction(sigl.Load)
	}
}

func (r *resource) addDependent(d *resource) {
	r.depMu.Lock()
	defer r.depMu.Unlock()

	r.dependents = append(r.dependents, d)
}

func (r *resource) removeDependent(d *resource) {
	r.depMu.Lock()
	defer r.depMu.Unlock()

	r.dependents = slices.DeleteFunc(r.dependents, func(o *resource) bool { return o == d })
}

// Release frees the backend object on the next GL drain.
func (r *resource) Release() {
	r.AddAction(sigl.Release)
}

// Restore recreates the resource after a context loss.
func (r *resource) Restore() {
	r.lost.Store(true)
	r.raise()
}

// Dispose detaches the resource from the scene. It does not free the
// backend object; call Release and drain first.
func (r *resource) Dispose() {
	r.scene.untrack(r)
	r.Notifier.Dispose()
}

// apply runs the lifecycle part of an action. Load reports "not ready"
// until the resource exists, so a load raised before a failed create waits
// instead of tripping the backend precondition.
func (r *resource) apply(a *sigl.Action, ctx *gpu.Context, load func() bool) bool {
	switch a.Kind() {
	case sigl.Create:
		if r.lost.Swap(false) {
			r.res.Forget()
		}
		if r.res.IsCreated() {
			return true
		}
		return r.res.Create(ctx)
	case sigl.Load:
		if !r.res.IsCreated() {
			return false
		}
		return load()
	case sigl.Release:
		r.res.Release(ctx)
	}
	return true
}

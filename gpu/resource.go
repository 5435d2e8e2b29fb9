package gpu

import "fmt"

// State is the lifecycle position of a Resource.
type State uint8

const (
	Uncreated State = iota
	Created
	Loaded
	Released
)

func (s State) String() string {
	switch s {
	case Uncreated:
		return "uncreated"
	case Created:
		return "created"
	case Loaded:
		return "loaded"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Resource is the state shared by every backend object. Only the goroutine
// owning the Context may change it.
type Resource struct {
	name  string
	id    ID
	state State
	err   error
}

func (r *Resource) Name() string { return r.name }

// ID returns the backend name, or InvalidID while the resource is not
// created.
func (r *Resource) ID() ID       { return r.id }
func (r *Resource) State() State { return r.state }

func (r *Resource) IsCreated() bool {
	return r.state == Created || r.state == Loaded
}

func (r *Resource) IsLoaded() bool {
	return r.state == Loaded
}

// Err returns the cause of the last failed Create or Load.
func (r *Resource) Err() error { return r.err }

func (r *Resource) mustUncreated(op string) {
	if r.IsCreated() {
		panic(fmt.Sprintf("gpu: %s %s: already created (id %d)", op, r.name, r.id))
	}
}

func (r *Resource) mustCreated(op string) {
	if !r.IsCreated() {
		panic(fmt.Sprintf("gpu: %s %s: not created (state %s)", op, r.name, r.state))
	}
}

func (r *Resource) mustLoaded(op string) {
	if r.state != Loaded {
		panic(fmt.Sprintf("gpu: %s %s: not loaded (state %s)", op, r.name, r.state))
	}
}

// create moves r to Created on success or records the failure. Failures
// keep the current state.
func (r *Resource) create(c *Context, id ID, err error) bool {
	if err != nil {
		r.err = err
		c.lg.Warn("gpu create failed", "resource", r.name, "error", err)
		return false
	}

	r.id = id
	r.state = Created
	r.err = nil
	c.lg.Debug("gpu created", "resource", r.name, "id", id)
	return true
}

func (r *Resource) loaded(c *Context) {
	r.state = Loaded
	r.err = nil
	c.lg.Debug("gpu loaded", "resource", r.name, "id", r.id)
}

// release returns false when there is nothing to free. Releasing a resource
// that was never created is logged and otherwise ignored.
func (r *Resource) release(c *Context) bool {
	switch r.state {
	case Uncreated:
		c.lg.Warn("gpu release of a resource never created", "resource", r.name)
		return false
	case Released:
		return false
	}

	c.lg.Debug("gpu released", "resource", r.name, "id", r.id)
	r.id = InvalidID
	r.state = Released
	return true
}

// Forget drops the backend name without deleting it. It is used after the
// context holding the resource was lost, so the resource can be created
// again on a new one.
func (r *Resource) Forget() {
	r.id = InvalidID
	r.state = Uncreated
	r.err = nil
}

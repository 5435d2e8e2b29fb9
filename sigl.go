package sigl

import (
	"github.com/AnatoleLucet/sigl/gpu"
	"github.com/AnatoleLucet/sigl/internal"
	"github.com/AnatoleLucet/sigl/log"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type (
	// Action is a pending request to apply one operation to one notifier.
	Action = internal.Action
	// Notifier is the pending-action list of one graph object.
	Notifier = internal.Notifier
	// Kind identifies the operation an action stands for.
	Kind = internal.Kind
	// Affinity is the goroutine an action has to be applied on.
	Affinity = internal.Affinity
	// Event is reported to observers for every action a drain attempts.
	Event = internal.Event
)

const (
	Main = internal.AffinityMain
	GL   = internal.AffinityGL
)

const (
	Create           = internal.KindCreate
	Load             = internal.KindLoad
	Release          = internal.KindRelease
	TransformUpdated = internal.KindTransformUpdated
	CameraUpdated    = internal.KindCameraUpdated
)

// ErrStalled is returned by Settle when only actions failing in a
// recoverable way are left.
var ErrStalled = internal.ErrStalled

// RegisterKind adds a custom action kind. It is meant to be called from
// package init functions.
func RegisterKind(name string, affinity Affinity) Kind {
	return internal.RegisterKind(name, affinity)
}

// Handler applies the actions raised on a notifier. ctx is nil for main
// thread actions. Returning false leaves the action pending for a later
// pass.
type Handler interface {
	ApplyAction(a *Action, ctx *gpu.Context) bool
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(a *Action, ctx *gpu.Context) bool

func (f HandlerFunc) ApplyAction(a *Action, ctx *gpu.Context) bool { return f(a, ctx) }

type applier struct {
	h Handler
}

func (ap applier) ApplyAction(a *Action, ctx any) bool {
	return ap.h.ApplyAction(a, as[*gpu.Context](ctx))
}

// Graph is one action propagation graph. Notifiers of different graphs
// cannot be connected.
type Graph struct {
	rt *internal.Runtime
}

type options struct {
	logger    *log.Logger
	maxPasses int
	observers []func(Event)
}

type Option func(*options)

func WithLogger(lg *log.Logger) Option {
	return func(o *options) { o.logger = lg }
}

// WithMaxPasses bounds the drain passes Settle runs before giving up.
func WithMaxPasses(n int) Option {
	return func(o *options) { o.maxPasses = n }
}

// WithObserver registers fn to be called, outside of any lock, for every
// action a drain applies or defers.
func WithObserver(fn func(Event)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

func NewGraph(opts ...Option) *Graph {
	o := options{maxPasses: internal.DefaultMaxPasses}
	for _, opt := range opts {
		opt(&o)
	}

	return &Graph{
		internal.NewRuntime(internal.Options{
			Logger:    o.logger,
			MaxPasses: o.maxPasses,
			Observers: o.observers,
		}),
	}
}

// NewNotifier creates a notifier applying its actions through h. A nil
// handler applies every action trivially, which suits pure containers.
func (g *Graph) NewNotifier(name string, h Handler) *Notifier {
	if h == nil {
		return g.rt.NewNotifier(name, nil)
	}
	return g.rt.NewNotifier(name, applier{h})
}

// LiveActions returns the number of actions pending anywhere in the graph.
func (g *Graph) LiveActions() int {
	return g.rt.LiveActions()
}

func (g *Graph) Logger() *log.Logger {
	return g.rt.Logger()
}

// Settle drains n until no action of the given affinity is left. See
// Settle.
func (g *Graph) Settle(n *Notifier, affinity Affinity, ctx *gpu.Context) error {
	return Settle(n, affinity, ctx)
}

// HandleMainThreadActions runs one drain pass over the main thread actions
// pending in n and returns how many were applied.
func HandleMainThreadActions(n *Notifier) int {
	return n.Runtime().Drain(n, Main, nil).Applied
}

// HandleGLThreadActions runs one drain pass over the GL actions pending in
// n against ctx. It must be called from the goroutine owning ctx.
func HandleGLThreadActions(n *Notifier, ctx *gpu.Context) int {
	mustOwn(ctx)
	return n.Runtime().Drain(n, GL, ctx).Applied
}

// Settle loops drain passes over n until no action of the given affinity is
// left. It returns an error wrapping ErrStalled when a pass applies nothing,
// and panics when the graph's pass bound runs out while passes still make
// progress.
func Settle(n *Notifier, affinity Affinity, ctx *gpu.Context) error {
	var c any
	if affinity == GL {
		mustOwn(ctx)
		c = ctx
	}

	_, err := n.Runtime().Settle(n, affinity, c)
	return err
}

func mustOwn(ctx *gpu.Context) {
	if ctx == nil {
		panic("sigl: GL actions handled without a gpu context")
	}
	if !ctx.Owned() {
		panic("sigl: GL actions handled off the goroutine owning the gpu context")
	}
}

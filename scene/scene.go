// Package scene holds the graph objects of a rendered scene. Every object
// is a notifier: mutations raise actions that are mirrored up to the scene
// root and applied later by the main and GL drains.
package scene

import (
	"sync"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/log"
)

const DefaultProgramCacheSize = 16

type Options struct {
	Logger           *log.Logger
	MaxSettlePasses  int
	ProgramCacheSize int
	Observers        []func(sigl.Event)
}

// Scene owns one action graph with its node tree, camera and program
// library.
type Scene struct {
	graph *sigl.Graph
	lg    *log.Logger

	// mu guards the node tree and every transform in it.
	mu sync.RWMutex

	root     *Node
	camera   *Camera
	programs *ProgramLibrary

	// pending collects the actions of every GPU resource, including the
	// ones no longer reachable from the root.
	pending *sigl.Notifier

	resMu     sync.Mutex
	resources []*resource
}

func New(opts Options) (*Scene, error) {
	gopts := []sigl.Option{sigl.WithLogger(opts.Logger)}
	if opts.MaxSettlePasses > 0 {
		gopts = append(gopts, sigl.WithMaxPasses(opts.MaxSettlePasses))
	}
	for _, fn := range opts.Observers {
		gopts = append(gopts, sigl.WithObserver(fn))
	}

	s := &Scene{
		graph: sigl.NewGraph(gopts...),
		lg:    opts.Logger,
	}
	s.pending = s.graph.NewNotifier("resources", nil)

	s.root = s.NewNode("root")
	s.camera = s.newCamera("camera")
	s.camera.ConnectTo(s.root.Notifier)

	size := opts.ProgramCacheSize
	if size <= 0 {
		size = DefaultProgramCacheSize
	}
	programs, err := s.newProgramLibrary(size)
	if err != nil {
		return nil, err
	}
	s.programs = programs

	return s, nil
}

func (s *Scene) Graph() *sigl.Graph        { return s.graph }
func (s *Scene) Root() *Node               { return s.root }
func (s *Scene) Camera() *Camera           { return s.camera }
func (s *Scene) Programs() *ProgramLibrary { return s.programs }
func (s *Scene) Logger() *log.Logger       { return s.lg }

// Resources returns the notifier every GPU resource of the scene propagates
// into. Draining it on the GL goroutine applies releases of resources that
// were swapped out of the node tree.
func (s *Scene) Resources() *sigl.Notifier { return s.pending }

// HandleMainThreadActions applies the pending transform and camera updates
// of the whole scene.
func (s *Scene) HandleMainThreadActions() int {
	return sigl.HandleMainThreadActions(s.root.Notifier)
}

// Restore recreates every GPU resource of the scene after the GL context was
// lost. The resources forget their old names and raise Create and Load
// again.
func (s *Scene) Restore() {
	s.resMu.Lock()
	resources := append([]*resource(nil), s.resources...)
	s.resMu.Unlock()

	s.lg.Info("restoring scene resources", "count", len(resources))
	for _, r := range resources {
		r.Restore()
	}
}

func (s *Scene) track(r *resource) {
	s.resMu.Lock()
	defer s.resMu.Unlock()

	s.resources = append(s.resources, r)
}

func (s *Scene) untrack(r *resource) {
	s.resMu.Lock()
	defer s.resMu.Unlock()

	for i, o := range s.resources {
		if o == r {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			return
		}
	}
}

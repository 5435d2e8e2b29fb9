package scene

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Geometry pairs at most one mesh with at most one material and is the
// unit the render pass draws.
type Geometry struct {
	*sigl.Notifier

	scene *Scene
	node  *Node // guarded by scene.mu

	mu       sync.Mutex
	mesh     *Mesh
	material *Material
}

func (s *Scene) NewGeometry(name string, mesh *Mesh, material *Material) *Geometry {
	g := &Geometry{
		Notifier: s.graph.NewNotifier(name, nil),
		scene:    s,
	}
	if mesh != nil {
		g.SetMesh(mesh)
	}
	if material != nil {
		g.SetMaterial(material)
	}

	return g
}

func (g *Geometry) Mesh() *Mesh {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.mesh
}

func (g *Geometry) Material() *Material {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.material
}

func (g *Geometry) SetMesh(m *Mesh) {
	g.mu.Lock()
	old := g.mesh
	g.mesh = m
	g.mu.Unlock()

	if old == m {
		return
	}
	if old != nil {
		old.DisconnectFrom(g.Notifier)
	}
	if m != nil {
		m.ConnectTo(g.Notifier)
	}
}

func (g *Geometry) SetMaterial(m *Material) {
	g.mu.Lock()
	old := g.material
	g.material = m
	g.mu.Unlock()

	if old == m {
		return
	}
	if old != nil {
		old.DisconnectFrom(g.Notifier)
	}
	if m != nil {
		m.ConnectTo(g.Notifier)
	}
}

// Node returns the node g is attached to, if any.
func (g *Geometry) Node() *Node {
	g.scene.mu.RLock()
	defer g.scene.mu.RUnlock()

	return g.node
}

// PendingGL returns the number of GL actions still pending under g.
func (g *Geometry) PendingGL() int {
	n := 0
	for a := range g.Actions() {
		if a.Affinity() == sigl.GL {
			n++
		}
	}
	return n
}

// Draw draws g with the world transform of its node. Every GL action under
// g must have been applied: drawing with pending actions is an ordering bug
// and panics, as does drawing without a mesh or material.
func (g *Geometry) Draw(ctx *gpu.Context, viewProj mgl32.Mat4) {
	if n := g.PendingGL(); n > 0 {
		panic(fmt.Sprintf("scene: draw %s with %d pending GL actions", g.Name(), n))
	}

	g.mu.Lock()
	mesh, material := g.mesh, g.material
	g.mu.Unlock()

	if mesh == nil || material == nil {
		panic(fmt.Sprintf("scene: draw %s without a mesh and a material", g.Name()))
	}

	world := mgl32.Ident4()
	if node := g.Node(); node != nil {
		world = node.World()
	}

	material.bind(ctx, viewProj.Mul4(world), func(prog *gpu.Program) {
		mesh.draw(ctx, prog)
	})
}

// Dispose detaches g from its node, mesh and material.
func (g *Geometry) Dispose() {
	if node := g.Node(); node != nil {
		node.RemoveGeometry(g)
	}
	g.Notifier.Dispose()
}

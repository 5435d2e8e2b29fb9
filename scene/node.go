package scene

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Node is a transform in the scene tree. Its fields are guarded by the
// scene lock.
type Node struct {
	*sigl.Notifier

	scene *Scene

	parent     *Node
	children   []*Node
	geometries []*Geometry

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	world    mgl32.Mat4
}

func (s *Scene) NewNode(name string) *Node {
	n := &Node{
		scene:    s,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		world:    mgl32.Ident4(),
	}
	n.Notifier = s.graph.NewNotifier(name, n)

	return n
}

func (n *Node) Parent() *Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	return n.parent
}

func (n *Node) Children() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	return slices.Clone(n.children)
}

func (n *Node) Geometries() []*Geometry {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	return slices.Clone(n.geometries)
}

// AddChild moves c under n. Its world transform is recomputed on the next
// main thread drain.
func (n *Node) AddChild(c *Node) {
	if old := c.Parent(); old != nil {
		old.RemoveChild(c)
	}

	n.scene.mu.Lock()
	c.parent = n
	n.children = append(n.children, c)
	n.scene.mu.Unlock()

	c.ConnectTo(n.Notifier)
	c.AddAction(sigl.TransformUpdated)
}

func (n *Node) RemoveChild(c *Node) {
	n.scene.mu.Lock()
	i := slices.Index(n.children, c)
	if i < 0 {
		n.scene.mu.Unlock()
		return
	}
	n.children = slices.Delete(n.children, i, i+1)
	c.parent = nil
	n.scene.mu.Unlock()

	c.DisconnectFrom(n.Notifier)
	c.AddAction(sigl.TransformUpdated)
}

func (n *Node) AddGeometry(g *Geometry) {
	if old := g.Node(); old != nil {
		old.RemoveGeometry(g)
	}

	n.scene.mu.Lock()
	g.node = n
	n.geometries = append(n.geometries, g)
	n.scene.mu.Unlock()

	g.ConnectTo(n.Notifier)
}

func (n *Node) RemoveGeometry(g *Geometry) {
	n.scene.mu.Lock()
	i := slices.Index(n.geometries, g)
	if i < 0 {
		n.scene.mu.Unlock()
		return
	}
	n.geometries = slices.Delete(n.geometries, i, i+1)
	g.node = nil
	n.scene.mu.Unlock()

	g.DisconnectFrom(n.Notifier)
}

// Walk visits n and its descendants depth first, parents before children.
// Returning false from fn skips the subtree.
func (n *Node) Walk(fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

func (n *Node) Position() mgl32.Vec3 {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	return n.position
}

func (n *Node) SetPosition(p mgl32.Vec3) {
	n.scene.mu.Lock()
	n.position = p
	n.scene.mu.Unlock()

	n.AddAction(sigl.TransformUpdated)
}

func (n *Node) SetRotation(q mgl32.Quat) {
	n.scene.mu.Lock()
	n.rotation = q.Normalize()
	n.scene.mu.Unlock()

	n.AddAction(sigl.TransformUpdated)
}

func (n *Node) SetScale(s mgl32.Vec3) {
	n.scene.mu.Lock()
	n.scale = s
	n.scene.mu.Unlock()

	n.AddAction(sigl.TransformUpdated)
}

// World returns the world transform computed by the last applied
// TransformUpdated.
func (n *Node) World() mgl32.Mat4 {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	return n.world
}

func (n *Node) local() mgl32.Mat4 {
	t := mgl32.Translate3D(n.position.X(), n.position.Y(), n.position.Z())
	s := mgl32.Scale3D(n.scale.X(), n.scale.Y(), n.scale.Z())
	return t.Mul4(n.rotation.Mat4()).Mul4(s)
}

// updateWorld recomputes the world transforms of n's subtree. Callers hold
// the scene lock.
func (n *Node) updateWorld() {
	parent := mgl32.Ident4()
	if n.parent != nil {
		parent = n.parent.world
	}
	n.world = parent.Mul4(n.local())

	for _, c := range n.children {
		c.updateWorld()
	}
}

func (n *Node) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	if a.Kind() == sigl.TransformUpdated {
		n.scene.mu.Lock()
		n.updateWorld()
		n.scene.mu.Unlock()
	}
	return true
}

// Dispose detaches n from its parent and disposes its subtree.
func (n *Node) Dispose() {
	if p := n.Parent(); p != nil {
		p.RemoveChild(n)
	}
	for _, g := range n.Geometries() {
		g.Dispose()
	}
	for _, c := range n.Children() {
		c.Dispose()
	}
	n.Notifier.Dispose()
}

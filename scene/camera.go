package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Camera is a look-at camera with a perspective projection. Setters raise
// CameraUpdated; the matrices are recomputed on the main thread drain.
type Camera struct {
	*sigl.Notifier

	mu               sync.RWMutex
	eye, center, up  mgl32.Vec3
	fovy, aspect     float32
	near, far        float32
	view, projection mgl32.Mat4
}

func (s *Scene) newCamera(name string) *Camera {
	c := &Camera{
		eye:    mgl32.Vec3{0, 0, 3},
		up:     mgl32.Vec3{0, 1, 0},
		fovy:   45,
		aspect: 1,
		near:   0.1,
		far:    100,
	}
	c.Notifier = s.graph.NewNotifier(name, c)
	c.recompute()

	return c
}

func (c *Camera) LookAt(eye, center, up mgl32.Vec3) {
	c.mu.Lock()
	c.eye, c.center, c.up = eye, center, up
	c.mu.Unlock()

	c.AddAction(sigl.CameraUpdated)
}

// SetPerspective sets the vertical field of view in degrees and the clip
// planes.
func (c *Camera) SetPerspective(fovy, aspect, near, far float32) {
	c.mu.Lock()
	c.fovy, c.aspect, c.near, c.far = fovy, aspect, near, far
	c.mu.Unlock()

	c.AddAction(sigl.CameraUpdated)
}

func (c *Camera) SetAspect(aspect float32) {
	c.mu.Lock()
	c.aspect = aspect
	c.mu.Unlock()

	c.AddAction(sigl.CameraUpdated)
}

func (c *Camera) Eye() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.eye
}

func (c *Camera) View() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.view
}

func (c *Camera) Projection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.projection
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.projection.Mul4(c.view)
}

func (c *Camera) recompute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view = mgl32.LookAtV(c.eye, c.center, c.up)
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fovy), c.aspect, c.near, c.far)
}

func (c *Camera) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	if a.Kind() == sigl.CameraUpdated {
		c.recompute()
	}
	return true
}

// Package render draws a scene on the GL goroutine. A Pass is the gate
// between the action graph and the backend: nothing is drawn before the GL
// actions below it are settled.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
	"github.com/AnatoleLucet/sigl/scene"
)

// Pass renders one scene into a target frame buffer, or into the default
// framebuffer when Target is nil.
type Pass struct {
	Scene  *scene.Scene
	Target *scene.FrameBuffer

	ClearColor [4]float32
	// Viewport is x, y, width, height. A zero viewport uses the target
	// size, and is left alone when drawing to the default framebuffer.
	Viewport [4]int

	// Trace, when set, is advanced to a new frame at the start of every
	// Frame call.
	Trace *Trace
}

func NewPass(s *scene.Scene, target *scene.FrameBuffer) *Pass {
	return &Pass{
		Scene:      s,
		Target:     target,
		ClearColor: [4]float32{0, 0, 0, 1},
	}
}

// Frame settles and draws the scene. It must run on the goroutine owning
// ctx.
//
// A target that cannot be settled aborts the frame. Geometries whose GL
// actions stall are skipped, and their errors are joined into the returned
// error; the rest of the scene is still drawn. Once drawn, one GL pass over
// the scene's resources applies what the tree no longer reaches.
func (p *Pass) Frame(ctx *gpu.Context) (Stats, error) {
	start := time.Now()
	ctx.ResetFrameStats()
	if p.Trace != nil {
		p.Trace.NextFrame()
	}

	st := Stats{Frames: 1}
	lg := p.Scene.Logger()

	if p.Target != nil {
		pending := p.Target.ActionCount()
		if err := sigl.Settle(p.Target.Notifier, sigl.GL, ctx); err != nil {
			return st, fmt.Errorf("render target %s: %w", p.Target.Name(), err)
		}
		st.Actions += pending - p.Target.ActionCount()
	}

	var errs []error

	lib := p.Scene.Programs()
	pending := lib.ActionCount()
	if err := sigl.Settle(lib.Notifier, sigl.GL, ctx); err != nil {
		errs = append(errs, fmt.Errorf("program library: %w", err))
	}
	st.Actions += pending - lib.ActionCount()

	p.Target.Bind(ctx)
	p.viewport(ctx)
	ctx.Clear(p.ClearColor)

	viewProj := p.Scene.Camera().ViewProjection()

	p.Scene.Root().Walk(func(n *scene.Node) bool {
		for _, g := range n.Geometries() {
			if g.Mesh() == nil || g.Material() == nil {
				lg.Debug("skipping incomplete geometry", "geometry", g.Name())
				st.Skipped++
				continue
			}

			pending := g.PendingGL()
			err := sigl.Settle(g.Notifier, sigl.GL, ctx)
			st.Actions += max(pending-g.PendingGL(), 0)
			if err != nil {
				lg.Warn("skipping stalled geometry", "geometry", g.Name(), "error", err)
				errs = append(errs, fmt.Errorf("geometry %s: %w", g.Name(), err))
				st.Skipped++
				continue
			}

			g.Draw(ctx, viewProj)
			st.Drawn++
		}
		return true
	})

	// Resources dropped from the tree, like a buffer swapped out of a mesh,
	// only reach the scene's resource notifier.
	st.Actions += sigl.HandleGLThreadActions(p.Scene.Resources(), ctx)

	gs := ctx.Stats()
	st.DrawCalls = gs.DrawCalls
	st.Vertices = gs.Vertices
	st.FrameTime = time.Since(start)

	if err := ctx.Error(); err != nil {
		errs = append(errs, fmt.Errorf("backend: %w", err))
	}

	lg.Debug("frame", "stats", st)
	return st, errors.Join(errs...)
}

func (p *Pass) viewport(ctx *gpu.Context) {
	vp := p.Viewport
	if vp == [4]int{} {
		if p.Target == nil {
			return
		}
		w, h := p.Target.Size()
		vp = [4]int{0, 0, w, h}
	}
	ctx.Viewport(vp[0], vp[1], vp[2], vp[3])
}

package scene

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
	"github.com/AnatoleLucet/sigl/gpu/gputest"
)

var flatSource = ProgramSource{
	Vertex: `attribute vec3 position;
uniform mat4 mvp;
void main() { gl_Position = mvp * vec4(position, 1.0); }`,
	Fragment: `precision mediump float;
uniform vec4 color;
uniform sampler2D tex;
void main() { gl_FragColor = color; }`,
	Attribs: []string{"position"},
}

var triangle = []float32{
	0, 0.5, 0,
	-0.5, -0.5, 0,
	0.5, -0.5, 0,
}

func newScene(t *testing.T, opts Options) (*Scene, *gpu.Context, *gputest.Device) {
	t.Helper()

	s, err := New(opts)
	require.NoError(t, err)

	dev := gputest.New()
	return s, gpu.NewContext(dev, nil), dev
}

type triangleScene struct {
	vbo      *VertexBuffer
	program  *ShaderProgram
	mesh     *Mesh
	material *Material
	geometry *Geometry
}

func buildTriangle(s *Scene, src ProgramSource) triangleScene {
	var ts triangleScene

	ts.vbo = s.NewVertexBuffer("vbo", 3, triangle)
	ts.mesh = s.NewMesh("mesh", gpu.Triangles, 3)
	ts.mesh.SetAttribute("position", ts.vbo)

	ts.program = s.NewShaderProgram("flat", src)
	ts.material = s.NewMaterial("red", ts.program)
	ts.material.SetColor([4]float32{1, 0, 0, 1})

	ts.geometry = s.NewGeometry("triangle", ts.mesh, ts.material)
	s.Root().AddGeometry(ts.geometry)

	return ts
}

func TestTriangle(t *testing.T) {
	t.Run("renders after one pass of each handler", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)

		assert.Equal(t, 4, ts.geometry.ActionCount())

		s.HandleMainThreadActions()
		assert.Equal(t, 4, sigl.HandleGLThreadActions(ts.geometry.Notifier, ctx))
		assert.False(t, ts.geometry.HasActions())
		assert.True(t, ts.vbo.IsLoaded())
		assert.True(t, ts.program.IsLoaded())

		ts.geometry.Draw(ctx, s.Camera().ViewProjection())
		require.NoError(t, ctx.Error())

		draws := dev.Draws()
		require.Len(t, draws, 1)
		assert.Equal(t, gpu.Triangles, draws[0].Mode)
		assert.Equal(t, 3, draws[0].Count)
		assert.Equal(t, ts.program.ID(), draws[0].Program)
		assert.Equal(t, [4]float32{1, 0, 0, 1}, draws[0].Color)
		assert.Equal(t, 36, len(dev.Data(ts.vbo.ID())))
	})

	t.Run("drawing with pending actions panics", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)

		assert.PanicsWithValue(t, "scene: draw triangle with 4 pending GL actions", func() {
			ts.geometry.Draw(ctx, mgl32.Ident4())
		})

		sigl.HandleGLThreadActions(ts.geometry.Notifier, ctx)
		ts.vbo.SetData(triangle)
		assert.Panics(t, func() { ts.geometry.Draw(ctx, mgl32.Ident4()) })
	})

	t.Run("invalid shader source stays pending", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		broken := flatSource
		broken.Fragment = "#error broken\n" + broken.Fragment
		ts := buildTriangle(s, broken)

		sigl.HandleGLThreadActions(ts.geometry.Notifier, ctx)

		assert.False(t, ts.program.IsCreated())
		assert.Equal(t, gpu.InvalidID, ts.program.ID())
		assert.ErrorIs(t, ts.program.Err(), gpu.ErrProgram)
		assert.True(t, ts.program.HasActions())
		assert.True(t, ts.geometry.HasActions())
		assert.True(t, ts.vbo.IsLoaded())

		err := sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx)
		assert.ErrorIs(t, err, sigl.ErrStalled)
	})

	t.Run("data updates are uploaded on the next drain", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)
		sigl.HandleGLThreadActions(ts.geometry.Notifier, ctx)

		ts.vbo.SetData(append(triangle, triangle...))
		assert.Equal(t, 1, ts.geometry.PendingGL())

		sigl.HandleGLThreadActions(ts.geometry.Notifier, ctx)
		assert.Equal(t, 72, len(dev.Data(ts.vbo.ID())))
		assert.Equal(t, 6, ts.vbo.Len())
	})

	t.Run("indexed meshes draw elements", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)
		ib := s.NewIndexBuffer("ibo", []uint16{0, 1, 2})
		ts.mesh.SetIndices(ib)

		require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))
		ts.geometry.Draw(ctx, mgl32.Ident4())

		draws := dev.Draws()
		require.Len(t, draws, 1)
		assert.True(t, draws[0].Indexed)
		assert.Equal(t, 3, draws[0].Count)
	})

	t.Run("textured materials hold a unit while drawing", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)
		tex := s.NewTexture("checker", gpu.RGBA, gpu.TextureParams{}, 2, 2, make([]byte, 16))
		ts.material.SetTexture(tex)

		require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))
		ts.geometry.Draw(ctx, mgl32.Ident4())

		draws := dev.Draws()
		require.Len(t, draws, 1)
		assert.Equal(t, tex.ID(), draws[0].Textures[0])
		assert.Equal(t, 0, ctx.TextureUnitsInUse())
	})

	t.Run("swapping the mesh moves propagation", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)
		require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))

		other := s.NewMesh("other", gpu.Triangles, 3)
		other.SetAttribute("position", ts.vbo)
		ts.geometry.SetMesh(other)

		ts.mesh.SetCount(0)
		ts.vbo.SetData(triangle)
		assert.Equal(t, 1, other.ActionCount())
		assert.Equal(t, 1, ts.mesh.ActionCount())

		ts.mesh.SetAttribute("position", s.NewVertexBuffer("replacement", 3, triangle))
		assert.Equal(t, 2, ts.mesh.ActionCount())
		assert.Equal(t, 1, ts.geometry.ActionCount())
	})
}

func TestRestore(t *testing.T) {
	s, ctx, _ := newScene(t, Options{})
	ts := buildTriangle(s, flatSource)
	require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))

	dev := gputest.New()
	fresh := gpu.NewContext(dev, nil)

	s.Restore()
	assert.Equal(t, 4, ts.geometry.PendingGL())

	require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, fresh))
	assert.Equal(t, 1, dev.Live("buffer"))
	assert.Equal(t, 1, dev.Live("program"))
	assert.True(t, ts.vbo.IsLoaded())

	ts.geometry.Draw(fresh, mgl32.Ident4())
	assert.NoError(t, fresh.Error())
}

func TestRelease(t *testing.T) {
	s, ctx, dev := newScene(t, Options{})
	ts := buildTriangle(s, flatSource)
	require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))

	ts.vbo.Release()
	ts.vbo.Release()
	assert.Equal(t, 1, ts.geometry.ActionCount())

	require.NoError(t, sigl.Settle(ts.geometry.Notifier, sigl.GL, ctx))
	assert.Equal(t, gpu.Released, ts.vbo.State())
	assert.Equal(t, 0, dev.Live("buffer"))

	never := s.NewVertexBuffer("never", 3, nil)
	assert.NotPanics(t, func() {
		assert.True(t, never.ApplyAction(never.AddAction(sigl.Release), ctx))
	})
	assert.Equal(t, gpu.Uncreated, never.State())
}

func TestNodeTransforms(t *testing.T) {
	t.Run("children inherit their parent transform", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		parent := s.NewNode("parent")
		child := s.NewNode("child")
		s.Root().AddChild(parent)
		parent.AddChild(child)

		parent.SetPosition(mgl32.Vec3{1, 0, 0})
		parent.SetRotation(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1}))
		child.SetPosition(mgl32.Vec3{1, 0, 0})

		assert.True(t, s.Root().HasActionsFor(sigl.Main))
		s.HandleMainThreadActions()
		assert.False(t, s.Root().HasActionsFor(sigl.Main))

		origin := child.World().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
		assert.InDelta(t, 1, origin.X(), 1e-5)
		assert.InDelta(t, 1, origin.Y(), 1e-5)
	})

	t.Run("moving a subtree recomputes it", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		a := s.NewNode("a")
		b := s.NewNode("b")
		leaf := s.NewNode("leaf")
		s.Root().AddChild(a)
		s.Root().AddChild(b)
		a.AddChild(leaf)
		a.SetScale(mgl32.Vec3{2, 2, 2})
		b.SetPosition(mgl32.Vec3{0, 0, -4})
		leaf.SetPosition(mgl32.Vec3{1, 0, 0})
		s.HandleMainThreadActions()

		assert.InDelta(t, 2, leaf.World()[12], 1e-5)

		b.AddChild(leaf)
		assert.Empty(t, a.Children())
		assert.False(t, a.HasActions())
		s.HandleMainThreadActions()

		assert.InDelta(t, 1, leaf.World()[12], 1e-5)
		assert.InDelta(t, -4, leaf.World()[14], 1e-5)
	})

	t.Run("walk is depth first", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		a := s.NewNode("a")
		b := s.NewNode("b")
		c := s.NewNode("c")
		s.Root().AddChild(a)
		a.AddChild(b)
		s.Root().AddChild(c)

		var names []string
		s.Root().Walk(func(n *Node) bool {
			names = append(names, n.Name())
			return n != a
		})
		assert.Equal(t, []string{"root", "a", "c"}, names)
	})

	t.Run("dispose detaches the subtree", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		ts := buildTriangle(s, flatSource)
		node := s.NewNode("holder")
		s.Root().AddChild(node)
		node.AddGeometry(ts.geometry)
		require.Same(t, node, ts.geometry.Node())

		node.Dispose()

		assert.Empty(t, s.Root().Children())
		assert.Empty(t, s.Root().Geometries())
		assert.Nil(t, ts.geometry.Node())
		assert.False(t, s.Root().HasActionsFor(sigl.GL))
		assert.True(t, ts.mesh.HasActions())
	})
}

func TestCamera(t *testing.T) {
	s, _, _ := newScene(t, Options{})
	cam := s.Camera()

	eye := mgl32.Vec3{0, 2, 5}
	cam.LookAt(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	cam.SetPerspective(60, 16.0/9.0, 0.5, 50)
	assert.Equal(t, 1, s.Root().ActionCount())

	s.HandleMainThreadActions()

	assert.True(t, cam.View().ApproxEqual(mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})))
	assert.True(t, cam.Projection().ApproxEqual(mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.5, 50)))
	assert.True(t, cam.ViewProjection().ApproxEqual(cam.Projection().Mul4(cam.View())))
	assert.Equal(t, eye, cam.Eye())
}

func TestFrameBuffer(t *testing.T) {
	t.Run("settles with its attachments in one pass", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		color := s.NewTexture("color", gpu.RGBA, gpu.TextureParams{}, 16, 16, nil)
		depth := s.NewRenderbuffer("depth", gpu.Depth16, 16, 16)
		fb := s.NewFrameBuffer("target", color, depth)

		assert.Equal(t, 6, sigl.HandleGLThreadActions(fb.Notifier, ctx))
		assert.False(t, fb.HasActions())
		assert.True(t, fb.IsLoaded())

		fb.Bind(ctx)
		(*FrameBuffer)(nil).Bind(ctx)
		assert.NoError(t, ctx.Error())
	})

	t.Run("waits for its attachments", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		color := s.NewTexture("hdr", gpu.RGBAFloat, gpu.TextureParams{}, 16, 16, nil)
		fb := s.NewFrameBuffer("target", color, nil)

		err := sigl.Settle(fb.Notifier, sigl.GL, ctx)
		require.ErrorIs(t, err, sigl.ErrStalled)
		assert.True(t, fb.IsCreated())
		assert.False(t, fb.IsLoaded())
		assert.ErrorIs(t, color.Err(), gpu.ErrUnsupportedFormat)
	})

	t.Run("incomplete attachments stall", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		color := s.NewTexture("color", gpu.RGBA, gpu.TextureParams{}, 16, 16, nil)
		depth := s.NewRenderbuffer("depth", gpu.Depth16, 8, 8)
		fb := s.NewFrameBuffer("target", color, depth)

		assert.ErrorIs(t, sigl.Settle(fb.Notifier, sigl.GL, ctx), sigl.ErrStalled)
		assert.Error(t, fb.Err())

		depth.Resize(16, 16)
		assert.True(t, fb.HasActionsFor(sigl.GL))
		assert.NoError(t, sigl.Settle(fb.Notifier, sigl.GL, ctx))
		assert.True(t, fb.IsLoaded())
	})

	t.Run("reattaches resized attachments", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{})
		color := s.NewTexture("color", gpu.RGBA, gpu.TextureParams{}, 16, 16, nil)
		depth := s.NewRenderbuffer("depth", gpu.Depth16, 16, 16)
		fb := s.NewFrameBuffer("target", color, depth)

		require.NoError(t, sigl.Settle(fb.Notifier, sigl.GL, ctx))
		assert.Equal(t, 1, countCalls(dev, "framebuffer attach"))

		depth.Resize(32, 32)
		color.SetPixels(32, 32, nil)
		assert.Equal(t, 3, fb.ActionCount())

		require.NoError(t, sigl.Settle(fb.Notifier, sigl.GL, ctx))
		assert.False(t, fb.HasActions())
		assert.NoError(t, fb.Err())
		assert.Equal(t, 2, countCalls(dev, "framebuffer attach"))

		w, h := fb.Size()
		assert.Equal(t, 32, w)
		assert.Equal(t, 32, h)
	})

	t.Run("dispose leaves the attachments alone", func(t *testing.T) {
		s, ctx, _ := newScene(t, Options{})
		color := s.NewTexture("color", gpu.RGBA, gpu.TextureParams{}, 16, 16, nil)
		fb := s.NewFrameBuffer("target", color, nil)
		require.NoError(t, sigl.Settle(fb.Notifier, sigl.GL, ctx))

		fb.Dispose()
		assert.True(t, fb.Disposed())
		assert.NotPanics(t, func() { color.SetPixels(8, 8, nil) })
		assert.Equal(t, 1, color.ActionCount())
	})
}

func countCalls(dev *gputest.Device, prefix string) int {
	var n int
	for _, c := range dev.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestProgramLibrary(t *testing.T) {
	t.Run("caches by name", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		lib := s.Programs()

		a := lib.Program("flat", flatSource)
		assert.Same(t, a, lib.Program("flat", flatSource))
		assert.Equal(t, 1, lib.Len())

		got, ok := lib.Get("flat")
		assert.True(t, ok)
		assert.Same(t, a, got)
	})

	t.Run("evicted programs are released", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{ProgramCacheSize: 2})
		lib := s.Programs()

		a := lib.Program("a", flatSource)
		lib.Program("b", flatSource)
		require.NoError(t, sigl.Settle(lib.Notifier, sigl.GL, ctx))
		assert.Equal(t, 2, dev.Live("program"))

		lib.Program("c", flatSource)
		_, ok := lib.Get("a")
		assert.False(t, ok)

		require.NoError(t, sigl.Settle(lib.Notifier, sigl.GL, ctx))
		assert.Equal(t, gpu.Released, a.State())
		assert.Equal(t, 2, dev.Live("program"))

		assert.True(t, lib.Remove("b"))
		lib.Purge()
		require.NoError(t, sigl.Settle(lib.Notifier, sigl.GL, ctx))
		assert.Equal(t, 0, dev.Live("program"))
		assert.Equal(t, 0, lib.Len())
	})
}

func TestMaterialProgram(t *testing.T) {
	t.Run("evicted programs stay alive while used", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{ProgramCacheSize: 1})
		lib := s.Programs()

		a := lib.Program("a", flatSource)
		m := s.NewMaterial("material", a)
		assert.Equal(t, 1, a.Users())

		lib.Program("b", flatSource)
		_, ok := lib.Get("a")
		assert.False(t, ok)
		require.NoError(t, sigl.Settle(m.Notifier, sigl.GL, ctx))
		require.NoError(t, sigl.Settle(lib.Notifier, sigl.GL, ctx))
		assert.True(t, a.IsLoaded())
		assert.Equal(t, 2, dev.Live("program"))

		m.SetProgram(nil)
		assert.Equal(t, 0, a.Users())
		require.NoError(t, sigl.Settle(s.Resources(), sigl.GL, ctx))
		assert.Equal(t, gpu.Released, a.State())
		assert.Equal(t, 1, dev.Live("program"))
	})

	t.Run("unused programs are released on eviction", func(t *testing.T) {
		s, ctx, dev := newScene(t, Options{ProgramCacheSize: 1})
		lib := s.Programs()

		a := lib.Program("a", flatSource)
		m := s.NewMaterial("material", a)
		m.SetProgram(lib.Program("b", flatSource))
		assert.Equal(t, 0, a.Users())
		assert.Equal(t, 1, m.Program().Users())

		require.NoError(t, sigl.Settle(s.Resources(), sigl.GL, ctx))
		assert.Equal(t, gpu.Released, a.State())
		assert.Equal(t, 1, dev.Live("program"))
	})

	t.Run("dispose lets go of the program", func(t *testing.T) {
		s, _, _ := newScene(t, Options{})
		p := s.Programs().Program("flat", flatSource)
		m := s.NewMaterial("material", p)

		m.Dispose()
		assert.Equal(t, 0, p.Users())
		assert.Nil(t, m.Program())
		assert.True(t, m.Disposed())
	})
}

func TestImageTexture(t *testing.T) {
	s, ctx, dev := newScene(t, Options{})

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	tex := s.NewTextureFromImage("img", img, gpu.TextureParams{MinFilter: gpu.Nearest})

	require.NoError(t, sigl.Settle(tex.Notifier, sigl.GL, ctx))
	w, h := tex.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []byte{255, 0, 0, 255}, dev.Data(tex.ID())[:4])
}

package scene

import (
	"image"
	"image/draw"
	"sync"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Texture is a 2D texture with its pixel payload.
type Texture struct {
	*resource

	tex *gpu.Texture

	mu            sync.Mutex
	width, height int
	pixels        []byte
}

// NewTexture creates a texture of the given size. A nil pixels slice leaves
// the storage uninitialized, which suits render targets.
func (s *Scene) NewTexture(name string, format gpu.TextureFormat, params gpu.TextureParams, width, height int, pixels []byte) *Texture {
	t := &Texture{
		tex:    gpu.NewTexture(name, format, params),
		width:  width,
		height: height,
		pixels: pixels,
	}
	t.resource = s.newResource(name, t.tex, t)
	t.raise()

	return t
}

// NewTextureFromImage creates an RGBA texture holding img.
func (s *Scene) NewTextureFromImage(name string, img image.Image, params gpu.TextureParams) *Texture {
	rgba := toRGBA(img)
	return s.NewTexture(name, gpu.RGBA, params, rgba.Rect.Dx(), rgba.Rect.Dy(), rgba.Pix)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

func (t *Texture) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.width, t.height
}

// SetPixels replaces the texture content and size. Frame buffers rendering
// into the texture are attached again.
func (t *Texture) SetPixels(width, height int, pixels []byte) {
	t.mu.Lock()
	t.width, t.height, t.pixels = width, height, pixels
	t.mu.Unlock()

	t.reload()
}

func (t *Texture) SetImage(img image.Image) {
	rgba := toRGBA(img)
	t.SetPixels(rgba.Rect.Dx(), rgba.Rect.Dy(), rgba.Pix)
}

func (t *Texture) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return t.apply(a, ctx, func() bool {
		t.mu.Lock()
		w, h, pixels := t.width, t.height, t.pixels
		t.mu.Unlock()

		t.tex.Load(ctx, w, h, pixels)
		return true
	})
}

// Renderbuffer is an offscreen attachment of a FrameBuffer.
type Renderbuffer struct {
	*resource

	rb *gpu.Renderbuffer

	mu            sync.Mutex
	width, height int
}

func (s *Scene) NewRenderbuffer(name string, format gpu.RenderbufferFormat, width, height int) *Renderbuffer {
	rb := &Renderbuffer{
		rb:     gpu.NewRenderbuffer(name, format),
		width:  width,
		height: height,
	}
	rb.resource = s.newResource(name, rb.rb, rb)
	rb.raise()

	return rb
}

// Resize reallocates the storage and raises Load on the frame buffers using
// it.
func (rb *Renderbuffer) Resize(width, height int) {
	rb.mu.Lock()
	rb.width, rb.height = width, height
	rb.mu.Unlock()

	rb.reload()
}

func (rb *Renderbuffer) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return rb.apply(a, ctx, func() bool {
		rb.mu.Lock()
		w, h := rb.width, rb.height
		rb.mu.Unlock()

		rb.rb.Load(ctx, w, h)
		return true
	})
}

// FrameBuffer renders into a color texture and an optional depth
// renderbuffer. Both attachments propagate into it, so settling the frame
// buffer settles them too.
type FrameBuffer struct {
	*resource

	fb    *gpu.Framebuffer
	color *Texture
	depth *Renderbuffer
}

func (s *Scene) NewFrameBuffer(name string, color *Texture, depth *Renderbuffer) *FrameBuffer {
	fb := &FrameBuffer{
		fb:    gpu.NewFramebuffer(name),
		color: color,
		depth: depth,
	}
	fb.resource = s.newResource(name, fb.fb, fb)

	color.ConnectTo(fb.Notifier)
	color.addDependent(fb.resource)
	if depth != nil {
		depth.ConnectTo(fb.Notifier)
		depth.addDependent(fb.resource)
	}
	fb.raise()

	return fb
}

func (fb *FrameBuffer) Color() *Texture      { return fb.color }
func (fb *FrameBuffer) Depth() *Renderbuffer { return fb.depth }
func (fb *FrameBuffer) Size() (int, int)     { return fb.color.Size() }

// Dispose detaches fb from the scene and from its attachments.
func (fb *FrameBuffer) Dispose() {
	fb.color.removeDependent(fb.resource)
	if fb.depth != nil {
		fb.depth.removeDependent(fb.resource)
	}
	fb.resource.Dispose()
}

// Bind makes fb the render target. Binding a nil FrameBuffer targets the
// default framebuffer.
func (fb *FrameBuffer) Bind(ctx *gpu.Context) {
	if fb == nil {
		ctx.BindFramebuffer(nil)
		return
	}
	ctx.BindFramebuffer(fb.fb)
}

// ApplyAction loads the frame buffer once its attachments are loaded and
// have no GL work left.
func (fb *FrameBuffer) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return fb.apply(a, ctx, func() bool {
		if !fb.color.IsLoaded() || fb.color.HasActionsFor(sigl.GL) {
			return false
		}

		var depth *gpu.Renderbuffer
		if fb.depth != nil {
			if !fb.depth.IsLoaded() || fb.depth.HasActionsFor(sigl.GL) {
				return false
			}
			depth = fb.depth.rb
		}

		return fb.fb.Load(ctx, fb.color.tex, depth)
	})
}

package gpu

import (
	"errors"
	"fmt"
)

var ErrUnsupportedFormat = errors.New("unsupported texture format")

// Texture is a 2D texture.
type Texture struct {
	Resource

	format TextureFormat
	params TextureParams

	width, height int
}

func NewTexture(name string, format TextureFormat, params TextureParams) *Texture {
	return &Texture{
		Resource: Resource{name: name},
		format:   format,
		params:   params,
	}
}

func (t *Texture) Format() TextureFormat { return t.format }
func (t *Texture) Size() (int, int)      { return t.width, t.height }

// Create allocates the texture name. Formats the device cannot sample fail
// in a recoverable way.
func (t *Texture) Create(c *Context) bool {
	c.mustOwn("Texture.Create")
	t.mustUncreated("create texture")

	if t.format == RGBAFloat && !c.caps.FloatTextures {
		return t.create(c, InvalidID, fmt.Errorf("%w: %s on %q", ErrUnsupportedFormat, t.format, c.caps.Renderer))
	}

	id, err := c.dev.NewTexture()
	if !t.create(c, id, err) {
		return false
	}

	c.stats.Textures++
	return true
}

// Load uploads width*height texels. A nil pixels slice allocates storage
// without initializing it, as render targets do.
func (t *Texture) Load(c *Context, width, height int, pixels []byte) {
	c.mustOwn("Texture.Load")
	t.mustCreated("load texture")

	if pixels != nil && len(pixels) != width*height*t.format.BytesPerPixel() {
		panic(fmt.Sprintf("gpu: load texture %s: %d bytes for %dx%d %s", t.name, len(pixels), width, height, t.format))
	}

	c.dev.TexImage2D(t.id, t.format, width, height, pixels, t.params)
	t.width, t.height = width, height
	t.loaded(c)
}

// Bind binds t to a texture unit taken from c.
func (t *Texture) Bind(c *Context, unit int) {
	c.mustOwn("Texture.Bind")
	t.mustLoaded("bind texture")
	c.dev.BindTexture(unit, t.id)
}

func (t *Texture) Release(c *Context) {
	c.mustOwn("Texture.Release")

	id := t.id
	if !t.release(c) {
		return
	}

	c.dev.DeleteTexture(id)
	c.stats.Textures--
}

// Renderbuffer is an offscreen depth, stencil or color attachment.
type Renderbuffer struct {
	Resource

	format        RenderbufferFormat
	width, height int
}

func NewRenderbuffer(name string, format RenderbufferFormat) *Renderbuffer {
	return &Renderbuffer{
		Resource: Resource{name: name},
		format:   format,
	}
}

func (rb *Renderbuffer) Format() RenderbufferFormat { return rb.format }
func (rb *Renderbuffer) Size() (int, int)           { return rb.width, rb.height }

func (rb *Renderbuffer) Create(c *Context) bool {
	c.mustOwn("Renderbuffer.Create")
	rb.mustUncreated("create renderbuffer")

	id, err := c.dev.NewRenderbuffer()
	if !rb.create(c, id, err) {
		return false
	}

	c.stats.Renderbuffers++
	return true
}

// Load allocates the storage.
func (rb *Renderbuffer) Load(c *Context, width, height int) {
	c.mustOwn("Renderbuffer.Load")
	rb.mustCreated("load renderbuffer")

	c.dev.RenderbufferStorage(rb.id, rb.format, width, height)
	rb.width, rb.height = width, height
	rb.loaded(c)
}

func (rb *Renderbuffer) Release(c *Context) {
	c.mustOwn("Renderbuffer.Release")

	id := rb.id
	if !rb.release(c) {
		return
	}

	c.dev.DeleteRenderbuffer(id)
	c.stats.Renderbuffers--
}

package gpu

// Framebuffer renders into a color texture and an optional depth
// renderbuffer.
type Framebuffer struct {
	Resource

	width, height int
}

func NewFramebuffer(name string) *Framebuffer {
	return &Framebuffer{Resource: Resource{name: name}}
}

func (fb *Framebuffer) Size() (int, int) { return fb.width, fb.height }

func (fb *Framebuffer) Create(c *Context) bool {
	c.mustOwn("Framebuffer.Create")
	fb.mustUncreated("create framebuffer")

	id, err := c.dev.NewFramebuffer()
	if !fb.create(c, id, err) {
		return false
	}

	c.stats.Framebuffers++
	return true
}

// Load attaches the given targets, which must be loaded, and checks the
// framebuffer is complete. An incomplete framebuffer keeps its previous
// state and reports false with the cause in Err.
func (fb *Framebuffer) Load(c *Context, color *Texture, depth *Renderbuffer) bool {
	c.mustOwn("Framebuffer.Load")
	fb.mustCreated("load framebuffer")
	color.mustLoaded("attach color texture")

	depthID := InvalidID
	if depth != nil {
		depth.mustLoaded("attach depth renderbuffer")
		depthID = depth.id
	}

	if err := c.dev.FramebufferAttach(fb.id, color.id, depthID); err != nil {
		fb.err = err
		c.lg.Warn("gpu framebuffer incomplete", "resource", fb.name, "error", err)
		return false
	}

	fb.width, fb.height = color.Size()
	fb.loaded(c)
	return true
}

func (fb *Framebuffer) Release(c *Context) {
	c.mustOwn("Framebuffer.Release")

	id := fb.id
	if !fb.release(c) {
		return
	}

	c.dev.DeleteFramebuffer(id)
	c.stats.Framebuffers--
}

package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/AnatoleLucet/sigl/internal"
	"github.com/AnatoleLucet/sigl/log"
)

// Context owns one GPU context. It is bound to the goroutine that created it
// (or last called Bind) and every operation going through it panics when
// issued from any other goroutine.
type Context struct {
	dev   Device
	lg    *log.Logger
	caps  Caps
	owner atomic.Int64

	units []bool // texture units currently taken
	stats Stats

	released bool
}

func NewContext(dev Device, lg *log.Logger) *Context {
	c := &Context{
		dev:  dev,
		lg:   lg,
		caps: dev.Caps(),
	}
	c.owner.Store(internal.GoroutineID())
	c.units = make([]bool, max(c.caps.MaxTextureUnits, 0))

	lg.Info("gpu context created", "renderer", c.caps.Renderer,
		"texture_units", c.caps.MaxTextureUnits, "max_texture_size", c.caps.MaxTextureSize)

	return c
}

// Bind hands the context over to the calling goroutine.
func (c *Context) Bind() {
	c.owner.Store(internal.GoroutineID())
}

// Owned reports whether the calling goroutine owns c.
func (c *Context) Owned() bool {
	return c.owner.Load() == internal.GoroutineID()
}

func (c *Context) mustOwn(op string) {
	if id := internal.GoroutineID(); id != c.owner.Load() {
		panic(fmt.Sprintf("gpu: %s called from goroutine %d, context is owned by goroutine %d",
			op, id, c.owner.Load()))
	}
	if c.released {
		panic(fmt.Sprintf("gpu: %s called on a released context", op))
	}
}

// Device returns the backend for direct use by resource code.
func (c *Context) Device() Device {
	c.mustOwn("Device")
	return c.dev
}

func (c *Context) Caps() Caps {
	return c.caps
}

func (c *Context) Logger() *log.Logger {
	return c.lg
}

// TakeTextureUnit returns the lowest free texture unit. Running out of units
// panics; callers should prefer WithTextureUnit.
func (c *Context) TakeTextureUnit() int {
	c.mustOwn("TakeTextureUnit")

	for u, taken := range c.units {
		if !taken {
			c.units[u] = true
			return u
		}
	}
	panic(fmt.Sprintf("gpu: all %d texture units are taken", len(c.units)))
}

func (c *Context) ReturnTextureUnit(u int) {
	c.mustOwn("ReturnTextureUnit")

	if u < 0 || u >= len(c.units) || !c.units[u] {
		panic(fmt.Sprintf("gpu: texture unit %d returned but not taken", u))
	}
	c.units[u] = false
}

// WithTextureUnit takes a unit for the duration of fn.
func (c *Context) WithTextureUnit(fn func(unit int)) {
	u := c.TakeTextureUnit()
	defer c.ReturnTextureUnit(u)

	fn(u)
}

// TextureUnitsInUse returns how many units are currently taken.
func (c *Context) TextureUnitsInUse() int {
	n := 0
	for _, taken := range c.units {
		if taken {
			n++
		}
	}
	return n
}

func (c *Context) BindFramebuffer(fb *Framebuffer) {
	c.mustOwn("BindFramebuffer")

	if fb == nil {
		c.dev.BindFramebuffer(InvalidID)
		return
	}
	fb.mustLoaded("bind")
	c.dev.BindFramebuffer(fb.id)
}

func (c *Context) Viewport(x, y, width, height int) {
	c.mustOwn("Viewport")
	c.dev.Viewport(x, y, width, height)
}

func (c *Context) Clear(color [4]float32) {
	c.mustOwn("Clear")
	c.dev.Clear(color[0], color[1], color[2], color[3])
}

// DrawArrays issues a non-indexed draw with the currently used program.
func (c *Context) DrawArrays(mode DrawMode, first, count int) {
	c.mustOwn("DrawArrays")
	c.dev.DrawArrays(mode, first, count)
	c.stats.draw(count)
}

func (c *Context) DrawElements(mode DrawMode, indices *Buffer, count int, typ IndexType) {
	c.mustOwn("DrawElements")
	indices.Bind(c)
	c.dev.DrawElements(mode, count, typ, 0)
	c.stats.draw(count)
}

// Error returns the pending backend error, if any.
func (c *Context) Error() error {
	c.mustOwn("Error")
	return c.dev.Error()
}

// Stats returns the counters accumulated since the last ResetFrameStats.
func (c *Context) Stats() Stats {
	return c.stats
}

// ResetFrameStats zeroes the per-frame counters, keeping live resource
// counts.
func (c *Context) ResetFrameStats() {
	c.stats.DrawCalls = 0
	c.stats.Vertices = 0
}

// Release drops the context. Resources still alive are reported, not freed.
func (c *Context) Release() {
	c.mustOwn("Release")

	if live := c.stats.live(); live > 0 {
		c.lg.Warn("gpu context released with live resources", "stats", c.stats)
	}
	c.dev.Release()
	c.released = true
}

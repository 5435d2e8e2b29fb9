package gpu

import "fmt"

// Buffer is a vertex or index buffer.
type Buffer struct {
	Resource

	target BufferTarget
	usage  BufferUsage
	size   int
}

func NewBuffer(name string, target BufferTarget, usage BufferUsage) *Buffer {
	return &Buffer{
		Resource: Resource{name: name},
		target:   target,
		usage:    usage,
	}
}

func (b *Buffer) Target() BufferTarget { return b.target }

// Size returns the number of bytes uploaded by the last Load.
func (b *Buffer) Size() int { return b.size }

func (b *Buffer) Create(c *Context) bool {
	c.mustOwn("Buffer.Create")
	b.mustUncreated("create buffer")

	id, err := c.dev.NewBuffer()
	if !b.create(c, id, err) {
		return false
	}

	c.stats.Buffers++
	return true
}

// Load uploads data, replacing whatever the buffer held.
func (b *Buffer) Load(c *Context, data []byte) {
	c.mustOwn("Buffer.Load")
	b.mustCreated("load buffer")

	c.dev.BufferData(b.id, b.target, data, b.usage)
	c.stats.BufferBytes += len(data) - b.size
	b.size = len(data)
	b.loaded(c)
}

func (b *Buffer) Bind(c *Context) {
	c.mustOwn("Buffer.Bind")
	b.mustLoaded("bind buffer")
	c.dev.BindBuffer(b.target, b.id)
}

// Attrib points the vertex attribute at location to this buffer.
func (b *Buffer) Attrib(c *Context, location, size, stride, offset int) {
	if b.target != ArrayBuffer {
		panic(fmt.Sprintf("gpu: %s is a %s buffer, not a vertex buffer", b.name, b.target))
	}

	b.Bind(c)
	c.dev.EnableVertexAttrib(location, size, stride, offset)
}

func (b *Buffer) Release(c *Context) {
	c.mustOwn("Buffer.Release")

	id := b.id
	if !b.release(c) {
		return
	}

	c.dev.DeleteBuffer(id)
	c.stats.Buffers--
	c.stats.BufferBytes -= b.size
	b.size = 0
}

package scene

import (
	"slices"
	"sync"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

type attribute struct {
	name string
	vb   *VertexBuffer
}

// Mesh binds named vertex attributes to vertex buffers, with optional
// indices.
type Mesh struct {
	*sigl.Notifier

	mu      sync.Mutex
	mode    gpu.DrawMode
	count   int
	attribs []attribute
	indices *IndexBuffer
}

// NewMesh creates a mesh drawing count vertices in the given mode. With an
// index buffer the count comes from the indices instead.
func (s *Scene) NewMesh(name string, mode gpu.DrawMode, count int) *Mesh {
	return &Mesh{
		Notifier: s.graph.NewNotifier(name, nil),
		mode:     mode,
		count:    count,
	}
}

// SetAttribute binds vb to the program attribute called name, replacing any
// previous binding.
func (m *Mesh) SetAttribute(name string, vb *VertexBuffer) {
	m.mu.Lock()
	i := slices.IndexFunc(m.attribs, func(a attribute) bool { return a.name == name })
	var old *VertexBuffer
	if i >= 0 {
		old = m.attribs[i].vb
		m.attribs[i].vb = vb
	} else {
		m.attribs = append(m.attribs, attribute{name, vb})
	}
	m.mu.Unlock()

	m.swap(old, vb)
}

func (m *Mesh) Attribute(name string) *VertexBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.attribs {
		if a.name == name {
			return a.vb
		}
	}
	return nil
}

func (m *Mesh) SetIndices(ib *IndexBuffer) {
	m.mu.Lock()
	old := m.indices
	m.indices = ib
	m.mu.Unlock()

	if old != nil {
		old.DisconnectFrom(m.Notifier)
	}
	if ib != nil {
		ib.ConnectTo(m.Notifier)
	}
}

func (m *Mesh) SetCount(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.count = count
}

// swap moves the propagation edge from old to vb, unless old is still bound
// under another name.
func (m *Mesh) swap(old, vb *VertexBuffer) {
	if old == vb {
		return
	}
	if old != nil && !m.binds(old) {
		old.DisconnectFrom(m.Notifier)
	}
	vb.ConnectTo(m.Notifier)
}

func (m *Mesh) binds(vb *VertexBuffer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.ContainsFunc(m.attribs, func(a attribute) bool { return a.vb == vb })
}

// draw issues the draw call with prog already in use.
func (m *Mesh) draw(ctx *gpu.Context, prog *gpu.Program) {
	m.mu.Lock()
	attribs := slices.Clone(m.attribs)
	mode, count, indices := m.mode, m.count, m.indices
	m.mu.Unlock()

	var enabled []int
	for _, a := range attribs {
		loc := prog.Attrib(a.name)
		if loc < 0 {
			continue
		}
		a.vb.buf.Attrib(ctx, loc, a.vb.components, 0, 0)
		enabled = append(enabled, loc)
	}

	if indices != nil {
		ctx.DrawElements(mode, indices.buf, indices.Count(), gpu.UnsignedShort)
	} else {
		ctx.DrawArrays(mode, 0, count)
	}

	dev := ctx.Device()
	for _, loc := range enabled {
		dev.DisableVertexAttrib(loc)
	}
}

package scene

import (
	"encoding/binary"
	"sync"

	"golang.org/x/mobile/exp/f32"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// VertexBuffer holds float vertex data with a fixed number of components
// per vertex.
type VertexBuffer struct {
	*resource

	buf        *gpu.Buffer
	components int

	mu   sync.Mutex
	data []byte
}

func (s *Scene) NewVertexBuffer(name string, components int, data []float32) *VertexBuffer {
	vb := &VertexBuffer{
		buf:        gpu.NewBuffer(name, gpu.ArrayBuffer, gpu.StaticDraw),
		components: components,
		data:       f32.Bytes(binary.LittleEndian, data...),
	}
	vb.resource = s.newResource(name, vb.buf, vb)
	vb.raise()

	return vb
}

func (vb *VertexBuffer) Components() int { return vb.components }

// Len returns the number of vertices held.
func (vb *VertexBuffer) Len() int {
	vb.mu.Lock()
	defer vb.mu.Unlock()

	return len(vb.data) / 4 / vb.components
}

// SetData replaces the vertex data. The upload happens on the next GL
// drain.
func (vb *VertexBuffer) SetData(data []float32) {
	vb.mu.Lock()
	vb.data = f32.Bytes(binary.LittleEndian, data...)
	vb.mu.Unlock()

	vb.AddAction(sigl.Load)
}

func (vb *VertexBuffer) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return vb.apply(a, ctx, func() bool {
		vb.mu.Lock()
		data := vb.data
		vb.mu.Unlock()

		vb.buf.Load(ctx, data)
		return true
	})
}

// IndexBuffer holds 16 bit element indices.
type IndexBuffer struct {
	*resource

	buf *gpu.Buffer

	mu    sync.Mutex
	data  []byte
	count int
}

func encodeIndices(indices []uint16) []byte {
	b := make([]byte, 0, 2*len(indices))
	for _, i := range indices {
		b = binary.LittleEndian.AppendUint16(b, i)
	}
	return b
}

func (s *Scene) NewIndexBuffer(name string, indices []uint16) *IndexBuffer {
	ib := &IndexBuffer{
		buf:   gpu.NewBuffer(name, gpu.ElementArrayBuffer, gpu.StaticDraw),
		data:  encodeIndices(indices),
		count: len(indices),
	}
	ib.resource = s.newResource(name, ib.buf, ib)
	ib.raise()

	return ib
}

func (ib *IndexBuffer) Count() int {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	return ib.count
}

func (ib *IndexBuffer) SetIndices(indices []uint16) {
	ib.mu.Lock()
	ib.data = encodeIndices(indices)
	ib.count = len(indices)
	ib.mu.Unlock()

	ib.AddAction(sigl.Load)
}

func (ib *IndexBuffer) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return ib.apply(a, ctx, func() bool {
		ib.mu.Lock()
		data := ib.data
		ib.mu.Unlock()

		ib.buf.Load(ctx, data)
		return true
	})
}

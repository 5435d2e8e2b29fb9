package scene

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Material is a program with its color and optional texture.
type Material struct {
	*sigl.Notifier

	mu      sync.Mutex
	program *ShaderProgram
	color   [4]float32
	texture *Texture
}

func (s *Scene) NewMaterial(name string, program *ShaderProgram) *Material {
	m := &Material{
		Notifier: s.graph.NewNotifier(name, nil),
		color:    [4]float32{1, 1, 1, 1},
	}
	m.SetProgram(program)

	return m
}

func (m *Material) Program() *ShaderProgram {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.program
}

// SetProgram swaps the program of m. A program the library evicted is
// released once no material uses it.
func (m *Material) SetProgram(p *ShaderProgram) {
	m.mu.Lock()
	old := m.program
	m.program = p
	m.mu.Unlock()

	if old == p {
		return
	}
	if p != nil {
		p.acquire()
		p.ConnectTo(m.Notifier)
	}
	if old != nil {
		old.DisconnectFrom(m.Notifier)
		old.unuse()
	}
}

func (m *Material) Color() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.color
}

// SetColor changes the color uniform. It is read at draw time and raises
// nothing.
func (m *Material) SetColor(c [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.color = c
}

func (m *Material) Texture() *Texture {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.texture
}

func (m *Material) SetTexture(t *Texture) {
	m.mu.Lock()
	old := m.texture
	m.texture = t
	m.mu.Unlock()

	if old == t {
		return
	}
	if old != nil {
		old.DisconnectFrom(m.Notifier)
	}
	if t != nil {
		t.ConnectTo(m.Notifier)
	}
}

// Dispose lets go of the program and texture and detaches m from the graph.
func (m *Material) Dispose() {
	m.SetProgram(nil)
	m.SetTexture(nil)
	m.Notifier.Dispose()
}

// bind sets up the program state and runs draw. A texture is bound on a
// texture unit held for the duration of draw.
func (m *Material) bind(ctx *gpu.Context, mvp mgl32.Mat4, draw func(prog *gpu.Program)) {
	m.mu.Lock()
	program, color, texture := m.program, m.color, m.texture
	m.mu.Unlock()

	if program == nil {
		panic(fmt.Sprintf("scene: material %s has no program", m.Name()))
	}

	prog := program.prog
	prog.Use(ctx)
	prog.SetMat4(ctx, UniformMVP, mvp)
	prog.SetVec4(ctx, UniformColor, color)

	if texture == nil {
		draw(prog)
		return
	}

	ctx.WithTextureUnit(func(unit int) {
		texture.tex.Bind(ctx, unit)
		prog.SetInt(ctx, UniformTexture, unit)
		draw(prog)
	})
}

package scene

import (
	"sync"

	"github.com/AnatoleLucet/sigl"
	"github.com/AnatoleLucet/sigl/gpu"
)

// Uniform names the material binds at draw time.
const (
	UniformMVP     = "mvp"
	UniformColor   = "color"
	UniformTexture = "tex"
)

// ProgramSource is the GLSL of a program with the attribute and uniform
// names resolved when it loads.
type ProgramSource struct {
	Vertex, Fragment string
	Attribs          []string
	Uniforms         []string
}

// ShaderProgram compiles and links on Create. A build failure keeps the
// Create action pending and the program uncreated.
type ShaderProgram struct {
	*resource

	prog *gpu.Program
	src  ProgramSource

	mu      sync.Mutex
	users   int  // materials using the program
	evicted bool // dropped from the program library
}

func (s *Scene) NewShaderProgram(name string, src ProgramSource) *ShaderProgram {
	p := &ShaderProgram{
		prog: gpu.NewProgram(name, src.Vertex, src.Fragment),
		src:  src,
	}
	p.resource = s.newResource(name, p.prog, p)
	p.raise()

	return p
}

func (p *ShaderProgram) Source() ProgramSource { return p.src }

// Users returns the number of materials using p.
func (p *ShaderProgram) Users() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.users
}

func (p *ShaderProgram) acquire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users++
}

// unuse drops a material user. A program the library evicted is released
// with its last user.
func (p *ShaderProgram) unuse() {
	p.mu.Lock()
	p.users--
	release := p.users == 0 && p.evicted
	p.mu.Unlock()

	if release {
		p.Release()
	}
}

// evict marks p as dropped from the library and releases it unless a
// material still uses it.
func (p *ShaderProgram) evict() {
	p.mu.Lock()
	p.evicted = true
	release := p.users == 0
	p.mu.Unlock()

	if release {
		p.Release()
	}
}

func (p *ShaderProgram) ApplyAction(a *sigl.Action, ctx *gpu.Context) bool {
	return p.apply(a, ctx, func() bool {
		uniforms := append([]string{UniformMVP, UniformColor, UniformTexture}, p.src.Uniforms...)
		p.prog.Load(ctx, p.src.Attribs, uniforms)
		return true
	})
}

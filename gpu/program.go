package gpu

import (
	"errors"
	"fmt"
)

var ErrProgram = errors.New("program build failed")

// Program is a linked vertex and fragment shader pair.
type Program struct {
	Resource

	vertex, fragment string

	attribs  map[string]int
	uniforms map[string]int
}

func NewProgram(name, vertex, fragment string) *Program {
	return &Program{
		Resource: Resource{name: name},
		vertex:   vertex,
		fragment: fragment,
	}
}

// Create compiles and links the program. A build failure is recoverable:
// the program stays uncreated and Err holds the log.
func (p *Program) Create(c *Context) bool {
	c.mustOwn("Program.Create")
	p.mustUncreated("create program")

	id, err := c.dev.NewProgram(p.vertex, p.fragment)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrProgram, p.name, err)
	}
	if !p.create(c, id, err) {
		return false
	}

	c.stats.Programs++
	return true
}

// Load resolves the locations of the given attributes and uniforms. Names
// missing from the program resolve to -1.
func (p *Program) Load(c *Context, attribs, uniforms []string) {
	c.mustOwn("Program.Load")
	p.mustCreated("load program")

	p.attribs = make(map[string]int, len(attribs))
	for _, name := range attribs {
		p.attribs[name] = c.dev.AttribLocation(p.id, name)
	}
	p.uniforms = make(map[string]int, len(uniforms))
	for _, name := range uniforms {
		p.uniforms[name] = c.dev.UniformLocation(p.id, name)
	}

	p.loaded(c)
}

func (p *Program) Attrib(name string) int {
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	return -1
}

func (p *Program) Uniform(name string) int {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (p *Program) Use(c *Context) {
	c.mustOwn("Program.Use")
	p.mustLoaded("use program")
	c.dev.UseProgram(p.id)
}

func (p *Program) SetInt(c *Context, name string, v int) {
	if loc := p.Uniform(name); loc >= 0 {
		c.mustOwn("Program.SetInt")
		c.dev.Uniform1i(loc, v)
	}
}

func (p *Program) SetVec4(c *Context, name string, v [4]float32) {
	if loc := p.Uniform(name); loc >= 0 {
		c.mustOwn("Program.SetVec4")
		c.dev.Uniform4f(loc, v)
	}
}

func (p *Program) SetMat4(c *Context, name string, m [16]float32) {
	if loc := p.Uniform(name); loc >= 0 {
		c.mustOwn("Program.SetMat4")
		c.dev.UniformMatrix4(loc, m)
	}
}

func (p *Program) Release(c *Context) {
	c.mustOwn("Program.Release")

	id := p.id
	if !p.release(c) {
		return
	}

	c.dev.DeleteProgram(id)
	c.stats.Programs--
	p.attribs, p.uniforms = nil, nil
}

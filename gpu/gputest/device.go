// Package gputest provides an in-memory gpu.Device that records what it is
// asked to do. It lets the engine run headless in tests.
package gputest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/AnatoleLucet/sigl/gpu"
)

var ErrOutOfMemory = errors.New("gputest: out of memory")

// Draw is one recorded draw call with the state it ran under.
type Draw struct {
	Mode     gpu.DrawMode
	Count    int
	Indexed  bool
	Program  gpu.ID
	Color    [4]float32
	Textures map[int]gpu.ID
	Attribs  []int
}

type object struct {
	kind    string
	deleted bool

	data          []byte
	width, height int
	format        any
}

// Device is a recording gpu.Device. The zero value is not usable; call New.
type Device struct {
	mu sync.Mutex

	caps gpu.Caps
	next gpu.ID
	objs map[gpu.ID]*object

	// FailAlloc makes every New* call fail with ErrOutOfMemory.
	FailAlloc bool

	calls []string
	draws []Draw
	err   error

	program  gpu.ID
	color    [4]float32
	textures map[int]gpu.ID
	attribs  map[int]bool
	clear    [4]float32
	viewport [4]int
	released bool
}

func New() *Device {
	return &Device{
		caps: gpu.Caps{
			Renderer:        "gputest",
			MaxTextureUnits: 8,
			MaxTextureSize:  2048,
		},
		objs:     make(map[gpu.ID]*object),
		textures: make(map[int]gpu.ID),
		attribs:  make(map[int]bool),
	}
}

// WithCaps replaces the reported capabilities.
func (d *Device) WithCaps(caps gpu.Caps) *Device {
	d.caps = caps
	return d
}

func (d *Device) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Device) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

func (d *Device) alloc(kind string) (gpu.ID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailAlloc {
		d.record("new %s: failed", kind)
		return gpu.InvalidID, ErrOutOfMemory
	}

	d.next++
	d.objs[d.next] = &object{kind: kind}
	d.record("new %s %d", kind, d.next)
	return d.next, nil
}

// lookup returns the live object id of the given kind, recording an error
// otherwise. Callers hold mu.
func (d *Device) lookup(kind string, id gpu.ID) *object {
	o, ok := d.objs[id]
	if !ok || o.kind != kind || o.deleted {
		d.fail("invalid %s %d", kind, id)
		return nil
	}
	return o
}

func (d *Device) remove(kind string, id gpu.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o := d.lookup(kind, id); o != nil {
		o.deleted = true
		d.record("delete %s %d", kind, id)
	}
}

func (d *Device) Caps() gpu.Caps { return d.caps }

func (d *Device) NewBuffer() (gpu.ID, error) { return d.alloc("buffer") }

func (d *Device) BufferData(id gpu.ID, target gpu.BufferTarget, data []byte, usage gpu.BufferUsage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o := d.lookup("buffer", id); o != nil {
		o.data = append([]byte(nil), data...)
		d.record("buffer data %d %s %d", id, target, len(data))
	}
}

func (d *Device) DeleteBuffer(id gpu.ID) { d.remove("buffer", id) }

// NewProgram fails to compile sources without a main function or containing
// an #error directive.
func (d *Device) NewProgram(vertex, fragment string) (gpu.ID, error) {
	stages := []struct{ name, src string }{{"vertex", vertex}, {"fragment", fragment}}
	for _, st := range stages {
		if !strings.Contains(st.src, "void main") || strings.Contains(st.src, "#error") {
			d.mu.Lock()
			d.record("compile %s: failed", st.name)
			d.mu.Unlock()
			return gpu.InvalidID, fmt.Errorf("%s shader: compile error", st.name)
		}
	}

	id, err := d.alloc("program")
	if err != nil {
		return id, err
	}

	d.mu.Lock()
	d.objs[id].data = []byte(vertex + "\n" + fragment)
	d.mu.Unlock()
	return id, nil
}

// AttribLocation and UniformLocation report a name as active when it
// appears in the program source.
func (d *Device) AttribLocation(program gpu.ID, name string) int {
	return d.location(program, name, "attribute")
}

func (d *Device) UniformLocation(program gpu.ID, name string) int {
	return d.location(program, name, "uniform")
}

func (d *Device) location(program gpu.ID, name, qualifier string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	o := d.lookup("program", program)
	if o == nil {
		return -1
	}

	loc := 0
	for _, line := range strings.Split(string(o.data), "\n") {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ";"))
		if len(fields) < 3 || fields[0] != qualifier {
			continue
		}
		if fields[len(fields)-1] == name {
			return loc
		}
		loc++
	}
	return -1
}

func (d *Device) DeleteProgram(id gpu.ID) { d.remove("program", id) }

func (d *Device) NewTexture() (gpu.ID, error) { return d.alloc("texture") }

func (d *Device) TexImage2D(id gpu.ID, format gpu.TextureFormat, width, height int, pixels []byte, params gpu.TextureParams) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width > d.caps.MaxTextureSize || height > d.caps.MaxTextureSize {
		d.fail("texture %d: %dx%d exceeds %d", id, width, height, d.caps.MaxTextureSize)
		return
	}
	if o := d.lookup("texture", id); o != nil {
		o.data = append([]byte(nil), pixels...)
		o.width, o.height, o.format = width, height, format
		d.record("tex image %d %s %dx%d", id, format, width, height)
	}
}

func (d *Device) DeleteTexture(id gpu.ID) { d.remove("texture", id) }

func (d *Device) NewRenderbuffer() (gpu.ID, error) { return d.alloc("renderbuffer") }

func (d *Device) RenderbufferStorage(id gpu.ID, format gpu.RenderbufferFormat, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o := d.lookup("renderbuffer", id); o != nil {
		o.width, o.height, o.format = width, height, format
		d.record("renderbuffer storage %d %dx%d", id, width, height)
	}
}

func (d *Device) DeleteRenderbuffer(id gpu.ID) { d.remove("renderbuffer", id) }

func (d *Device) NewFramebuffer() (gpu.ID, error) { return d.alloc("framebuffer") }

// FramebufferAttach reports an incomplete framebuffer when the color
// texture has no storage or the depth buffer size does not match.
func (d *Device) FramebufferAttach(fb, color, depth gpu.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lookup("framebuffer", fb) == nil {
		return fmt.Errorf("framebuffer %d: invalid", fb)
	}
	c := d.lookup("texture", color)
	if c == nil || c.width == 0 || c.height == 0 {
		return fmt.Errorf("framebuffer %d: incomplete color attachment", fb)
	}
	if depth != gpu.InvalidID {
		z := d.lookup("renderbuffer", depth)
		if z == nil || z.width != c.width || z.height != c.height {
			return fmt.Errorf("framebuffer %d: incomplete dimensions", fb)
		}
	}

	d.record("framebuffer attach %d color %d depth %d", fb, color, depth)
	return nil
}

func (d *Device) DeleteFramebuffer(id gpu.ID) { d.remove("framebuffer", id) }

func (d *Device) BindFramebuffer(id gpu.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == gpu.InvalidID || d.lookup("framebuffer", id) != nil {
		d.record("bind framebuffer %d", id)
	}
}

func (d *Device) Viewport(x, y, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.viewport = [4]int{x, y, width, height}
	d.record("viewport %d %d %d %d", x, y, width, height)
}

func (d *Device) Clear(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clear = [4]float32{r, g, b, a}
	d.record("clear")
}

func (d *Device) UseProgram(id gpu.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lookup("program", id) != nil {
		d.program = id
		d.record("use program %d", id)
	}
}

func (d *Device) BindBuffer(target gpu.BufferTarget, id gpu.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lookup("buffer", id) != nil {
		d.record("bind buffer %s %d", target, id)
	}
}

func (d *Device) BindTexture(unit int, id gpu.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if unit < 0 || unit >= d.caps.MaxTextureUnits {
		d.fail("texture unit %d out of range", unit)
		return
	}
	if d.lookup("texture", id) != nil {
		d.textures[unit] = id
		d.record("bind texture %d unit %d", id, unit)
	}
}

func (d *Device) Uniform1i(location, v int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.record("uniform1i %d %d", location, v)
}

func (d *Device) Uniform4f(location int, v [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.color = v
	d.record("uniform4f %d", location)
}

func (d *Device) UniformMatrix4(location int, m [16]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.record("uniform matrix4 %d", location)
}

func (d *Device) EnableVertexAttrib(location, size, stride, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if location < 0 {
		d.fail("enable vertex attrib %d", location)
		return
	}
	d.attribs[location] = true
	d.record("enable attrib %d size %d", location, size)
}

func (d *Device) DisableVertexAttrib(location int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.attribs, location)
	d.record("disable attrib %d", location)
}

func (d *Device) DrawArrays(mode gpu.DrawMode, first, count int) {
	d.draw(mode, count, false)
}

func (d *Device) DrawElements(mode gpu.DrawMode, count int, typ gpu.IndexType, offset int) {
	d.draw(mode, count, true)
}

func (d *Device) draw(mode gpu.DrawMode, count int, indexed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.program == gpu.InvalidID {
		d.fail("draw without a program")
		return
	}

	textures := make(map[int]gpu.ID, len(d.textures))
	for u, id := range d.textures {
		textures[u] = id
	}
	var attribs []int
	for loc := range d.attribs {
		attribs = append(attribs, loc)
	}

	d.draws = append(d.draws, Draw{
		Mode:     mode,
		Count:    count,
		Indexed:  indexed,
		Program:  d.program,
		Color:    d.color,
		Textures: textures,
		Attribs:  attribs,
	})
	d.record("draw %d", count)
}

func (d *Device) Error() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.err
	d.err = nil
	return err
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.released = true
	d.record("release")
}

// Calls returns the recorded call log.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.calls...)
}

func (d *Device) Draws() []Draw {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Draw(nil), d.draws...)
}

// Live returns the number of objects of the given kind not deleted yet.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, o := range d.objs {
		if o.kind == kind && !o.deleted {
			n++
		}
	}
	return n
}

// Data returns the bytes last uploaded to id.
func (d *Device) Data(id gpu.ID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o, ok := d.objs[id]; ok {
		return o.data
	}
	return nil
}

func (d *Device) ClearColor() [4]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.clear
}

func (d *Device) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.released
}

// Reset forgets recorded calls and draws.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = nil
	d.draws = nil
}

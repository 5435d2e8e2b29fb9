// Package gles implements gpu.Device on OpenGL ES 2.0 through
// golang.org/x/mobile/gl.
package gles

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mobile/exp/gl/glutil"
	"golang.org/x/mobile/gl"

	"github.com/AnatoleLucet/sigl/gpu"
	"github.com/AnatoleLucet/sigl/log"
)

var (
	ErrAllocation = errors.New("gles: object allocation failed")
	ErrIncomplete = errors.New("gles: framebuffer incomplete")
)

// Device drives a gl.Context. Like the context itself it must only be used
// from the goroutine the context is current on.
type Device struct {
	glctx gl.Context
	lg    *log.Logger
	caps  gpu.Caps

	renderbuffers map[gpu.ID]gpu.RenderbufferFormat
}

func New(glctx gl.Context, lg *log.Logger) *Device {
	d := &Device{
		glctx:         glctx,
		lg:            lg,
		renderbuffers: make(map[gpu.ID]gpu.RenderbufferFormat),
	}

	d.caps = gpu.Caps{
		Renderer:        glctx.GetString(gl.RENDERER),
		MaxTextureUnits: glctx.GetInteger(gl.MAX_TEXTURE_IMAGE_UNITS),
		MaxTextureSize:  glctx.GetInteger(gl.MAX_TEXTURE_SIZE),
		FloatTextures:   strings.Contains(glctx.GetString(gl.EXTENSIONS), "OES_texture_float"),
	}
	lg.Infof("OpenGL ES renderer %s, %d texture units", d.caps.Renderer, d.caps.MaxTextureUnits)

	return d
}

func (d *Device) Caps() gpu.Caps { return d.caps }

func allocated(kind string, v uint32) (gpu.ID, error) {
	if v == 0 {
		return gpu.InvalidID, fmt.Errorf("%w: %s", ErrAllocation, kind)
	}
	return gpu.ID(v), nil
}

func bufferTarget(t gpu.BufferTarget) gl.Enum {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func bufferUsage(u gpu.BufferUsage) gl.Enum {
	switch u {
	case gpu.DynamicDraw:
		return gl.DYNAMIC_DRAW
	case gpu.StreamDraw:
		return gl.STREAM_DRAW
	default:
		return gl.STATIC_DRAW
	}
}

func (d *Device) NewBuffer() (gpu.ID, error) {
	return allocated("buffer", d.glctx.CreateBuffer().Value)
}

func (d *Device) BufferData(id gpu.ID, target gpu.BufferTarget, data []byte, usage gpu.BufferUsage) {
	t := bufferTarget(target)
	d.glctx.BindBuffer(t, gl.Buffer{Value: uint32(id)})
	d.glctx.BufferData(t, data, bufferUsage(usage))
}

func (d *Device) DeleteBuffer(id gpu.ID) {
	d.glctx.DeleteBuffer(gl.Buffer{Value: uint32(id)})
}

func program(id gpu.ID) gl.Program {
	return gl.Program{Init: true, Value: uint32(id)}
}

func (d *Device) NewProgram(vertex, fragment string) (gpu.ID, error) {
	p, err := glutil.CreateProgram(d.glctx, vertex, fragment)
	if err != nil {
		return gpu.InvalidID, err
	}
	return gpu.ID(p.Value), nil
}

func (d *Device) AttribLocation(p gpu.ID, name string) int {
	// GetAttribLocation reports -1 through an unsigned value.
	return int(int32(d.glctx.GetAttribLocation(program(p), name).Value))
}

func (d *Device) UniformLocation(p gpu.ID, name string) int {
	return int(d.glctx.GetUniformLocation(program(p), name).Value)
}

func (d *Device) DeleteProgram(id gpu.ID) {
	d.glctx.DeleteProgram(program(id))
}

func (d *Device) NewTexture() (gpu.ID, error) {
	return allocated("texture", d.glctx.CreateTexture().Value)
}

func textureFormat(f gpu.TextureFormat) (internal gl.Enum, format gl.Enum, ty gl.Enum) {
	switch f {
	case gpu.RGB:
		return gl.RGB, gl.RGB, gl.UNSIGNED_BYTE
	case gpu.Luminance:
		return gl.LUMINANCE, gl.LUMINANCE, gl.UNSIGNED_BYTE
	case gpu.Alpha:
		return gl.ALPHA, gl.ALPHA, gl.UNSIGNED_BYTE
	case gpu.RGBAFloat:
		return gl.RGBA, gl.RGBA, gl.FLOAT
	default:
		return gl.RGBA, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

func filter(f gpu.Filter) int {
	if f == gpu.Nearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func wrap(w gpu.Wrap) int {
	switch w {
	case gpu.Repeat:
		return gl.REPEAT
	case gpu.MirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func (d *Device) TexImage2D(id gpu.ID, format gpu.TextureFormat, width, height int, pixels []byte, params gpu.TextureParams) {
	internal, f, ty := textureFormat(format)

	d.glctx.BindTexture(gl.TEXTURE_2D, gl.Texture{Value: uint32(id)})
	d.glctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(params.MinFilter))
	d.glctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(params.MagFilter))
	d.glctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap(params.WrapS))
	d.glctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap(params.WrapT))
	d.glctx.TexImage2D(gl.TEXTURE_2D, 0, int(internal), width, height, f, ty, pixels)
}

func (d *Device) DeleteTexture(id gpu.ID) {
	d.glctx.DeleteTexture(gl.Texture{Value: uint32(id)})
}

func (d *Device) NewRenderbuffer() (gpu.ID, error) {
	return allocated("renderbuffer", d.glctx.CreateRenderbuffer().Value)
}

func renderbufferFormat(f gpu.RenderbufferFormat) gl.Enum {
	switch f {
	case gpu.Stencil8:
		return gl.STENCIL_INDEX8
	case gpu.RGBA4:
		return gl.RGBA4
	case gpu.RGB565:
		return gl.RGB565
	case gpu.RGB5A1:
		return gl.RGB5_A1
	default:
		return gl.DEPTH_COMPONENT16
	}
}

func (d *Device) RenderbufferStorage(id gpu.ID, format gpu.RenderbufferFormat, width, height int) {
	d.glctx.BindRenderbuffer(gl.RENDERBUFFER, gl.Renderbuffer{Value: uint32(id)})
	d.glctx.RenderbufferStorage(gl.RENDERBUFFER, renderbufferFormat(format), width, height)
	d.renderbuffers[id] = format
}

func (d *Device) DeleteRenderbuffer(id gpu.ID) {
	d.glctx.DeleteRenderbuffer(gl.Renderbuffer{Value: uint32(id)})
	delete(d.renderbuffers, id)
}

func (d *Device) NewFramebuffer() (gpu.ID, error) {
	return allocated("framebuffer", d.glctx.CreateFramebuffer().Value)
}

func (d *Device) FramebufferAttach(fb, color, depth gpu.ID) error {
	d.glctx.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{Value: uint32(fb)})
	defer d.glctx.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})

	d.glctx.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, gl.Texture{Value: uint32(color)}, 0)
	if depth != gpu.InvalidID {
		attachment := gl.Enum(gl.DEPTH_ATTACHMENT)
		if d.renderbuffers[depth] == gpu.Stencil8 {
			attachment = gl.STENCIL_ATTACHMENT
		}
		d.glctx.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, gl.Renderbuffer{Value: uint32(depth)})
	}

	if status := d.glctx.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", ErrIncomplete, uint32(status))
	}
	return nil
}

func (d *Device) DeleteFramebuffer(id gpu.ID) {
	d.glctx.DeleteFramebuffer(gl.Framebuffer{Value: uint32(id)})
}

func (d *Device) BindFramebuffer(id gpu.ID) {
	d.glctx.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{Value: uint32(id)})
}

func (d *Device) Viewport(x, y, width, height int) {
	d.glctx.Viewport(x, y, width, height)
}

func (d *Device) Clear(r, g, b, a float32) {
	d.glctx.ClearColor(r, g, b, a)
	d.glctx.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *Device) UseProgram(id gpu.ID) {
	d.glctx.UseProgram(program(id))
}

func (d *Device) BindBuffer(target gpu.BufferTarget, id gpu.ID) {
	d.glctx.BindBuffer(bufferTarget(target), gl.Buffer{Value: uint32(id)})
}

func (d *Device) BindTexture(unit int, id gpu.ID) {
	d.glctx.ActiveTexture(gl.TEXTURE0 + gl.Enum(unit))
	d.glctx.BindTexture(gl.TEXTURE_2D, gl.Texture{Value: uint32(id)})
}

func (d *Device) Uniform1i(location, v int) {
	d.glctx.Uniform1i(gl.Uniform{Value: int32(location)}, v)
}

func (d *Device) Uniform4f(location int, v [4]float32) {
	d.glctx.Uniform4f(gl.Uniform{Value: int32(location)}, v[0], v[1], v[2], v[3])
}

func (d *Device) UniformMatrix4(location int, m [16]float32) {
	d.glctx.UniformMatrix4fv(gl.Uniform{Value: int32(location)}, m[:])
}

func (d *Device) EnableVertexAttrib(location, size, stride, offset int) {
	a := gl.Attrib{Value: uint(location)}
	d.glctx.EnableVertexAttribArray(a)
	d.glctx.VertexAttribPointer(a, size, gl.FLOAT, false, stride, offset)
}

func (d *Device) DisableVertexAttrib(location int) {
	d.glctx.DisableVertexAttribArray(gl.Attrib{Value: uint(location)})
}

func drawMode(m gpu.DrawMode) gl.Enum {
	switch m {
	case gpu.Points:
		return gl.POINTS
	case gpu.Lines:
		return gl.LINES
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func (d *Device) DrawArrays(mode gpu.DrawMode, first, count int) {
	d.glctx.DrawArrays(drawMode(mode), first, count)
}

func (d *Device) DrawElements(mode gpu.DrawMode, count int, typ gpu.IndexType, offset int) {
	ty := gl.Enum(gl.UNSIGNED_BYTE)
	if typ == gpu.UnsignedShort {
		ty = gl.UNSIGNED_SHORT
	}
	d.glctx.DrawElements(drawMode(mode), count, ty, offset)
}

func (d *Device) Error() error {
	if e := d.glctx.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("gles: error 0x%x", uint32(e))
	}
	return nil
}

// Release forgets device state. The gl.Context itself belongs to the app.
func (d *Device) Release() {
	clear(d.renderbuffers)
	d.lg.Info("OpenGL ES device released")
}

package gpu

// ID is a backend object name. InvalidID is never handed out by a Device.
type ID uint32

const InvalidID ID = 0

type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

func (t BufferTarget) String() string {
	if t == ElementArrayBuffer {
		return "element_array"
	}
	return "array"
}

type BufferUsage uint8

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
	StreamDraw
)

type TextureFormat uint8

const (
	RGBA TextureFormat = iota
	RGB
	Luminance
	Alpha
	RGBAFloat
)

// BytesPerPixel returns the size of one texel of format f.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case RGBA:
		return 4
	case RGB:
		return 3
	case RGBAFloat:
		return 16
	default:
		return 1
	}
}

func (f TextureFormat) String() string {
	switch f {
	case RGBA:
		return "rgba"
	case RGB:
		return "rgb"
	case Luminance:
		return "luminance"
	case Alpha:
		return "alpha"
	case RGBAFloat:
		return "rgba_float"
	default:
		return "unknown"
	}
}

type Filter uint8

const (
	Linear Filter = iota
	Nearest
)

type Wrap uint8

const (
	ClampToEdge Wrap = iota
	Repeat
	MirroredRepeat
)

type TextureParams struct {
	MinFilter, MagFilter Filter
	WrapS, WrapT         Wrap
}

type RenderbufferFormat uint8

const (
	Depth16 RenderbufferFormat = iota
	Stencil8
	RGBA4
	RGB565
	RGB5A1
)

type DrawMode uint8

const (
	Points DrawMode = iota
	Lines
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

type IndexType uint8

const (
	UnsignedByte IndexType = iota
	UnsignedShort
)

func (t IndexType) Size() int {
	if t == UnsignedShort {
		return 2
	}
	return 1
}

// Caps are the limits a device reports once at context creation.
type Caps struct {
	Renderer        string
	MaxTextureUnits int
	MaxTextureSize  int
	FloatTextures   bool
}

// Device is the low-level GPU backend. It is only ever called from the
// goroutine owning the Context wrapping it. Locations are -1 when the name
// is not active in the program.
type Device interface {
	Caps() Caps

	NewBuffer() (ID, error)
	BufferData(id ID, target BufferTarget, data []byte, usage BufferUsage)
	DeleteBuffer(id ID)

	NewProgram(vertex, fragment string) (ID, error)
	AttribLocation(program ID, name string) int
	UniformLocation(program ID, name string) int
	DeleteProgram(id ID)

	NewTexture() (ID, error)
	TexImage2D(id ID, format TextureFormat, width, height int, pixels []byte, params TextureParams)
	DeleteTexture(id ID)

	NewRenderbuffer() (ID, error)
	RenderbufferStorage(id ID, format RenderbufferFormat, width, height int)
	DeleteRenderbuffer(id ID)

	NewFramebuffer() (ID, error)
	// FramebufferAttach attaches color and, when valid, depth to fb and
	// reports an error if the result is not complete.
	FramebufferAttach(fb, color, depth ID) error
	DeleteFramebuffer(id ID)

	BindFramebuffer(id ID)
	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	UseProgram(id ID)
	BindBuffer(target BufferTarget, id ID)
	BindTexture(unit int, id ID)
	Uniform1i(location, v int)
	Uniform4f(location int, v [4]float32)
	UniformMatrix4(location int, m [16]float32)
	EnableVertexAttrib(location, size, stride, offset int)
	DisableVertexAttrib(location int)
	DrawArrays(mode DrawMode, first, count int)
	DrawElements(mode DrawMode, count int, typ IndexType, offset int)

	// Error returns and clears the sticky backend error, if any.
	Error() error
	Release()
}

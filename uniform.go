package postfx

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
)

// Uniform is a named shader input. Value may be a scalar, an mgl32 vector
// or matrix, a gputypes.Color, or a texture (backend.Texture or
// *TextureResource), which binds as a sampled texture instead of a field of
// the uniform block.
type Uniform struct {
	Value any
}

// NewUniform returns a uniform holding v.
func NewUniform(v any) *Uniform {
	return &Uniform{Value: v}
}

// IsTexture reports whether the uniform binds a texture.
func (u *Uniform) IsTexture() bool {
	switch u.Value.(type) {
	case backend.Texture, *TextureResource:
		return true
	}
	return false
}

// Texture returns the bound texture, resolving resources.
func (u *Uniform) Texture() backend.Texture {
	switch v := u.Value.(type) {
	case backend.Texture:
		return v
	case *TextureResource:
		if v != nil {
			return v.Value()
		}
	}
	return nil
}

// wgslLayout returns the WGSL type, size and alignment of a uniform value
// in the uniform address space.
func wgslLayout(v any) (typ string, size, align int, err error) {
	switch v.(type) {
	case float32, float64:
		return "f32", 4, 4, nil
	case int32, int:
		return "i32", 4, 4, nil
	case uint32, bool:
		return "u32", 4, 4, nil
	case mgl32.Vec2:
		return "vec2<f32>", 8, 8, nil
	case mgl32.Vec3:
		return "vec3<f32>", 12, 16, nil
	case mgl32.Vec4, gputypes.Color:
		return "vec4<f32>", 16, 16, nil
	case mgl32.Mat3:
		return "mat3x3<f32>", 48, 16, nil
	case mgl32.Mat4:
		return "mat4x4<f32>", 64, 16, nil
	}
	return "", 0, 0, fmt.Errorf("%w: %T", ErrUnsupportedUniform, v)
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// UniformField is one member of a UniformBlock.
type UniformField struct {
	Name    string
	Type    string
	Offset  int
	Size    int
	Uniform *Uniform
}

// UniformBlock lays out uniforms as a WGSL struct and packs their values.
// The type of each field is fixed by the value it holds when added.
type UniformBlock struct {
	fields []UniformField
	index  map[string]int
	end    int
}

// NewUniformBlock returns an empty block.
func NewUniformBlock() *UniformBlock {
	return &UniformBlock{index: make(map[string]int)}
}

// Add appends a field. Texture uniforms are rejected.
func (b *UniformBlock) Add(name string, u *Uniform) error {
	if _, dup := b.index[name]; dup {
		return fmt.Errorf("postfx: duplicate uniform %q", name)
	}
	typ, size, align, err := wgslLayout(u.Value)
	if err != nil {
		return fmt.Errorf("uniform %q: %w", name, err)
	}
	off := alignUp(b.end, align)
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, UniformField{Name: name, Type: typ, Offset: off, Size: size, Uniform: u})
	b.end = off + size
	return nil
}

// Fields returns the fields in declaration order.
func (b *UniformBlock) Fields() []UniformField {
	return b.fields
}

// Field returns the field called name.
func (b *UniformBlock) Field(name string) (UniformField, bool) {
	i, ok := b.index[name]
	if !ok {
		return UniformField{}, false
	}
	return b.fields[i], true
}

// Size returns the block size rounded up to 16 bytes, at least 16.
func (b *UniformBlock) Size() int {
	return max(16, alignUp(b.end, 16))
}

// Declaration returns the WGSL struct declaration.
func (b *UniformBlock) Declaration(structName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "struct %s {\n", structName)
	for _, f := range b.fields {
		fmt.Fprintf(&sb, "\t%s: %s,\n", f.Name, f.Type)
	}
	if len(b.fields) == 0 {
		sb.WriteString("\tpadding: vec4<f32>,\n")
	}
	sb.WriteString("};\n")
	return sb.String()
}

// Pack writes the current values into dst, growing it as needed, and
// returns the packed block.
func (b *UniformBlock) Pack(dst []byte) ([]byte, error) {
	size := b.Size()
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	clear(dst)

	for _, f := range b.fields {
		typ, _, _, err := wgslLayout(f.Uniform.Value)
		if err != nil || typ != f.Type {
			return nil, fmt.Errorf("postfx: uniform %q changed type from %s to %T", f.Name, f.Type, f.Uniform.Value)
		}
		putValue(dst[f.Offset:], f.Uniform.Value)
	}
	return dst, nil
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func putValue(dst []byte, v any) {
	switch x := v.(type) {
	case float32:
		putF32(dst, x)
	case float64:
		putF32(dst, float32(x))
	case int32:
		binary.LittleEndian.PutUint32(dst, uint32(x))
	case int:
		binary.LittleEndian.PutUint32(dst, uint32(int32(x)))
	case uint32:
		binary.LittleEndian.PutUint32(dst, x)
	case bool:
		if x {
			binary.LittleEndian.PutUint32(dst, 1)
		}
	case mgl32.Vec2:
		putF32(dst, x[0])
		putF32(dst[4:], x[1])
	case mgl32.Vec3:
		for i := range 3 {
			putF32(dst[4*i:], x[i])
		}
	case mgl32.Vec4:
		for i := range 4 {
			putF32(dst[4*i:], x[i])
		}
	case gputypes.Color:
		putF32(dst, float32(x.R))
		putF32(dst[4:], float32(x.G))
		putF32(dst[8:], float32(x.B))
		putF32(dst[12:], float32(x.A))
	case mgl32.Mat3:
		// Each column is a vec3 padded to 16 bytes.
		for c := range 3 {
			for r := range 3 {
				putF32(dst[16*c+4*r:], x[3*c+r])
			}
		}
	case mgl32.Mat4:
		for i := range 16 {
			putF32(dst[4*i:], x[i])
		}
	}
}

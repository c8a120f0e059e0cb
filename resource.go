package postfx

import (
	"fmt"
	"reflect"

	"github.com/gogpu/postfx/backend"
)

// Disposable is anything the ResourceManager can reclaim.
type Disposable interface {
	Dispose()
	IsDisposed() bool
}

// Resource wraps one GPU object shared between passes.
//
// A Resource is referenced by pointer from any number of Input and Output
// maps. Set replaces the wrapped value in place so every holder observes
// the change without rewiring.
type Resource[T backend.Destroyer] struct {
	value     T
	owned     bool
	disposed  bool
	observers []func(T)
	uniforms  []*Uniform
}

// TextureResource wraps a sampled texture.
type TextureResource = Resource[backend.Texture]

// RenderTargetResource wraps a render target.
type RenderTargetResource = Resource[backend.RenderTarget]

// NewResource returns a resource that owns value: Dispose destroys it.
func NewResource[T backend.Destroyer](value T) *Resource[T] {
	return &Resource[T]{value: value, owned: true}
}

// NewBorrowedResource returns a resource whose value is owned elsewhere,
// such as an attachment of a render target. Dispose only drops the
// reference.
func NewBorrowedResource[T backend.Destroyer](value T) *Resource[T] {
	return &Resource[T]{value: value}
}

// Value returns the wrapped value, or the zero value once disposed.
func (r *Resource[T]) Value() T {
	return r.value
}

// Set replaces the wrapped value, updates bound uniforms and notifies
// observers. The previous value is not destroyed. Setting a disposed
// resource is ignored.
func (r *Resource[T]) Set(value T) {
	if r.disposed {
		lifetimeViolation("set on disposed resource")
		return
	}
	r.value = value
	for _, u := range r.uniforms {
		u.Value = value
	}
	for _, fn := range r.observers {
		fn(value)
	}
}

// OnChange registers fn to run after every Set.
func (r *Resource[T]) OnChange(fn func(T)) {
	r.observers = append(r.observers, fn)
}

// BindUniform makes u track the wrapped value.
func (r *Resource[T]) BindUniform(u *Uniform) {
	u.Value = r.value
	r.uniforms = append(r.uniforms, u)
}

// Owned reports whether Dispose destroys the wrapped value.
func (r *Resource[T]) Owned() bool {
	return r.owned
}

// IsDisposed reports whether Dispose was called.
func (r *Resource[T]) IsDisposed() bool {
	return r.disposed
}

// Dispose destroys an owned value and drops the reference.
// Calling Dispose more than once is a no-op.
func (r *Resource[T]) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.owned && !isNil(r.value) {
		r.value.Destroy()
	}
	var zero T
	r.value = zero
	for _, u := range r.uniforms {
		u.Value = nil
	}
	r.uniforms = nil
	r.observers = nil
}

func (r *Resource[T]) String() string {
	state := "live"
	if r.disposed {
		state = "disposed"
	}
	return fmt.Sprintf("Resource(%T, %s)", r.value, state)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// lifetimeViolation panics in postfxdebug builds and logs otherwise.
func lifetimeViolation(msg string) {
	if debugAssertions {
		panic("postfx: " + msg)
	}
	Logger().Warn("postfx: " + msg)
}

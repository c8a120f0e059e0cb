package backend

import (
	"errors"
	"testing"
)

func TestErrorsAreDistinct(t *testing.T) {
	errs := []error{ErrUnsupported, ErrDestroyed, ErrInvalidSize, ErrNoScreen}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true, want false", a, b)
			}
		}
	}
}

func TestBindingLayout(t *testing.T) {
	if BindingUniforms == BindingSampler || BindingFirstTexture <= BindingSampler {
		t.Errorf("bindings overlap: uniforms=%d sampler=%d first texture=%d",
			BindingUniforms, BindingSampler, BindingFirstTexture)
	}
}

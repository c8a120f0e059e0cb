package shader

import (
	"errors"
	"strings"
	"testing"
)

func TestPreprocessConditionals(t *testing.T) {
	src := `a
#ifdef DEPTH
b
#else
c
#endif
#ifndef DEPTH
d
#endif
e`
	tests := []struct {
		name    string
		defines map[string]string
		want    []string
		absent  []string
	}{
		{"defined", map[string]string{"DEPTH": ""}, []string{"a", "b", "e"}, []string{"c", "d"}},
		{"undefined", nil, []string{"a", "c", "d", "e"}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPreprocessor(nil).Process(src, tt.defines)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			lines := strings.Fields(got)
			has := make(map[string]bool)
			for _, l := range lines {
				has[l] = true
			}
			for _, w := range tt.want {
				if !has[w] {
					t.Errorf("output %q missing %q", got, w)
				}
			}
			for _, a := range tt.absent {
				if has[a] {
					t.Errorf("output %q contains %q", got, a)
				}
			}
		})
	}
}

func TestPreprocessNested(t *testing.T) {
	src := `#ifdef A
#ifdef B
ab
#else
a_only
#endif
#else
#ifdef B
hidden
#endif
none
#endif`
	got, err := NewPreprocessor(nil).Process(src, map[string]string{"A": ""})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if strings.TrimSpace(got) != "a_only" {
		t.Errorf("Process = %q, want a_only", got)
	}
}

func TestPreprocessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unterminated", "#ifdef A\nx", ErrUnterminatedConditional},
		{"stray endif", "#endif", ErrUnexpectedDirective},
		{"stray else", "#else", ErrUnexpectedDirective},
		{"double else", "#ifdef A\n#else\n#else\n#endif", ErrUnexpectedDirective},
		{"unknown", "#pragma once", ErrUnexpectedDirective},
		{"missing chunk", "#include <nope>", ErrUnknownChunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreprocessor(NewRegistry()).Process(tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Process error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPreprocessSubstitution(t *testing.T) {
	src := "let n = SAMPLES;\nlet m = v.SAMPLES;\n#define SCALE 2.0\nlet s = SCALE;"
	got, err := NewPreprocessor(nil).Process(src, map[string]string{"SAMPLES": "8"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, want := range []string{"let n = 8;", "let m = v.SAMPLES;", "let s = 2.0;"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestPreprocessInclude(t *testing.T) {
	reg := NewRegistry().Init()
	if err := reg.Register("a", "#include <b>\nfn a() {}"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("b", "fn b() {}"); err != nil {
		t.Fatal(err)
	}

	got, err := NewPreprocessor(reg).Process("#include <a>\n#include <fullscreen_vertex>", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if i, j := strings.Index(got, "fn b()"), strings.Index(got, "fn a()"); i < 0 || j < 0 || i > j {
		t.Errorf("include order wrong in %q", got)
	}
	if !strings.Contains(got, "fn vs_main") {
		t.Error("built-in fullscreen chunk not expanded")
	}
}

func TestPreprocessIncludeCycle(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register("x", "#include <y>")
	_ = reg.Register("y", "#include <x>")
	if _, err := NewPreprocessor(reg).Process("#include <x>", nil); !errors.Is(err, ErrIncludeCycle) {
		t.Errorf("Process error = %v, want ErrIncludeCycle", err)
	}
}

func TestRegistryInitIdempotent(t *testing.T) {
	reg := NewRegistry()
	if len(reg.Names()) != 0 {
		t.Fatalf("new registry has chunks: %v", reg.Names())
	}
	reg.Init()
	_ = reg.Register(ChunkColorUtils, "override")
	reg.Init()
	if src, _ := reg.Chunk(ChunkColorUtils); src != "override" {
		t.Errorf("second Init replaced registered chunk: %q", src)
	}
	if err := reg.Register("", "x"); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("Register(\"\") error = %v, want ErrInvalidChunk", err)
	}
}

func TestReplaceIdentifiers(t *testing.T) {
	src := "fn mainImage(c: vec4<f32>) -> vec4<f32> { return c * 1e5 + s.mainImage; } // mainImage"
	got := ReplaceIdentifiers(src, func(id string) (string, bool) {
		if id == "mainImage" {
			return "fx1_mainImage", true
		}
		return "", false
	})
	want := "fn fx1_mainImage(c: vec4<f32>) -> vec4<f32> { return c * 1e5 + s.mainImage; } // mainImage"
	if got != want {
		t.Errorf("ReplaceIdentifiers =\n%s\nwant\n%s", got, want)
	}
}

func TestIdentifiers(t *testing.T) {
	got := Identifiers("let a = b + a.c;")
	want := []string{"let", "a", "b"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Identifiers = %v, want %v", got, want)
	}
}

package config

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(`
auto_render_to_screen = false

[resolution]
width = 640
height = -1
pixel_ratio = 2.0

[effects]
max_optional_effects = 4
fallback_cache_size = 3

[buffers]
frame_buffer_type = "half-float"

[log]
level = "debug"
`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.AutoRenderToScreen {
		t.Error("AutoRenderToScreen = true, want false")
	}
	if cfg.Resolution.Width != 640 || cfg.Resolution.Height != -1 {
		t.Errorf("Resolution = %+v, want 640x-1", cfg.Resolution)
	}
	if cfg.Resolution.PixelRatio != 2 {
		t.Errorf("PixelRatio = %v, want 2", cfg.Resolution.PixelRatio)
	}
	if cfg.Effects.MaxOptionalEffects != 4 || cfg.Effects.FallbackCacheSize != 3 {
		t.Errorf("Effects = %+v", cfg.Effects)
	}
	if cfg.Buffers.FrameBufferType != FrameBufferHalfFloat {
		t.Errorf("FrameBufferType = %q, want %q", cfg.Buffers.FrameBufferType, FrameBufferHalfFloat)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, %v, want DEBUG", level, err)
	}
}

func TestDecodePartialKeepsDefaults(t *testing.T) {
	cfg, err := Decode("[effects]\nfallback_cache_size = 2\n")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Effects.MaxOptionalEffects != 6 {
		t.Errorf("MaxOptionalEffects = %d, want 6", cfg.Effects.MaxOptionalEffects)
	}
	if !cfg.AutoRenderToScreen {
		t.Error("AutoRenderToScreen = false, want default true")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "colour = 1\n"},
		{"bad frame buffer", "[buffers]\nframe_buffer_type = \"float64\"\n"},
		{"bad ratio", "[resolution]\npixel_ratio = 0.0\n"},
		{"bad fallback", "[effects]\nfallback_cache_size = 0\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad width", "[resolution]\nwidth = -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Decode() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postfx", "config.toml")
	cfg := Default()
	cfg.Resolution.Width = 800
	cfg.Buffers.FrameBufferType = FrameBufferHalfFloat
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != *cfg {
		t.Errorf("Load() = %+v, want %+v", got, cfg)
	}
}

// Package config loads postfx pipeline settings from TOML.
//
// Example file:
//
//	auto_render_to_screen = true
//
//	[resolution]
//	width = 1280
//	height = -1
//	pixel_ratio = 2.0
//
//	[effects]
//	max_optional_effects = 6
//	fallback_cache_size = 1
//
//	[buffers]
//	frame_buffer_type = "half-float"
//
//	[log]
//	level = "debug"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Frame buffer type names.
const (
	FrameBufferUnsignedByte = "unsigned-byte"
	FrameBufferHalfFloat    = "half-float"
)

// Config holds pipeline settings.
type Config struct {
	AutoRenderToScreen bool       `toml:"auto_render_to_screen"`
	Resolution         Resolution `toml:"resolution"`
	Effects            Effects    `toml:"effects"`
	Buffers            Buffers    `toml:"buffers"`
	Log                Log        `toml:"log"`
}

// Resolution sets the preferred render size of every pass. -1 derives a
// dimension from the other one and the aspect ratio; 0 leaves the
// preferred size alone.
type Resolution struct {
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	PixelRatio float64 `toml:"pixel_ratio"`
}

// Effects configures the material cache.
type Effects struct {
	MaxOptionalEffects int `toml:"max_optional_effects"`
	FallbackCacheSize  int `toml:"fallback_cache_size"`
}

// Buffers configures intermediate buffers.
type Buffers struct {
	FrameBufferType string `toml:"frame_buffer_type"`
}

// Log configures the library logger.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		AutoRenderToScreen: true,
		Resolution:         Resolution{PixelRatio: 1},
		Effects:            Effects{MaxOptionalEffects: 6, FallbackCacheSize: 1},
		Buffers:            Buffers{FrameBufferType: FrameBufferUnsignedByte},
		Log:                Log{Level: "info"},
	}
}

// Decode parses TOML on top of the defaults.
func Decode(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Decode(string(data))
}

// Encode returns cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(c.Resolution.Width >= -1, "resolution.width %d", c.Resolution.Width)
	check(c.Resolution.Height >= -1, "resolution.height %d", c.Resolution.Height)
	check(c.Resolution.PixelRatio > 0, "resolution.pixel_ratio %v", c.Resolution.PixelRatio)
	check(c.Effects.MaxOptionalEffects >= 0 && c.Effects.MaxOptionalEffects <= 16,
		"effects.max_optional_effects %d not in [0, 16]", c.Effects.MaxOptionalEffects)
	check(c.Effects.FallbackCacheSize >= 1, "effects.fallback_cache_size %d", c.Effects.FallbackCacheSize)
	switch c.Buffers.FrameBufferType {
	case FrameBufferUnsignedByte, FrameBufferHalfFloat:
	default:
		check(false, "buffers.frame_buffer_type %q", c.Buffers.FrameBufferType)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the log level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

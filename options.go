package postfx

import (
	"github.com/gogpu/postfx/config"
)

// PipelineOption configures a RenderPipeline during creation.
//
// Example:
//
//	rm := postfx.NewResourceManager()
//	pl := postfx.NewRenderPipeline(b,
//	    postfx.WithResourceManager(rm),
//	    postfx.WithFrameBufferType(postfx.FrameBufferHalfFloat),
//	)
type PipelineOption func(*RenderPipeline)

// WithResourceManager registers the pipeline with rm.
func WithResourceManager(rm *ResourceManager) PipelineOption {
	return func(pl *RenderPipeline) {
		pl.resources = rm
	}
}

// WithAutoRenderToScreen controls whether the last enabled pass draws to
// the screen. It is on by default.
func WithAutoRenderToScreen(v bool) PipelineOption {
	return func(pl *RenderPipeline) {
		pl.autoRenderToScreen = v
	}
}

// WithFrameBufferType sets the precision of intermediate buffers.
func WithFrameBufferType(t FrameBufferType) PipelineOption {
	return func(pl *RenderPipeline) {
		pl.frameBufferType = t
	}
}

// WithGBufferConfig sets the G-Buffer config handed to every pass input.
// By default NewGBufferConfig is used.
func WithGBufferConfig(cfg *GBufferConfig) PipelineOption {
	return func(pl *RenderPipeline) {
		pl.gBufferConfig = cfg
	}
}

// WithMaterialOptions sets options applied to the material manager of
// every EffectPass added to the pipeline.
func WithMaterialOptions(opts ...MaterialManagerOption) PipelineOption {
	return func(pl *RenderPipeline) {
		pl.materialOptions = append(pl.materialOptions, opts...)
	}
}

// WithConfig applies file based settings. The log level is applied to the
// logger installed with SetLogger by the caller, not here.
func WithConfig(cfg *config.Config) PipelineOption {
	return func(pl *RenderPipeline) {
		if cfg == nil {
			return
		}
		pl.autoRenderToScreen = cfg.AutoRenderToScreen
		if t, err := ParseFrameBufferType(cfg.Buffers.FrameBufferType); err == nil {
			pl.frameBufferType = t
		}
		if cfg.Resolution.PixelRatio > 0 {
			pl.resolution.SetPixelRatio(cfg.Resolution.PixelRatio)
		}
		if cfg.Resolution.Width != 0 || cfg.Resolution.Height != 0 {
			pl.preferredWidth = preferredDimension(cfg.Resolution.Width)
			pl.preferredHeight = preferredDimension(cfg.Resolution.Height)
			pl.hasPreferred = true
		}
		pl.materialOptions = append(pl.materialOptions,
			WithMaxOptionalEffects(cfg.Effects.MaxOptionalEffects),
			WithFallbackCacheSize(cfg.Effects.FallbackCacheSize),
		)
	}
}

// preferredDimension maps an unset config dimension to AutoSize.
func preferredDimension(v int) int {
	if v == 0 {
		return AutoSize
	}
	return v
}

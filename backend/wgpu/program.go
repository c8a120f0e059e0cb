// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/wgpu/hal"
)

// Program is a shader module with its bind group layout and the render
// pipelines created for it so far.
type Program struct {
	device      hal.Device
	label       string
	source      string
	spirv       []uint32
	textures    []backend.TextureSlot
	declared    int
	uniformSize uint64

	module     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[string]hal.RenderPipeline
	destroyed  bool
}

var _ backend.Program = (*Program)(nil)

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Source returns the preprocessed WGSL.
func (p *Program) Source() string { return p.source }

// SPIRV returns the compiled words, or nil when the module was created
// from WGSL.
func (p *Program) SPIRV() []uint32 { return p.spirv }

// Pipelines returns the number of render pipelines created so far.
func (p *Program) Pipelines() int { return len(p.pipelines) }

// Destroyed reports whether Destroy was called.
func (p *Program) Destroyed() bool { return p.destroyed }

// createModule creates the shader module, the bind group layout and the
// pipeline layout.
func (p *Program) createModule() error {
	src := hal.ShaderSource{WGSL: p.source}
	if p.spirv != nil {
		src = hal.ShaderSource{SPIRV: p.spirv}
	}
	module, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.label + "_shader",
		Source: src,
	})
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", p.label, err)
	}
	p.module = module

	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    backend.BindingUniforms,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    backend.BindingSampler,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	for i, slot := range p.textures {
		sampleType := gputypes.TextureSampleTypeFloat
		if slot.Depth {
			sampleType = gputypes.TextureSampleTypeDepth
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(backend.BindingFirstTexture + i),
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    sampleType,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.label + "_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create %s bind group layout: %w", p.label, err)
	}
	p.layout = layout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline layout: %w", p.label, err)
	}
	p.pipeLayout = pipeLayout
	return nil
}

// pipeline returns the render pipeline for formats, creating it on first
// use.
func (p *Program) pipeline(key string, formats []gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}
	targets := make([]gputypes.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = gputypes.ColorTargetState{Format: f, WriteMask: gputypes.ColorWriteMaskAll}
	}
	pl, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", p.label, err)
	}
	if p.pipelines == nil {
		p.pipelines = make(map[string]hal.RenderPipeline)
	}
	p.pipelines[key] = pl
	return pl, nil
}

// Destroy releases the pipelines and layouts in reverse creation order.
func (p *Program) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	for key, pl := range p.pipelines {
		p.device.DestroyRenderPipeline(pl)
		delete(p.pipelines, key)
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.module != nil {
		p.device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/wgpu/hal"
)

const (
	colorUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
		gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	depthUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
)

// Texture is a HAL texture with its default view.
type Texture struct {
	device    hal.Device
	label     string
	width     int
	height    int
	format    gputypes.TextureFormat
	tex       hal.Texture
	view      hal.TextureView
	destroyed bool
}

var _ backend.Texture = (*Texture)(nil)

func newTexture(device hal.Device, label string, w, h int, format gputypes.TextureFormat) (*Texture, error) {
	usage := colorUsage
	aspect := gputypes.TextureAspectAll
	if format.HasDepth() {
		usage = depthUsage
		aspect = gputypes.TextureAspectDepthOnly
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     label + "_view",
		Format:    format,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    aspect,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, err
	}
	return &Texture{
		device: device,
		label:  label,
		width:  w,
		height: h,
		format: format,
		tex:    tex,
		view:   view,
	}, nil
}

// Width returns the texture width.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height.
func (t *Texture) Height() int { return t.height }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Raw returns the HAL texture, for hosts that copy into a surface.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the default view.
func (t *Texture) View() hal.TextureView { return t.view }

// Destroyed reports whether Destroy was called.
func (t *Texture) Destroyed() bool { return t.destroyed }

// Destroy releases the view and the texture. Calling it twice is safe.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

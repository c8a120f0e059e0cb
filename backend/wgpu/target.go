// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"strconv"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/wgpu/hal"
)

// RenderTarget is a set of HAL textures drawn into together.
type RenderTarget struct {
	device      hal.Device
	label       string
	width       int
	height      int
	formats     []gputypes.TextureFormat
	depthFormat gputypes.TextureFormat
	colors      []backend.Texture
	depth       *Texture
	allocations int
	destroyed   bool
}

var _ backend.RenderTarget = (*RenderTarget)(nil)

func newRenderTarget(device hal.Device, desc backend.RenderTargetDescriptor) (*RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", backend.ErrInvalidSize, desc.Width, desc.Height)
	}
	for _, f := range desc.ColorFormats {
		if f == gputypes.TextureFormatUndefined || f.IsDepthStencil() {
			return nil, fmt.Errorf("%w: color format %v", backend.ErrUnsupported, f)
		}
	}
	if desc.DepthFormat != gputypes.TextureFormatUndefined && !desc.DepthFormat.HasDepth() {
		return nil, fmt.Errorf("%w: depth format %v", backend.ErrUnsupported, desc.DepthFormat)
	}

	rt := &RenderTarget{
		device:      device,
		label:       desc.Label,
		formats:     append([]gputypes.TextureFormat(nil), desc.ColorFormats...),
		depthFormat: desc.DepthFormat,
	}
	if err := rt.allocate(desc.Width, desc.Height); err != nil {
		return nil, err
	}
	return rt, nil
}

// allocate creates every attachment at w x h. On failure nothing created
// by this call is kept.
func (rt *RenderTarget) allocate(w, h int) error {
	colors := make([]backend.Texture, 0, len(rt.formats))
	fail := func(err error) error {
		for _, c := range colors {
			c.Destroy()
		}
		return fmt.Errorf("allocate %q: %w", rt.label, err)
	}
	for i, f := range rt.formats {
		tex, err := newTexture(rt.device, rt.label+".color"+strconv.Itoa(i), w, h, f)
		if err != nil {
			return fail(err)
		}
		colors = append(colors, tex)
	}
	var depth *Texture
	if rt.depthFormat != gputypes.TextureFormatUndefined {
		var err error
		depth, err = newTexture(rt.device, rt.label+".depth", w, h, rt.depthFormat)
		if err != nil {
			return fail(err)
		}
	}

	rt.release()
	rt.colors = colors
	rt.depth = depth
	rt.width, rt.height = w, h
	rt.allocations++
	return nil
}

func (rt *RenderTarget) release() {
	for _, c := range rt.colors {
		c.Destroy()
	}
	rt.colors = nil
	if rt.depth != nil {
		rt.depth.Destroy()
		rt.depth = nil
	}
}

// Label returns the debug label.
func (rt *RenderTarget) Label() string { return rt.label }

// Width returns the attachment width.
func (rt *RenderTarget) Width() int { return rt.width }

// Height returns the attachment height.
func (rt *RenderTarget) Height() int { return rt.height }

// ColorAttachments returns the color textures in location order.
func (rt *RenderTarget) ColorAttachments() []backend.Texture { return rt.colors }

// DepthAttachment returns the depth texture or nil.
func (rt *RenderTarget) DepthAttachment() backend.Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}

// Formats returns the color formats in location order.
func (rt *RenderTarget) Formats() []gputypes.TextureFormat { return rt.formats }

// Allocations returns how many times attachments were created.
func (rt *RenderTarget) Allocations() int { return rt.allocations }

// Destroyed reports whether Destroy was called.
func (rt *RenderTarget) Destroyed() bool { return rt.destroyed }

// Resize reallocates the attachments. Resizing to the current size is a
// no-op.
func (rt *RenderTarget) Resize(width, height int) error {
	if rt.destroyed {
		return fmt.Errorf("render target %q: %w", rt.label, backend.ErrDestroyed)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", backend.ErrInvalidSize, width, height)
	}
	if width == rt.width && height == rt.height {
		return nil
	}
	return rt.allocate(width, height)
}

// Destroy releases every attachment.
func (rt *RenderTarget) Destroy() {
	if rt.destroyed {
		return
	}
	rt.destroyed = true
	rt.release()
}

// colorViews returns the color views and the pipeline key of the format set.
func (rt *RenderTarget) colorViews() ([]hal.TextureView, string) {
	views := make([]hal.TextureView, len(rt.colors))
	for i, c := range rt.colors {
		views[i] = c.(*Texture).view
	}
	return views, formatKey(rt.formats)
}

func formatKey(formats []gputypes.TextureFormat) string {
	key := make([]byte, 0, len(formats)*4)
	for i, f := range formats {
		if i > 0 {
			key = append(key, ',')
		}
		key = strconv.AppendUint(key, uint64(f), 16)
	}
	return string(key)
}

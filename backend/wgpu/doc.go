// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements backend.Backend on the gogpu/wgpu hardware
// abstraction layer.
//
// The backend works directly with hal.Device and hal.Queue, so it runs on
// every HAL implementation (Vulkan, Metal, DX12, GLES, software and noop).
// Programs are preprocessed with the shader package and handed to the
// device either as WGSL or, when a shader.Compiler is configured, as SPIR-V
// produced by naga.
//
// Render pipelines are created lazily, one per distinct set of color
// formats a program draws into. Per-draw uniform buffers and bind groups
// are released once the queue reports their submission as completed.
//
// The backend owns an offscreen screen target. Hosts that present to a
// surface copy [Backend.Screen] into the swapchain texture after each frame.
//
// Construct a backend from an existing device:
//
//	b, err := wgpu.New(device, queue, wgpu.WithScreenFormat(gputypes.TextureFormatBGRA8Unorm))
//
// or from a gpucontext.DeviceProvider that exposes its HAL objects:
//
//	b, err := wgpu.NewFromProvider(app)
package wgpu

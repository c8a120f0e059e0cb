// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides the bounded LRU used for compiled programs.
//
// Unlike a soft-limit cache, an LRU never holds more than its capacity:
// the least recently used entry is evicted before a new one is stored and
// the eviction callback receives it so GPU objects can be released.
//
//	c := cache.New[string, *Program](1)
//	c.OnEvict(func(key string, p *Program) { p.Destroy() })
//	c.Set("0101", prog)
//	p, ok := c.Get("0101")
//
// LRU is safe for concurrent use and must not be copied after creation.
package cache

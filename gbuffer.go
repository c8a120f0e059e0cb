package postfx

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
)

// GBufferComponent is a semantic render target attachment.
type GBufferComponent int

// G-Buffer components. The numeric order is the canonical attachment order.
const (
	GBufferColor GBufferComponent = iota
	GBufferDepth
	GBufferNormal
	GBufferORM // occlusion, roughness, metalness
	GBufferEmission
	GBufferVelocity
)

var componentNames = [...]string{"COLOR", "DEPTH", "NORMAL", "ORM", "EMISSION", "VELOCITY"}

func (c GBufferComponent) String() string {
	if c >= 0 && int(c) < len(componentNames) {
		return componentNames[c]
	}
	return "GBufferComponent(" + strconv.Itoa(int(c)) + ")"
}

// BufferName returns the Output buffer key under which the component's
// texture is published.
func (c GBufferComponent) BufferName() string {
	switch c {
	case GBufferColor:
		return BufferDefault
	case GBufferDepth:
		return BufferDepth
	}
	name := strings.ToLower(c.String())
	return "gBuffer" + strings.ToUpper(name[:1]) + name[1:]
}

// GData is a per-pixel value decoded from one or more components.
type GData int

// G-Data fields.
const (
	GDataColor GData = iota
	GDataDepth
	GDataNormal
	GDataOcclusion
	GDataRoughness
	GDataMetalness
	GDataEmission
	GDataPosition
	GDataVelocity
)

var gDataNames = [...]string{"color", "depth", "normal", "occlusion", "roughness", "metalness", "emission", "position", "velocity"}

func (d GData) String() string {
	if d >= 0 && int(d) < len(gDataNames) {
		return gDataNames[d]
	}
	return "GData(" + strconv.Itoa(int(d)) + ")"
}

// TextureConfig describes the texture of one component.
type TextureConfig struct {
	Format gputypes.TextureFormat

	// Depth marks the depth attachment. It has no color location.
	Depth bool
}

// GBufferConfig describes how components map to textures and shader code.
type GBufferConfig struct {
	TextureConfigs map[GBufferComponent]TextureConfig

	// StructFields names the WGSL variable bound for each component.
	StructFields map[GBufferComponent]string

	// BindingDeclarations holds the WGSL type of each component binding.
	// Textures cannot be struct members in WGSL, so components are declared
	// as module-scope bindings.
	BindingDeclarations map[GBufferComponent]string

	// DataStructDeclaration holds the GData struct member of each field.
	DataStructDeclaration map[GData]string

	// DataStructInitialization holds the statement that fills each field
	// inside readGData. Statements may use uv, coord and data.
	DataStructInitialization map[GData]string

	// DataDependencies lists fields that must be initialized first.
	DataDependencies map[GData][]GData

	// DataBufferSources maps fields to the component they are read from.
	// Derived fields, such as position, have no entry.
	DataBufferSources map[GData]GBufferComponent
}

// NewGBufferConfig returns the default configuration.
func NewGBufferConfig() *GBufferConfig {
	return &GBufferConfig{
		TextureConfigs: map[GBufferComponent]TextureConfig{
			GBufferColor:    {Format: gputypes.TextureFormatRGBA8Unorm},
			GBufferDepth:    {Format: gputypes.TextureFormatDepth24Plus, Depth: true},
			GBufferNormal:   {Format: gputypes.TextureFormatRGBA16Float},
			GBufferORM:      {Format: gputypes.TextureFormatRGBA8Unorm},
			GBufferEmission: {Format: gputypes.TextureFormatRGBA16Float},
			GBufferVelocity: {Format: gputypes.TextureFormatRG16Float},
		},
		StructFields: map[GBufferComponent]string{
			GBufferColor:    "gBufferColor",
			GBufferDepth:    "gBufferDepth",
			GBufferNormal:   "gBufferNormal",
			GBufferORM:      "gBufferORM",
			GBufferEmission: "gBufferEmission",
			GBufferVelocity: "gBufferVelocity",
		},
		BindingDeclarations: map[GBufferComponent]string{
			GBufferColor:    "texture_2d<f32>",
			GBufferDepth:    "texture_depth_2d",
			GBufferNormal:   "texture_2d<f32>",
			GBufferORM:      "texture_2d<f32>",
			GBufferEmission: "texture_2d<f32>",
			GBufferVelocity: "texture_2d<f32>",
		},
		DataStructDeclaration: map[GData]string{
			GDataColor:     "color: vec4<f32>",
			GDataDepth:     "depth: f32",
			GDataNormal:    "normal: vec3<f32>",
			GDataOcclusion: "occlusion: f32",
			GDataRoughness: "roughness: f32",
			GDataMetalness: "metalness: f32",
			GDataEmission:  "emission: vec3<f32>",
			GDataPosition:  "position: vec3<f32>",
			GDataVelocity:  "velocity: vec2<f32>",
		},
		DataStructInitialization: map[GData]string{
			GDataColor:     "data.color = textureLoad(gBufferColor, coord, 0);",
			GDataDepth:     "data.depth = textureLoad(gBufferDepth, coord, 0);",
			GDataNormal:    "data.normal = normalize(textureLoad(gBufferNormal, coord, 0).xyz * 2.0 - 1.0);",
			GDataOcclusion: "data.occlusion = textureLoad(gBufferORM, coord, 0).r;",
			GDataRoughness: "data.roughness = textureLoad(gBufferORM, coord, 0).g;",
			GDataMetalness: "data.metalness = textureLoad(gBufferORM, coord, 0).b;",
			GDataEmission:  "data.emission = textureLoad(gBufferEmission, coord, 0).rgb;",
			GDataPosition:  "data.position = vec3<f32>(uv * 2.0 - 1.0, data.depth);",
			GDataVelocity:  "data.velocity = textureLoad(gBufferVelocity, coord, 0).xy;",
		},
		DataDependencies: map[GData][]GData{
			GDataPosition: {GDataDepth},
		},
		DataBufferSources: map[GData]GBufferComponent{
			GDataColor:     GBufferColor,
			GDataDepth:     GBufferDepth,
			GDataNormal:    GBufferNormal,
			GDataOcclusion: GBufferORM,
			GDataRoughness: GBufferORM,
			GDataMetalness: GBufferORM,
			GDataEmission:  GBufferEmission,
			GDataVelocity:  GBufferVelocity,
		},
	}
}

// Validate checks that every field resolves to components with complete
// texture and shader entries and that dependencies are acyclic.
func (cfg *GBufferConfig) Validate() error {
	var errs []error

	for c := range cfg.usedComponents() {
		if _, ok := cfg.TextureConfigs[c]; !ok {
			errs = append(errs, fmt.Errorf("component %v has no texture config", c))
		}
		if cfg.StructFields[c] == "" {
			errs = append(errs, fmt.Errorf("component %v has no struct field", c))
		}
		if cfg.BindingDeclarations[c] == "" {
			errs = append(errs, fmt.Errorf("component %v has no binding declaration", c))
		}
	}

	fields := make(map[GData]struct{})
	for d := range cfg.DataBufferSources {
		fields[d] = struct{}{}
	}
	for d, deps := range cfg.DataDependencies {
		fields[d] = struct{}{}
		for _, dep := range deps {
			fields[dep] = struct{}{}
		}
	}
	for _, d := range slices.Sorted(maps.Keys(fields)) {
		if cfg.DataStructDeclaration[d] == "" {
			errs = append(errs, fmt.Errorf("field %v has no struct declaration", d))
		}
		if cfg.DataStructInitialization[d] == "" {
			errs = append(errs, fmt.Errorf("field %v has no initialization", d))
		}
		if _, err := cfg.ResolveData([]GData{d}); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidGBufferConfig, errors.Join(errs...))
	}
	return nil
}

func (cfg *GBufferConfig) usedComponents() map[GBufferComponent]struct{} {
	used := make(map[GBufferComponent]struct{})
	for _, c := range cfg.DataBufferSources {
		used[c] = struct{}{}
	}
	return used
}

// ResolvedData is the outcome of resolving requested fields.
type ResolvedData struct {
	// Fields lists the fields to initialize, dependencies first.
	Fields []GData

	// Components lists the components that must be bound, ascending.
	Components []GBufferComponent
}

// ResolveData expands required fields with their dependencies.
func (cfg *GBufferConfig) ResolveData(required []GData) (ResolvedData, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[GData]int)
	components := make(map[GBufferComponent]struct{})
	var order []GData

	var visit func(d GData, path []GData) error
	visit = func(d GData, path []GData) error {
		switch state[d] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: dependency cycle %v -> %v", ErrInvalidGBufferConfig, path, d)
		}
		state[d] = visiting

		deps := cfg.DataDependencies[d]
		src, sourced := cfg.DataBufferSources[d]
		if !sourced && len(deps) == 0 {
			return fmt.Errorf("%w: field %v has no buffer source", ErrInvalidGBufferConfig, d)
		}
		for _, dep := range deps {
			if err := visit(dep, append(path, d)); err != nil {
				return err
			}
		}
		if sourced {
			components[src] = struct{}{}
		}
		state[d] = done
		order = append(order, d)
		return nil
	}

	for _, d := range required {
		if err := visit(d, nil); err != nil {
			return ResolvedData{}, err
		}
	}
	return ResolvedData{
		Fields:     order,
		Components: slices.Sorted(maps.Keys(components)),
	}, nil
}

// Bindings returns WGSL declarations for components, numbered from
// firstBinding, and the matching texture slots.
func (cfg *GBufferConfig) Bindings(components []GBufferComponent, firstBinding int) (string, []backend.TextureSlot) {
	var sb strings.Builder
	slots := make([]backend.TextureSlot, 0, len(components))
	for i, c := range components {
		name := cfg.StructFields[c]
		fmt.Fprintf(&sb, "@group(0) @binding(%d) var %s: %s;\n", firstBinding+i, name, cfg.BindingDeclarations[c])
		slots = append(slots, backend.TextureSlot{Name: name, Depth: cfg.TextureConfigs[c].Depth})
	}
	return sb.String(), slots
}

// DataShader returns the GData struct and a readGData(uv, coord) function
// initializing the resolved fields in dependency order.
func (cfg *GBufferConfig) DataShader(r ResolvedData) string {
	var sb strings.Builder
	sb.WriteString("struct GData {\n")
	for _, d := range r.Fields {
		fmt.Fprintf(&sb, "\t%s,\n", cfg.DataStructDeclaration[d])
	}
	sb.WriteString("};\n\n")
	sb.WriteString("fn readGData(uv: vec2<f32>, coord: vec2<i32>) -> GData {\n\tvar data: GData;\n")
	for _, d := range r.Fields {
		fmt.Fprintf(&sb, "\t%s\n", cfg.DataStructInitialization[d])
	}
	sb.WriteString("\treturn data;\n}\n")
	return sb.String()
}

// Layout returns a render target descriptor holding components, color
// attachments in canonical order, and the matching GBufferInfo.
func (cfg *GBufferConfig) Layout(components []GBufferComponent, width, height int) (backend.RenderTargetDescriptor, *GBufferInfo, error) {
	desc := backend.RenderTargetDescriptor{Label: "gbuffer", Width: width, Height: height}
	sorted := slices.Clone(components)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var attachments []GBufferComponent
	for _, c := range sorted {
		tc, ok := cfg.TextureConfigs[c]
		if !ok {
			return desc, nil, fmt.Errorf("%w: component %v has no texture config", ErrInvalidGBufferConfig, c)
		}
		if tc.Depth {
			desc.DepthFormat = tc.Format
		} else {
			desc.ColorFormats = append(desc.ColorFormats, tc.Format)
		}
		attachments = append(attachments, c)
	}
	return desc, NewGBufferInfo(attachments, cfg), nil
}

// GBufferInfo maps components of one concrete render target to attachment
// locations.
type GBufferInfo struct {
	locations map[GBufferComponent]int
	depth     bool
	order     []GBufferComponent
}

// NewGBufferInfo builds the mapping for attachments given in physical
// order. Depth components, as told by cfg, take no color location; a nil
// cfg treats only GBufferDepth as depth. Repeated components keep their
// first location.
func NewGBufferInfo(attachments []GBufferComponent, cfg *GBufferConfig) *GBufferInfo {
	info := &GBufferInfo{locations: make(map[GBufferComponent]int)}
	for _, c := range attachments {
		isDepth := c == GBufferDepth
		if cfg != nil {
			isDepth = cfg.TextureConfigs[c].Depth
		}
		if isDepth {
			info.depth = true
			continue
		}
		if _, dup := info.locations[c]; dup {
			continue
		}
		info.locations[c] = len(info.order)
		info.order = append(info.order, c)
	}
	return info
}

// Location returns the color attachment index of c.
func (info *GBufferInfo) Location(c GBufferComponent) (int, bool) {
	loc, ok := info.locations[c]
	return loc, ok
}

// Has reports whether the render target provides c.
func (info *GBufferInfo) Has(c GBufferComponent) bool {
	if c == GBufferDepth {
		return info.depth
	}
	_, ok := info.locations[c]
	return ok
}

// HasDepth reports whether the render target has a depth attachment.
func (info *GBufferInfo) HasDepth() bool {
	return info.depth
}

// ColorCount returns the number of color attachments.
func (info *GBufferInfo) ColorCount() int {
	return len(info.order)
}

// Attachments returns the color components in location order.
func (info *GBufferInfo) Attachments() []GBufferComponent {
	return slices.Clone(info.order)
}

// Components returns every provided component in ascending order,
// independent of attachment order.
func (info *GBufferInfo) Components() []GBufferComponent {
	out := slices.Collect(maps.Keys(info.locations))
	if info.depth {
		out = append(out, GBufferDepth)
	}
	slices.Sort(out)
	return out
}

// Defines returns LOCATION_<COMPONENT> defines for every color attachment.
func (info *GBufferInfo) Defines() map[string]string {
	d := make(map[string]string, len(info.locations))
	for c, loc := range info.locations {
		d["LOCATION_"+c.String()] = strconv.Itoa(loc)
	}
	return d
}

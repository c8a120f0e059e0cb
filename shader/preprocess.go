package shader

import (
	"errors"
	"fmt"
	"strings"
)

// Preprocessor errors.
var (
	ErrUnterminatedConditional = errors.New("shader: unterminated #ifdef block")
	ErrUnexpectedDirective     = errors.New("shader: unexpected directive")
	ErrUnknownChunk            = errors.New("shader: unknown chunk")
	ErrIncludeCycle            = errors.New("shader: include cycle")
)

const maxIncludeDepth = 16

// Preprocessor expands includes, conditionals and defines.
type Preprocessor struct {
	registry *Registry
}

// NewPreprocessor creates a preprocessor that resolves #include against r.
// r may be nil when sources contain no includes.
func NewPreprocessor(r *Registry) *Preprocessor {
	return &Preprocessor{registry: r}
}

type condFrame struct {
	active       bool // lines in the current branch are emitted
	parentActive bool
	sawElse      bool
}

// Process returns src with includes expanded, inactive conditional blocks
// removed and define values substituted. An empty define value only marks
// the name as defined.
func (p *Preprocessor) Process(src string, defines map[string]string) (string, error) {
	expanded, err := p.expand(src, 0, nil)
	if err != nil {
		return "", err
	}

	local := make(map[string]string, len(defines))
	for k, v := range defines {
		local[k] = v
	}

	var out strings.Builder
	out.Grow(len(expanded))
	var stack []condFrame
	active := true

	for n, line := range strings.Split(expanded, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active {
				out.WriteString(line)
				out.WriteByte('\n')
			}
			continue
		}

		directive, arg := splitDirective(trimmed)
		switch directive {
		case "#ifdef", "#ifndef":
			_, defined := local[arg]
			cond := defined == (directive == "#ifdef")
			stack = append(stack, condFrame{active: active && cond, parentActive: active})
			active = active && cond
		case "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: #else at line %d", ErrUnexpectedDirective, n+1)
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", fmt.Errorf("%w: second #else at line %d", ErrUnexpectedDirective, n+1)
			}
			top.sawElse = true
			top.active = top.parentActive && !top.active
			active = top.active
		case "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: #endif at line %d", ErrUnexpectedDirective, n+1)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		case "#define":
			if active {
				name, value, _ := strings.Cut(arg, " ")
				local[name] = strings.TrimSpace(value)
			}
		case "#undef":
			if active {
				delete(local, arg)
			}
		default:
			return "", fmt.Errorf("%w: %s at line %d", ErrUnexpectedDirective, directive, n+1)
		}
	}
	if len(stack) > 0 {
		return "", ErrUnterminatedConditional
	}

	return substitute(out.String(), local), nil
}

func splitDirective(line string) (directive, arg string) {
	directive, arg, _ = strings.Cut(line, " ")
	return directive, strings.TrimSpace(arg)
}

// substitute replaces identifiers that name a define with a value.
func substitute(src string, defines map[string]string) string {
	values := make(map[string]string)
	for k, v := range defines {
		if v != "" {
			values[k] = v
		}
	}
	if len(values) == 0 {
		return src
	}
	return ReplaceIdentifiers(src, func(id string) (string, bool) {
		v, ok := values[id]
		return v, ok
	})
}

// expand resolves #include <name> lines recursively.
func (p *Preprocessor) expand(src string, depth int, chain []string) (string, error) {
	if !strings.Contains(src, "#include") {
		return src, nil
	}
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(chain, " -> "))
	}

	var out strings.Builder
	for _, line := range strings.SplitAfter(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#include") {
			out.WriteString(line)
			continue
		}
		_, arg := splitDirective(trimmed)
		name := strings.Trim(arg, "<>\"")
		for _, c := range chain {
			if c == name {
				return "", fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(chain, " -> "), name)
			}
		}
		if p.registry == nil {
			return "", fmt.Errorf("%w: %s", ErrUnknownChunk, name)
		}
		chunk, ok := p.registry.Chunk(name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownChunk, name)
		}
		body, err := p.expand(chunk, depth+1, append(chain, name))
		if err != nil {
			return "", err
		}
		out.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

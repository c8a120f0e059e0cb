package shader

import "strings"

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// ReplaceIdentifiers calls fn for every identifier token in src and
// substitutes the returned text when fn reports true. Identifiers that
// follow a '.' are member accesses and are left alone, as is text inside
// line comments.
func ReplaceIdentifiers(src string, fn func(ident string) (string, bool)) string {
	var b strings.Builder
	b.Grow(len(src))

	var prev byte // last non-space byte written
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			b.WriteString(src[i : i+end])
			i += end
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			ident := src[i:j]
			if prev != '.' {
				if repl, ok := fn(ident); ok {
					ident = repl
				}
			}
			b.WriteString(ident)
			prev = 'a'
			i = j
		case c >= '0' && c <= '9':
			// Numeric literals such as 1e5 or 0x1f must not yield identifiers.
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			b.WriteString(src[i:j])
			prev = '0'
			i = j
		default:
			b.WriteByte(c)
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				prev = c
			}
			i++
		}
	}
	return b.String()
}

// Identifiers returns the distinct identifiers of src in first-seen order.
func Identifiers(src string) []string {
	seen := make(map[string]bool)
	var out []string
	ReplaceIdentifiers(src, func(id string) (string, bool) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
		return "", false
	})
	return out
}

package prompt

import "strings"

// Context maps placeholder names to their rendered values.
type Context map[string]string

// Format substitutes {name} placeholders in template with values from ctx.
// Unknown names are left in place as the literal "{name}" so a typo in authored
// content shows up in the prompt instead of failing the render. "{{" and "}}"
// produce literal braces; any other brace sequence is copied through unchanged.
func Format(template string, ctx Context) string {
	if template == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			name := template[i+1 : i+1+end]
			if !isPlaceholderName(name) {
				b.WriteByte('{')
				i++
				continue
			}
			if v, ok := ctx[name]; ok {
				b.WriteString(v)
			} else {
				b.WriteString("{" + name + "}")
			}
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i += 2
			} else {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isPlaceholderName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

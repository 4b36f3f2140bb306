package vars

import "strings"

// Expand replaces $NAME and ${NAME} references bound in c. A reference to an
// unbound name, a malformed ${ without its closing brace, and a lone $ are
// all kept exactly as written.
func Expand(s string, c Context) string {
	if !strings.Contains(s, "$") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 >= len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}

		var name string
		var end int
		if s[i+1] == '{' {
			closing := strings.IndexByte(s[i+2:], '}')
			if closing < 0 {
				b.WriteString(s[i:])
				break
			}
			name = s[i+2 : i+2+closing]
			end = i + 2 + closing + 1
			if !isName(name) {
				name = ""
			}
		} else {
			j := i + 1
			for j < len(s) && isNameByte(s[j], j == i+1) {
				j++
			}
			name = s[i+1 : j]
			end = j
		}

		if v, ok := c.Lookup(name); ok && name != "" {
			b.WriteString(v)
		} else {
			b.WriteString(s[i:max(end, i+1)])
		}
		i = max(end, i+1)
	}
	return b.String()
}

// ExpandAll expands every command against the same snapshot.
func ExpandAll(commands []string, c Context) []string {
	out := make([]string, len(commands))
	for i, cmd := range commands {
		out[i] = Expand(cmd, c)
	}
	return out
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}

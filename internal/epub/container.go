package epub

import (
	"fmt"
	"strings"
)

// ContainerPath is the fixed OCF entry naming the package document.
const ContainerPath = "META-INF/container.xml"

// ResolveRootfile reads the container descriptor and returns the archive
// path of the package document. Only the full-path attribute is needed, so
// the descriptor is scanned for that attribute rather than parsed as XML.
func ResolveRootfile(a *Archive) (string, error) {
	text, ok := a.ReadText(ContainerPath)
	if !ok {
		return "", fmt.Errorf("%w: %s not found", ErrInvalidContainer, ContainerPath)
	}

	path, ok := attrValue(text, "full-path")
	if !ok || path == "" {
		return "", fmt.Errorf("%w: full-path attribute not found", ErrInvalidContainer)
	}
	return normalizePath(path), nil
}

// attrValue scans s for the first occurrence of name="value" (or single
// quotes), tolerating whitespace around the equals sign. It assumes
// well-formed attribute quoting but nothing else about the markup.
func attrValue(s, name string) (string, bool) {
	for i := 0; i < len(s); {
		idx := indexAttrName(s[i:], name)
		if idx < 0 {
			return "", false
		}
		j := i + idx + len(name)

		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j >= len(s) || s[j] != '=' {
			i = i + idx + len(name)
			continue
		}
		j++
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j >= len(s) || (s[j] != '"' && s[j] != '\'') {
			i = i + idx + len(name)
			continue
		}

		quote := s[j]
		j++
		end := j
		for end < len(s) && s[end] != quote {
			end++
		}
		if end >= len(s) {
			return "", false
		}
		return s[j:end], true
	}
	return "", false
}

// indexAttrName finds name in s at an attribute boundary: preceded by
// whitespace and not part of a longer identifier.
func indexAttrName(s, name string) int {
	from := 0
	for {
		idx := strings.Index(s[from:], name)
		if idx < 0 {
			return -1
		}
		idx += from
		beforeOK := idx > 0 && isSpace(s[idx-1])
		afterIdx := idx + len(name)
		afterOK := afterIdx < len(s) && !isNameChar(s[afterIdx])
		if beforeOK && afterOK {
			return idx
		}
		from = idx + 1
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

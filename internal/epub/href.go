package epub

import (
	"net/url"
	"strings"
)

// ResolveHref resolves a manifest href against the package directory using
// POSIX segment semantics: "." is skipped, ".." pops the last segment and
// popping past the root is a no-op. A href beginning with "/" is absolute
// from the archive root and ignores baseDir. The href is percent-decoded
// first. Every href consumer in the pipeline (manifest entries, NCX content
// sources, the raw-scan fallback) resolves through this one function.
func ResolveHref(baseDir, href string) string {
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}

	var stack []string
	if strings.HasPrefix(href, "/") {
		href = href[1:]
	} else if baseDir != "" && baseDir != "." {
		for _, seg := range strings.Split(baseDir, "/") {
			if seg != "" && seg != "." {
				stack = append(stack, seg)
			}
		}
	}

	for _, seg := range strings.Split(href, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}

	return strings.Join(stack, "/")
}

// splitFragment splits a source reference into the path and the fragment
// identifier (without the "#").
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}

package epub

import (
	"html"
	"path"
	"regexp"
	"strings"
)

// ManifestItem is a content file declared by the package document. Href is
// kept as declared; resolution against the package directory happens at use
// time through ResolveHref.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item carries the given property flag.
func (it ManifestItem) HasProperty(prop string) bool {
	for _, p := range it.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// Package is the parsed package document: metadata guesses, the manifest
// keyed by id, and the spine as an ordered list of idrefs.
type Package struct {
	Title    string
	Creator  string
	Language string

	Manifest      map[string]ManifestItem
	ManifestOrder []string
	Spine         []string

	// BaseDir is the directory of the package document; every manifest href
	// resolves relative to it.
	BaseDir string
}

var (
	itemTagRe    = regexp.MustCompile(`(?is)<item[\s/>]`)
	itemRefTagRe = regexp.MustCompile(`(?is)<itemref[\s/>]`)
	titleTextRe  = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?title(?:\s[^>]*)?>(.*?)</(?:[a-z0-9]+:)?title\s*>`)
	creatorRe    = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?creator(?:\s[^>]*)?>(.*?)</(?:[a-z0-9]+:)?creator\s*>`)
	langRe       = regexp.MustCompile(`(?is)<(?:[a-z0-9]+:)?language(?:\s[^>]*)?>(.*?)</(?:[a-z0-9]+:)?language\s*>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ParsePackage extracts the manifest, spine and metadata guesses from the
// package document text. It scans for element-like substrings instead of
// parsing the document as XML; real-world package documents carry enough
// namespace and well-formedness drift that a strict parse aborts imports a
// scan survives. Manifest entries missing an id or href are dropped
// silently; so are spine entries without an idref.
func ParsePackage(text, rootfilePath string) *Package {
	pkg := &Package{
		Manifest: make(map[string]ManifestItem),
		BaseDir:  packageBaseDir(rootfilePath),
	}

	for _, el := range scanElements(text, itemTagRe) {
		id, idOK := attrValue(el, "id")
		href, hrefOK := attrValue(el, "href")
		if !idOK || !hrefOK || id == "" || href == "" {
			continue
		}
		item := ManifestItem{ID: id, Href: href}
		if mt, ok := attrValue(el, "media-type"); ok {
			item.MediaType = mt
		}
		if props, ok := attrValue(el, "properties"); ok {
			item.Properties = strings.Fields(props)
		}
		if _, dup := pkg.Manifest[id]; !dup {
			pkg.ManifestOrder = append(pkg.ManifestOrder, id)
		}
		pkg.Manifest[id] = item
	}

	for _, el := range scanElements(text, itemRefTagRe) {
		if idref, ok := attrValue(el, "idref"); ok && idref != "" {
			pkg.Spine = append(pkg.Spine, idref)
		}
	}

	pkg.Title = firstElementText(text, titleTextRe)
	pkg.Creator = firstElementText(text, creatorRe)
	pkg.Language = firstElementText(text, langRe)

	return pkg
}

// scanElements returns the raw text of each element whose opening tag
// matches re, from the start of the tag to the closing '>'.
func scanElements(text string, re *regexp.Regexp) []string {
	var out []string
	for _, loc := range re.FindAllStringIndex(text, -1) {
		end := strings.IndexByte(text[loc[0]:], '>')
		if end < 0 {
			continue
		}
		out = append(out, text[loc[0]:loc[0]+end+1])
	}
	return out
}

// firstElementText returns the tag-stripped, entity-decoded inner text of
// the first element matched by re, or "" when absent.
func firstElementText(text string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	inner := tagRe.ReplaceAllString(m[1], "")
	return strings.TrimSpace(html.UnescapeString(inner))
}

// packageBaseDir returns the directory component of the rootfile path,
// normalized so that a rootfile at the archive root yields "".
func packageBaseDir(rootfilePath string) string {
	dir := path.Dir(normalizePath(rootfilePath))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

package epub

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ncxMediaType marks the legacy navigation control file in the manifest.
const ncxMediaType = "dtbncx"

// ResolvedItem is a manifest item ready for extraction: the declared id and
// href plus the resolved archive path.
type ResolvedItem struct {
	ID        string
	Href      string
	Path      string
	MediaType string
}

// ResolveNavigation produces the ordered list of readable content items.
// Three strategies run in order and the first one yielding any items wins:
//
//  1. spine order, keeping HTML-family items and dropping structural ones
//     (nav documents, the NCX)
//  2. the NCX legacy navigation file, when the spine resolves to nothing
//  3. a raw scan of HTML-family entries under the package directory in
//     natural order
//
// When all three yield nothing the import fails with ErrNoReadableContent.
func ResolveNavigation(a *Archive, pkg *Package, logger *slog.Logger) ([]ResolvedItem, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if items := excludeStructural(resolveFromSpine(pkg, logger)); len(items) > 0 {
		return items, nil
	}
	if items := excludeStructural(resolveFromNCX(a, pkg, logger)); len(items) > 0 {
		logger.Warn("spine yielded no readable items, using NCX navigation")
		return items, nil
	}
	if items := excludeStructural(resolveFromScan(a, pkg)); len(items) > 0 {
		logger.Warn("navigation metadata unusable, using raw archive scan")
		return items, nil
	}
	return nil, ErrNoReadableContent
}

// excludeStructural drops cover and title pages before a strategy's result
// is tested for emptiness, so an archive holding nothing but front matter
// reports "no readable content" rather than "everything filtered".
func excludeStructural(items []ResolvedItem) []ResolvedItem {
	kept := items[:0]
	for _, item := range items {
		if !ExcludedByStructure(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// resolveFromSpine maps spine idrefs to manifest items, keeping only markup
// content. Spine entries that do not resolve to a manifest id are dropped,
// not fatal.
func resolveFromSpine(pkg *Package, logger *slog.Logger) []ResolvedItem {
	var items []ResolvedItem
	for _, idref := range pkg.Spine {
		item, ok := pkg.Manifest[idref]
		if !ok {
			logger.Warn("spine entry not in manifest, skipping", "idref", idref)
			continue
		}
		if item.HasProperty("nav") || isNCX(item.MediaType) {
			continue
		}
		if !isHTMLMediaType(item.MediaType) && !hasHTMLExtension(item.Href) {
			continue
		}
		hrefPath, _ := splitFragment(item.Href)
		items = append(items, ResolvedItem{
			ID:        item.ID,
			Href:      item.Href,
			Path:      ResolveHref(pkg.BaseDir, hrefPath),
			MediaType: item.MediaType,
		})
	}
	return items
}

// resolveFromNCX loads the legacy navigation control file and extracts its
// ordered content references, deduplicated by normalized href. References
// map back to manifest items when possible; otherwise a minimal item is
// synthesized from the bare href.
func resolveFromNCX(a *Archive, pkg *Package, logger *slog.Logger) []ResolvedItem {
	ncxItem, ok := findNCXItem(pkg)
	if !ok {
		return nil
	}

	ncxHref, _ := splitFragment(ncxItem.Href)
	ncxPath := ResolveHref(pkg.BaseDir, ncxHref)
	text, ok := a.ReadText(ncxPath)
	if !ok {
		logger.Warn("NCX entry missing from archive", "path", ncxPath)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		logger.Warn("NCX not parseable, skipping", "path", ncxPath, "error", err)
		return nil
	}

	// Content sources resolve relative to the NCX file's own directory.
	ncxDir := path.Dir(ncxPath)
	if ncxDir == "." {
		ncxDir = ""
	}

	byPath := manifestByResolvedPath(pkg)
	seen := make(map[string]bool)
	var items []ResolvedItem
	doc.Find("content[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		srcPath, _ := splitFragment(src)
		if strings.TrimSpace(srcPath) == "" {
			return
		}
		resolved := ResolveHref(ncxDir, srcPath)
		key := strings.ToLower(resolved)
		if seen[key] {
			return
		}
		seen[key] = true

		if item, ok := byPath[key]; ok {
			items = append(items, ResolvedItem{
				ID:        item.ID,
				Href:      item.Href,
				Path:      resolved,
				MediaType: item.MediaType,
			})
			return
		}
		items = append(items, ResolvedItem{
			ID:   fmt.Sprintf("ncx-%d", len(items)+1),
			Href: srcPath,
			Path: resolved,
		})
	})
	return items
}

// resolveFromScan enumerates HTML-family entries under the package
// directory in natural order, so "chapter2" sorts before "chapter10".
func resolveFromScan(a *Archive, pkg *Package) []ResolvedItem {
	var paths []string
	for _, p := range a.Paths() {
		if pkg.BaseDir != "" && !strings.HasPrefix(p, pkg.BaseDir+"/") {
			continue
		}
		if !hasHTMLExtension(p) {
			continue
		}
		paths = append(paths, p)
	}

	cl := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(paths, func(i, j int) bool {
		return cl.CompareString(paths[i], paths[j]) < 0
	})

	items := make([]ResolvedItem, 0, len(paths))
	for i, p := range paths {
		items = append(items, ResolvedItem{
			ID:   fmt.Sprintf("scan-%d", i+1),
			Href: p,
			Path: p,
		})
	}
	return items
}

func findNCXItem(pkg *Package) (ManifestItem, bool) {
	for _, id := range pkg.ManifestOrder {
		item := pkg.Manifest[id]
		if isNCX(item.MediaType) {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// manifestByResolvedPath indexes manifest items by their lower-cased
// resolved archive path for NCX reference mapping.
func manifestByResolvedPath(pkg *Package) map[string]ManifestItem {
	byPath := make(map[string]ManifestItem, len(pkg.Manifest))
	for _, id := range pkg.ManifestOrder {
		item := pkg.Manifest[id]
		hrefPath, _ := splitFragment(item.Href)
		resolved := strings.ToLower(ResolveHref(pkg.BaseDir, hrefPath))
		if _, dup := byPath[resolved]; !dup {
			byPath[resolved] = item
		}
	}
	return byPath
}

func isNCX(mediaType string) bool {
	return strings.Contains(strings.ToLower(mediaType), ncxMediaType)
}

// isHTMLMediaType checks if a media type indicates markup content.
func isHTMLMediaType(mediaType string) bool {
	return strings.Contains(strings.ToLower(mediaType), "html")
}

func hasHTMLExtension(href string) bool {
	p, _ := splitFragment(href)
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".html", ".xhtml", ".htm":
		return true
	}
	return false
}

package epub

import (
	"errors"
	"testing"
)

func mustOpen(t *testing.T, entries map[string]string) *Archive {
	t.Helper()
	a, err := OpenArchive(buildArchive(t, entries))
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	return a
}

func itemPaths(items []ResolvedItem) []string {
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return paths
}

func assertPaths(t *testing.T, items []ResolvedItem, want []string) {
	t.Helper()
	got := itemPaths(items)
	if len(got) != len(want) {
		t.Fatalf("resolved paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resolved[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveNavigationSpineOrder(t *testing.T) {
	pkgText := `<package>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
    <itemref idref="ghost"/>
    <itemref idref="ch2"/>
    <itemref idref="css"/>
    <itemref idref="ncx"/>
  </spine>
</package>`
	a := mustOpen(t, map[string]string{"OEBPS/content.opf": pkgText})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	items, err := ResolveNavigation(a, pkg, nil)
	if err != nil {
		t.Fatalf("ResolveNavigation() error = %v", err)
	}

	// Spine order wins; nav, NCX, non-markup and unresolvable idrefs drop.
	assertPaths(t, items, []string{"OEBPS/ch1.xhtml", "OEBPS/ch2.xhtml"})
}

func TestResolveNavigationNCXFallback(t *testing.T) {
	pkgText := `<package>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="c1.html" media-type="application/xhtml+xml"/>
    <item id="c2" href="c2.html" media-type="application/xhtml+xml"/>
  </manifest>
  <spine></spine>
</package>`
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/">
  <navMap>
    <navPoint id="n1"><navLabel><text>Two</text></navLabel><content src="c2.html"/></navPoint>
    <navPoint id="n2"><navLabel><text>One</text></navLabel><content src="c1.html#start"/></navPoint>
    <navPoint id="n3"><navLabel><text>Two again</text></navLabel><content src="C2.html#dup"/></navPoint>
    <navPoint id="n4"><navLabel><text>Extra</text></navLabel><content src="extra.html"/></navPoint>
  </navMap>
</ncx>`
	a := mustOpen(t, map[string]string{
		"OEBPS/content.opf": pkgText,
		"OEBPS/toc.ncx":     ncx,
	})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	items, err := ResolveNavigation(a, pkg, nil)
	if err != nil {
		t.Fatalf("ResolveNavigation() error = %v", err)
	}

	// NCX order preserved, case-insensitive fragment-stripped dedup,
	// unmatched reference synthesized from the bare href.
	assertPaths(t, items, []string{"OEBPS/c2.html", "OEBPS/c1.html", "OEBPS/extra.html"})

	if items[0].ID != "c2" || items[1].ID != "c1" {
		t.Errorf("NCX references should map back to manifest ids, got %q, %q", items[0].ID, items[1].ID)
	}
	if items[2].ID == "" {
		t.Error("unmatched NCX reference should synthesize an item id")
	}
}

func TestResolveNavigationRawScanNaturalOrder(t *testing.T) {
	pkgText := `<package><manifest></manifest><spine></spine></package>`
	a := mustOpen(t, map[string]string{
		"OEBPS/content.opf":      pkgText,
		"OEBPS/chapter10.xhtml":  "<p>ten</p>",
		"OEBPS/chapter2.xhtml":   "<p>two</p>",
		"OEBPS/chapter1.xhtml":   "<p>one</p>",
		"OEBPS/style.css":        "p{}",
		"outside/elsewhere.html": "<p>not under baseDir</p>",
	})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	items, err := ResolveNavigation(a, pkg, nil)
	if err != nil {
		t.Fatalf("ResolveNavigation() error = %v", err)
	}

	assertPaths(t, items, []string{
		"OEBPS/chapter1.xhtml",
		"OEBPS/chapter2.xhtml",
		"OEBPS/chapter10.xhtml",
	})
}

func TestResolveNavigationNothingReadable(t *testing.T) {
	pkgText := `<package><manifest><item id="css" href="style.css" media-type="text/css"/></manifest><spine><itemref idref="css"/></spine></package>`
	a := mustOpen(t, map[string]string{
		"OEBPS/content.opf": pkgText,
		"OEBPS/style.css":   "p{}",
	})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	_, err := ResolveNavigation(a, pkg, nil)
	if !errors.Is(err, ErrNoReadableContent) {
		t.Fatalf("ResolveNavigation() error = %v, want ErrNoReadableContent", err)
	}
}

func TestResolveNavigationCoverOnlyArchive(t *testing.T) {
	pkgText := `<package>
  <manifest><item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="cover"/></spine>
</package>`
	a := mustOpen(t, map[string]string{
		"OEBPS/content.opf": pkgText,
		"OEBPS/cover.xhtml": "<h1>Cover</h1>",
	})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	// The only content item is a cover page: excluded structurally in
	// every strategy, so no readable content exists at all.
	_, err := ResolveNavigation(a, pkg, nil)
	if !errors.Is(err, ErrNoReadableContent) {
		t.Fatalf("ResolveNavigation() error = %v, want ErrNoReadableContent", err)
	}
}

func TestResolveNavigationCoverExcludedWhenOthersExist(t *testing.T) {
	pkgText := `<package>
  <manifest>
    <item id="cover" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="cover"/><itemref idref="ch1"/></spine>
</package>`
	a := mustOpen(t, map[string]string{"OEBPS/content.opf": pkgText})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	items, err := ResolveNavigation(a, pkg, nil)
	if err != nil {
		t.Fatalf("ResolveNavigation() error = %v", err)
	}
	assertPaths(t, items, []string{"OEBPS/ch1.xhtml"})
}

func TestResolveNavigationSpineByExtension(t *testing.T) {
	// Media type missing, but the href extension marks it as markup.
	pkgText := `<package>
  <manifest><item id="ch1" href="ch1.html"/></manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
	a := mustOpen(t, map[string]string{"OEBPS/content.opf": pkgText})
	pkg := ParsePackage(pkgText, "OEBPS/content.opf")

	items, err := ResolveNavigation(a, pkg, nil)
	if err != nil {
		t.Fatalf("ResolveNavigation() error = %v", err)
	}
	assertPaths(t, items, []string{"OEBPS/ch1.html"})
}

func TestHasHTMLExtension(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"ch1.xhtml", true},
		{"ch1.HTML", true},
		{"ch1.htm", true},
		{"ch1.xhtml#frag", true},
		{"style.css", false},
		{"archive.html.bak", false},
	}
	for _, tt := range tests {
		if got := hasHTMLExtension(tt.href); got != tt.want {
			t.Errorf("hasHTMLExtension(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

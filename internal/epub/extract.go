package epub

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ChapterCandidate is an extracted, not-yet-filtered unit of content.
type ChapterCandidate struct {
	SourceID string
	Path     string
	Title    string // empty when no heading was found
	Body     string
}

// blockTags are the elements whose closing boundary contributes a blank
// line so that visual structure survives tag removal.
var blockTags = map[string]bool{
	"p": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "section": true, "article": true, "blockquote": true,
}

var (
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Extract loads the markup at the item's resolved path and produces a
// chapter candidate with a title guess and a normalized plain-text body.
// An unreadable or unparseable entry yields ok=false, never an error:
// individual bad entries are skipped, not fatal.
func Extract(a *Archive, item ResolvedItem) (ChapterCandidate, bool) {
	text, ok := a.ReadText(item.Path)
	if !ok {
		return ChapterCandidate{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return ChapterCandidate{}, false
	}

	doc.Find("script, style").Remove()

	return ChapterCandidate{
		SourceID: item.ID,
		Path:     item.Path,
		Title:    extractTitle(doc),
		Body:     extractBody(doc),
	}, true
}

// extractTitle searches in priority order for the first h1, then h2, then
// h3, then the page title element, and returns its inner text.
func extractTitle(doc *goquery.Document) string {
	for _, sel := range []string{"h1", "h2", "h3", "title"} {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if t := CollapseWhitespace(s.Text()); t != "" {
			return t
		}
	}
	return ""
}

// extractBody renders the document body as plain text: line-break markup
// becomes "\n", block-element boundaries become a blank line, all remaining
// tags are dropped and character references decoded by the parser. Runs of
// three or more newlines collapse to exactly two.
func extractBody(doc *goquery.Document) string {
	var b strings.Builder
	doc.Find("body").Each(func(i int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			writeNodeText(&b, n)
		}
	})

	out := multiNewlineRe.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteString("\n")
			return
		case "script", "style":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}

	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteString("\n\n")
	}
}

// CollapseWhitespace collapses all whitespace runs to single spaces and
// trims the ends. The chapter filter measures body length on this form.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

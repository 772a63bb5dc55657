package epub

import (
	"strings"
	"unicode/utf8"
)

// minBodyRunes is the shortest collapsed body text accepted as a chapter.
const minBodyRunes = 60

// badTitleSubstrings excludes front-matter by extracted title. This is the
// unified superset of the exclusion lists found across client variants.
var badTitleSubstrings = []string{
	"table of contents",
	"contents",
	"toc",
	"copyright",
	"title page",
}

// ExcludedByStructure reports whether an item is front-matter noise based
// on its manifest id or href alone, before any extraction work: cover pages
// and title pages in their common spellings. Navigation resolution applies
// this to every strategy's output; ExcludedByContent runs later, once a
// candidate has been extracted.
func ExcludedByStructure(item ResolvedItem) bool {
	key := strings.ToLower(item.ID + " " + item.Href)
	if strings.Contains(key, "cover") {
		return true
	}

	// "title page", "titlepage", "title-page", "title_page"
	squeezed := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	return strings.Contains(squeezed, "titlepage")
}

// ExcludedByContent reports whether an extracted candidate is front-matter
// noise: a known structural title, the exact title "information", or a body
// shorter than 60 characters once whitespace runs are collapsed.
func ExcludedByContent(c ChapterCandidate) bool {
	title := strings.ToLower(strings.TrimSpace(c.Title))
	for _, bad := range badTitleSubstrings {
		if strings.Contains(title, bad) {
			return true
		}
	}
	if title == "information" {
		return true
	}

	return utf8.RuneCountInString(CollapseWhitespace(c.Body)) < minBodyRunes
}

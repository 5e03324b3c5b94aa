package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	contentPattern = regexp.MustCompile(`article|content|story|post-content`)
	// "ad" only counts as a whole dash/underscore separated token so that
	// classes such as "header-shadow" or "loading" survive.
	noisePattern = regexp.MustCompile(`social|share|comment|sidebar|related|advert|(^|[-_])ads?([-_]|$)`)
)

// Generic extracts the main content of an arbitrary article page.
type Generic struct{}

// NewGeneric returns the fallback parser used for unregistered domains.
func NewGeneric() *Generic {
	return &Generic{}
}

// Parse locates the main content root, strips noise, and returns cleaned text.
func (g *Generic) Parse(doc *goquery.Document) string {
	RemoveCommon(doc, "noscript")
	root := mainContent(doc)
	removeMatching(root, "[class]", noisePattern)
	return Clean(strings.Join(textNodes(root), " "))
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	if s := doc.Find("article").First(); s.Length() > 0 {
		return s
	}
	byName := doc.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return classMatches(s, contentPattern) || idMatches(s, contentPattern)
	}).First()
	if byName.Length() > 0 {
		return byName
	}
	if s := doc.Find(`[role="main"]`).First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("main").First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("body").First(); s.Length() > 0 {
		return s
	}
	return doc.Selection
}

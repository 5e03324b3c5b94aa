package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var adNetworkPattern = regexp.MustCompile(`^dfp-`)

// asiaOneBoilerplate marks lines that are photo credits, timestamps, embeds,
// share prompts, or site notices rather than article prose.
var asiaOneBoilerplate = []string{
	"PHOTO:",
	"PUBLISHED ON",
	"[[nid:",
	"Share this article",
	"This website is",
	"embed",
}

// AsiaOne extracts article text from asiaone.com pages.
type AsiaOne struct{}

// NewAsiaOne returns the asiaone.com parser.
func NewAsiaOne() *AsiaOne {
	return &AsiaOne{}
}

// Parse returns the cleaned article body, or "" when the page has no
// article_content container.
func (p *AsiaOne) Parse(doc *goquery.Document) string {
	RemoveCommon(doc)
	container := doc.Find(".article_content").First()
	if container.Length() == 0 {
		return ""
	}
	removeMatching(container, "div", adNetworkPattern)

	raw := strings.Join(textNodes(container), "\n")
	kept := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isBoilerplate(line) {
			continue
		}
		kept = append(kept, line)
	}
	return Clean(strings.Join(kept, " "))
}

func isBoilerplate(line string) bool {
	for _, marker := range asiaOneBoilerplate {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

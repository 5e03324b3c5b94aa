package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// commonNoiseTags are stripped from every document before a strategy runs.
var commonNoiseTags = []string{"script", "style", "nav", "header", "footer", "aside"}

// Clean collapses every run of whitespace to a single space and trims the ends.
func Clean(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// RemoveCommon deletes script, style, nav, header, footer, and aside elements
// plus any extra tag names supplied by the caller.
func RemoveCommon(doc *goquery.Document, extra ...string) {
	tags := make([]string, 0, len(commonNoiseTags)+len(extra))
	tags = append(tags, commonNoiseTags...)
	for _, tag := range extra {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	doc.Find(strings.Join(tags, ", ")).Remove()
}

// textNodes returns the stripped, non-empty text nodes under sel in document order.
func textNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

func classMatches(s *goquery.Selection, re *regexp.Regexp) bool {
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(class) {
		if re.MatchString(token) {
			return true
		}
	}
	return false
}

func idMatches(s *goquery.Selection, re *regexp.Regexp) bool {
	id, ok := s.Attr("id")
	return ok && id != "" && re.MatchString(id)
}

// removeMatching drops every element under root whose class matches re.
func removeMatching(root *goquery.Selection, selector string, re *regexp.Regexp) {
	root.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return classMatches(s, re)
	}).Remove()
}

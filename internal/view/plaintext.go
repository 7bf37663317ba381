package view

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespace = regexp.MustCompile(`\s+`)

// PlainText flattens comment markup from the platform (line breaks, links,
// entities) into a single line of text. Plain input is returned trimmed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")

	text := whitespace.ReplaceAllString(doc.Find("body").Text(), " ")
	return strings.TrimSpace(text)
}

package rss

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips HTML tags from a feed summary using goquery.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

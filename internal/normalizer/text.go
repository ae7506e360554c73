package normalizer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// stripTags are removed with their content before extracting description text
var stripTags = []string{"script", "style", "noscript", "iframe", "svg", "form", "nav", "header", "footer"}

// CleanLine normalizes to NFC and collapses all whitespace to single spaces
func CleanLine(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// CleanDescription normalizes a description. Markup is reduced to its text,
// runs of spaces are collapsed within each line and blank lines are squeezed.
func CleanDescription(s string) string {
	s = norm.NFC.String(s)
	if looksLikeHTML(s) {
		s = htmlText(s)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func looksLikeHTML(s string) bool {
	i := strings.Index(s, "<")
	return i >= 0 && strings.Contains(s[i:], ">")
}

func htmlText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	for _, tag := range stripTags {
		doc.Find(tag).Remove()
	}

	// block elements become line breaks so paragraphs survive
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	return doc.Text()
}

package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	reHTMLTag  = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

// CleanBasic normalizes whitespace and common OCR artifacts in passage text.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	// remove control chars except newline
	b := strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	// fix common ligatures / OCR artifacts
	fixes := map[string]string{
		"ﬁ": "fi", "ﬂ": "fl",
		"·": ".", "•": "-",
	}
	for k, v := range fixes {
		b = strings.ReplaceAll(b, k, v)
	}

	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")

	return strings.TrimSpace(b)
}

// HTMLToText extracts readable content from HTML, keeping headings, lists,
// and paragraphs. Crawled documents often arrive with markup intact; prompts
// should only ever see the text.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,code").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			out = append(out, "# "+text)
		case "h2":
			out = append(out, "## "+text)
		case "h3", "h4":
			out = append(out, "### "+text)
		case "li":
			out = append(out, "- "+text)
		default:
			out = append(out, text)
		}
	})
	return strings.Join(out, "\n\n"), nil
}

// Passage sanitizes one retrieved passage for prompt construction. Text that
// looks like HTML is converted first, then whitespace is normalized.
func Passage(raw string) string {
	text := raw
	if reHTMLTag.MatchString(raw) {
		if converted, err := HTMLToText(raw); err == nil && converted != "" {
			text = converted
		}
	}
	return CleanBasic(text)
}

package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	preBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	tagRe       = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)(?:\s[^>]*)?>`)
	tagNameRe   = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Telegram renders only a small HTML subset; everything else is stripped.
var supportedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true, "br": true,
}

// ToTelegramHTML converts model-emitted markdown into the HTML subset the
// Telegram Bot API accepts.
func ToTelegramHTML(md string) string {
	if md == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(md), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = strings.ReplaceAll(html, "<strong>", "<b>")
	html = strings.ReplaceAll(html, "</strong>", "</b>")
	html = strings.ReplaceAll(html, "<em>", "<i>")
	html = strings.ReplaceAll(html, "</em>", "</i>")
	html = preBlockRe.ReplaceAllString(html, "<pre>$1</pre>")

	// Flatten lists into bullet lines.
	for _, tag := range []string{"<ul>", "</ul>", "<ol>", "</ol>"} {
		html = strings.ReplaceAll(html, tag, "")
	}
	html = strings.ReplaceAll(html, "<li>", "• ")
	html = strings.ReplaceAll(html, "</li>", "\n")

	html = tagRe.ReplaceAllStringFunc(html, func(match string) string {
		name := tagNameRe.FindStringSubmatch(match)
		if len(name) > 1 && supportedTags[name[1]] {
			return match
		}
		return ""
	})

	html = newlinesRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

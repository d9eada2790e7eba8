// Package sanitize converts raw email bodies (often HTML) into compact plain
// text safe for LLM prompting, and provides small sender-address helpers used
// by the deterministic heuristics.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxLength bounds sanitized output; downstream prompt builders rely on it.
const MaxLength = 4000

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	hrRe         = regexp.MustCompile(`-{3,}`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	quotedRe     = regexp.MustCompile(`(?m)^>.*$`)
	newlineRe    = regexp.MustCompile(`\n+`)
	unsafeRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?@:;'"-]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// Sanitize prepares an email body for AI processing. HTML bodies are reduced
// to heading-preserving text first; all bodies then go through the aggressive
// plain-text normalization and a hard truncation at MaxLength runes.
// Never fails: empty input yields empty output.
func Sanitize(content, contentType string) string {
	if content == "" {
		return ""
	}

	text := content
	if strings.EqualFold(strings.TrimSpace(contentType), "html") {
		text = htmlToText(content)
	}

	cleaned := cleanText(text)

	runes := []rune(cleaned)
	if len(runes) > MaxLength {
		cleaned = string(runes[:MaxLength]) + "..."
	}
	return cleaned
}

// htmlToText strips dangerous/noisy elements and flattens the rest to text,
// keeping a markdown-style marker in front of headings.
func htmlToText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		// html.Parse is tolerant; if it still fails, let cleanText strip the tags.
		return htmlContent
	}

	doc.Find("script, style, head, meta, link").Remove()

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 || len(s.Nodes[0].Data) < 2 {
			return
		}
		level := int(s.Nodes[0].Data[1] - '0')
		if level < 1 || level > 6 {
			level = 1
		}
		s.SetText("\n" + strings.Repeat("#", level) + " " + strings.TrimSpace(s.Text()) + "\n")
	})

	// Keep block boundaries as newlines so words don't run together.
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return doc.Text()
}

// cleanText is intentionally aggressive: it trades fidelity for low token
// count and prompt-injection resistance.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	text = tagRe.ReplaceAllString(text, "")
	// Images before links: the link rule would otherwise turn ![alt](url)
	// into a stray "!alt".
	text = mdImageRe.ReplaceAllString(text, "")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "|", " ")
	text = hrRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = quotedRe.ReplaceAllString(text, "")
	text = newlineRe.ReplaceAllString(text, " ")
	text = unsafeRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// ExtractDomain returns the lowercased domain of an address, or "" unless the
// address contains exactly one "@".
func ExtractDomain(address string) string {
	if address == "" || strings.Count(address, "@") != 1 {
		return ""
	}
	parts := strings.SplitN(strings.ToLower(address), "@", 2)
	return parts[1]
}

var noreplyPatterns = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"do-not-reply",
	"mailer-daemon",
	"postmaster",
}

// LooksLikeNoReply reports whether an address looks like an unattended
// sender. Substring-based and intentionally broad.
func LooksLikeNoReply(address string) bool {
	if address == "" {
		return false
	}
	lower := strings.ToLower(address)
	for _, p := range noreplyPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

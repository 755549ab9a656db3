package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// CleanText parses raw HTML and returns its visible text with script, style,
// and other non-content elements removed. Whitespace is collapsed and the
// result is truncated to maxLen characters when maxLen is positive.
func CleanText(rawHTML string, maxLen int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var builder strings.Builder
	collectText(doc, &builder)
	text := CollapseWhitespace(builder.String())

	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text, nil
}

func collectText(n *html.Node, builder *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		if isNoiseElement(strings.ToLower(n.Data)) {
			return
		}
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			builder.WriteString(text)
			builder.WriteByte(' ')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder)
	}
}

// isNoiseElement reports elements whose content is never visible page text.
func isNoiseElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "head", "iframe", "embed", "object", "svg", "template":
		return true
	}
	return false
}

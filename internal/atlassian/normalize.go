package atlassian

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
)

const (
	// DefaultExcerptLimit is the rune budget for page excerpts and issue descriptions.
	DefaultExcerptLimit = 500

	previewLimit           = 300
	unparseableDescription = "Unable to parse description format"
	unavailableDescription = "No description available"
	cdataOpen              = "<![CDATA["
	cdataClose             = "]]>"
)

// tagPattern matches any tag-like span, markup or not.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML replaces every <...> span with a space, decodes entities and
// collapses whitespace runs to a single space. CDATA payloads are kept as text.
func StripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(unwrapCDATA(s), " ")
	return collapseWhitespace(xhtml.UnescapeString(s))
}

// unwrapCDATA keeps CDATA payloads (code macros) as plain text.
func unwrapCDATA(s string) string {
	for {
		i := strings.Index(s, cdataOpen)
		if i < 0 {
			return s
		}
		j := strings.Index(s[i+len(cdataOpen):], cdataClose)
		if j < 0 {
			return s
		}
		j += i + len(cdataOpen)
		s = s[:i] + s[i+len(cdataOpen):j] + s[j+len(cdataClose):]
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FlattenRichDocument concatenates the text leaves of a decoded Atlassian
// Document Format tree, depth first, separated by single spaces. A document
// without a content array yields a short JSON preview instead.
func FlattenRichDocument(doc any) string {
	m, ok := doc.(map[string]any)
	if ok {
		if content, ok := m["content"].([]any); ok {
			return collapseWhitespace(flattenNodes(content))
		}
	}
	return jsonPreview(doc)
}

// FlattenRichDocumentJSON decodes raw and flattens it.
func FlattenRichDocumentJSON(raw []byte) string {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return unparseableDescription
	}
	return FlattenRichDocument(doc)
}

func flattenNodes(nodes []any) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		m, ok := n.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := m["text"].(string); ok && text != "" {
			parts = append(parts, text)
			continue
		}
		if children, ok := m["content"].([]any); ok {
			parts = append(parts, flattenNodes(children))
			continue
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, " ")
}

// jsonPreview is the first previewLimit runes of v as JSON, always marked as
// a preview with a trailing "...".
func jsonPreview(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return unparseableDescription
	}
	r := []rune(string(b))
	if len(r) > previewLimit {
		r = r[:previewLimit]
	}
	return string(r) + "..."
}

// Excerpt returns text unchanged when it fits in limit runes, otherwise the
// first limit runes followed by "...". limit <= 0 means DefaultExcerptLimit.
func Excerpt(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}

// CleanDescription turns a Jira description field of any shape into plain
// text capped at DefaultExcerptLimit runes. A missing or null description is "".
func CleanDescription(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var text string
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return unparseableDescription
		}
		text = StripHTML(s)
	case '{', '[':
		text = FlattenRichDocumentJSON(trimmed)
	default:
		text = unavailableDescription
	}
	return Excerpt(text, DefaultExcerptLimit)
}

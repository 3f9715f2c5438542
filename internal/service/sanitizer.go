package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer strips markup outside a fixed formatting allow-list.
type HTMLSanitizer interface {
	Sanitize(raw string) string
}

type submissionSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer builds the sanitizer applied to student text.
func NewHTMLSanitizer() HTMLSanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "b", "strong", "i", "em", "u", "s", "ul", "ol", "li", "blockquote", "code", "pre", "h1", "h2", "h3", "h4")
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")

	return &submissionSanitizer{policy: policy}
}

func (s *submissionSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

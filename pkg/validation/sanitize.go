package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	netHTML "golang.org/x/net/html"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// SanitizeText trims free-text input and strips markup from it. Text with
// no real HTML, such as "a<b and c>d", is only trimmed. Entities escaped by
// the policy are decoded again so plain text survives unchanged.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !ContainsMarkup(trimmed) {
		return trimmed
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// SanitizeState returns a copy of state with every free-text field passed
// through SanitizeText. Option fields and the date are left as is.
func SanitizeState(state incident.FormState) incident.FormState {
	out := state.Clone()
	for _, f := range []*string{
		&out.FirstName,
		&out.MiddleName,
		&out.LastName,
		&out.Email,
		&out.Phone,
		&out.Location,
		&out.UnitName,
		&out.Details,
	} {
		*f = SanitizeText(*f)
	}
	return out
}

// ContainsMarkup reports whether text holds a known HTML element or a
// comment. A tag counts only when its name is a real element and every
// attribute carries a value; "<b and c>" in a comparison is plain text.
func ContainsMarkup(text string) bool {
	if !strings.Contains(text, "<") {
		return false
	}
	z := netHTML.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case netHTML.ErrorToken:
			return false
		case netHTML.CommentToken:
			if strings.HasPrefix(string(z.Raw()), "<!--") {
				return true
			}
		case netHTML.EndTagToken:
			if z.Token().DataAtom != 0 {
				return true
			}
		case netHTML.StartTagToken, netHTML.SelfClosingTagToken:
			if isElement(z.Token()) {
				return true
			}
		}
	}
}

func isElement(tok netHTML.Token) bool {
	if tok.DataAtom == 0 {
		return false
	}
	for _, attr := range tok.Attr {
		if attr.Val == "" {
			return false
		}
	}
	return true
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

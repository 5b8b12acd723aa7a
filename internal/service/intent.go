package service

import (
	"regexp"
	"strings"
)

var (
	docURLRe = regexp.MustCompile(`(?:https://)?docs\.google\.com/document/d/([A-Za-z0-9_-]+)`)
	sendRe   = regexp.MustCompile(`(?i)\bsend\s+(?:an?\s+|the\s+)?(?:escalation\s+)?(?:e-?mail|escalation|notice)\b`)
)

var affirmations = map[string]struct{}{
	"yes":         {},
	"yeah":        {},
	"yep":         {},
	"sure":        {},
	"ok":          {},
	"okay":        {},
	"send it":     {},
	"please send": {},
	"go ahead":    {},
}

// ExtractDocumentURL returns the canonical edit URL of the first Google Docs
// link in message, or "".
func ExtractDocumentURL(message string) string {
	m := docURLRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return "https://docs.google.com/document/d/" + m[1] + "/edit"
}

// IsAffirmation reports whether message is one of the short confirmations
// that release a pending escalation.
func IsAffirmation(message string) bool {
	s := strings.TrimSpace(message)
	s = strings.TrimRight(s, ".!")
	s = strings.ToLower(strings.TrimSpace(s))
	_, ok := affirmations[s]
	return ok
}

// WantsImmediateSend reports an explicit request to send the escalation
// email, such as "evaluate and send escalation email".
func WantsImmediateSend(message string) bool {
	return sendRe.MatchString(message)
}

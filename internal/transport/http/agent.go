package httptransport

import (
	"strings"

	"github.com/mssola/useragent"
)

// notifierAgent condenses a raw User-Agent header into a short display name
// for audit events, e.g. "Chrome on Linux". Raw UA strings are too noisy to
// keep verbatim.
func notifierAgent(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if browser == "" && os == "" {
		// Marketplace notifiers often send bare product tokens.
		if i := strings.IndexByte(userAgentString, '/'); i > 0 {
			return userAgentString[:i]
		}
		return userAgentString
	}
	if browser == "" {
		return os
	}
	if os == "" {
		return browser
	}
	return browser + " on " + os
}

package provider

import "strings"

// The provider's web client intermittently loses an internal chat field
// ("markedUnread") when the upstream page changes, which makes read-receipt
// and send calls blow up even though the connection is healthy. Errors
// carrying that signature deserve a longer backoff, not a teardown.
const markedUnreadSignature = "markedUnread"

// IsMarkedUnreadDefect reports whether err matches the known provider
// defect signature.
func IsMarkedUnreadDefect(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), markedUnreadSignature)
}

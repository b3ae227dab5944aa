package dispatch

import "strings"

const (
	individualSuffix = "@c.us"
	groupSuffix      = "@g.us"
)

// NormalizeChatID turns a raw contact identifier into a provider-addressable
// chat id: everything but digits is stripped and the individual-chat
// suffix appended unless the raw id already names an individual or group
// chat. An empty result means the input was not addressable.
func NormalizeChatID(raw string) string {
	suffix := individualSuffix
	switch {
	case strings.HasSuffix(raw, groupSuffix):
		suffix = groupSuffix
	case strings.HasSuffix(raw, individualSuffix):
		suffix = individualSuffix
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return digits.String() + suffix
}

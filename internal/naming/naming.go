// Package naming derives deterministic ticket channel names and recognizes
// them later. Names are prefix-stable so the duplicate guard can match the
// channels a user already holds in a category.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// handlePrefixLen bounds the user-handle portion of a channel name.
	handlePrefixLen = 20
	// channelNameLimit is the platform's channel-name length limit.
	channelNameLimit = 100
)

// Slugify lowercases a user handle and collapses whitespace into single
// separators, truncated to the handle prefix length.
func Slugify(username string) string {
	slug := strings.ToLower(strings.TrimSpace(username))
	slug = strings.Join(strings.Fields(slug), "-")
	return truncateRunes(slug, handlePrefixLen)
}

// ChannelName builds the deterministic name for a ticket channel:
// <handle-prefix>-<category-slug>-<sequence>, bounded to the platform limit.
func ChannelName(username, categorySlug string, num int) string {
	name := fmt.Sprintf("%s-%s-%d", Slugify(username), categorySlug, num)
	return truncateRunes(name, channelNameLimit)
}

// truncateRunes cuts on rune boundaries; a byte slice could split a
// multi-byte handle character and emit invalid UTF-8.
func truncateRunes(s string, limit int) string {
	if r := []rune(s); len(r) > limit {
		return string(r[:limit])
	}
	return s
}

// UserPrefix is the stable prefix shared by every ticket channel a user
// opens in a category. Sequence numbers disambiguate the remainder.
func UserPrefix(username, categorySlug string) string {
	return Slugify(username) + "-" + categorySlug + "-"
}

// Matcher recognizes ticket channels by name for a fixed category set.
type Matcher struct {
	pattern *regexp.Regexp
}

// NewMatcher compiles the recognition pattern for the given category slugs.
// With no categories configured, nothing matches.
func NewMatcher(slugs []string) *Matcher {
	if len(slugs) == 0 {
		return &Matcher{}
	}
	quoted := make([]string, len(slugs))
	for i, s := range slugs {
		quoted[i] = regexp.QuoteMeta(s)
	}
	expr := fmt.Sprintf(`^[\w-]+-(%s)-\d+$`, strings.Join(quoted, "|"))
	return &Matcher{pattern: regexp.MustCompile(expr)}
}

// IsTicketChannel reports whether a channel name follows the ticket naming
// scheme for any configured category.
func (m *Matcher) IsTicketChannel(name string) bool {
	if m == nil || m.pattern == nil {
		return false
	}
	return m.pattern.MatchString(name)
}

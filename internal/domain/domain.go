// The domain package holds the types shared by the federation core: activities,
// the recipients they address, discovered hosts and the credentials issued by them.
package domain

import (
	"net/url"
	"strings"
)

// PublicCollection is the well-known audience marker for publicly addressed
// activities. It is a flag, never a delivery target.
const PublicCollection = "http://activityschema.org/collection/public"

// SplitAcct splits an "acct:user@host" URI, or a bare "user@host" address,
// into its parts. ok is false when the id has no "@" separator.
func SplitAcct(id string) (user, host string, ok bool) {
	id = strings.TrimPrefix(id, "acct:")
	user, host, ok = strings.Cut(id, "@")
	if user == "" || host == "" {
		return "", "", false
	}
	return user, host, ok
}

// Webfinger normalizes an actor id into a bare user@host address, or returns
// "" when the id is not address-shaped.
func Webfinger(id string) string {
	user, host, ok := SplitAcct(id)
	if !ok {
		return ""
	}
	return user + "@" + host
}

// RecipientHost returns the hostname a recipient id lives on. It understands
// both acct: addresses and plain https ids.
func RecipientHost(id string) string {
	if _, host, ok := SplitAcct(id); ok && !strings.Contains(id, "://") {
		return host
	}
	u, err := url.Parse(id)
	if err != nil {
		return ""
	}
	return u.Host
}

package domain

import "time"

// Host is a remote server's discovered federation endpoints. At most one
// record exists per hostname; a record is created by discovery and never
// mutated afterward.
type Host struct {
	Hostname              string
	RegistrationEndpoint  string
	RequestTokenEndpoint  string
	AccessTokenEndpoint   string
	AuthorizationEndpoint string
	WhoamiEndpoint        string
	Created               time.Time
	Updated               time.Time
}

// Credentials is an OAuth client issued to us by a remote host, keyed either
// by the hostname alone or by "hostname/webfinger" when attributable to a
// specific actor.
type Credentials struct {
	Key          string
	ClientID     string
	ClientSecret string
	// ExpiresAt is the issuer's expiry; the zero value means the client
	// never expires.
	ExpiresAt time.Time
	Created   time.Time
	Updated   time.Time
}

func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Actor is a local account, or the cached shape of a remote one as left
// behind by the user-discovery layer.
type Actor struct {
	// ID is the canonical acct: address.
	ID       string
	Nickname string
	Hostname string
	// Inbox is the actor's inbox URL.
	Inbox string
	Local bool
}

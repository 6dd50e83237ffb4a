package dialback

import (
	"fmt"
	"strings"
)

// Auth is the identity and token carried by a Dialback Authorization header.
type Auth struct {
	Host      string
	Webfinger string
	Token     string
}

// BuildAuthorization renders a Dialback Authorization header value. param is
// "host" or "webfinger".
func BuildAuthorization(param, identity, token string) string {
	return fmt.Sprintf("Dialback %s=%q, token=%q", param, identity, token)
}

// ParseAuthorization parses a header of the form
//
//	Dialback host="example.com", token="ab123"
//
// accepting webfinger in place of host.
func ParseAuthorization(header string) (Auth, error) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Dialback") {
		return Auth{}, fmt.Errorf("not a dialback authorization header")
	}

	var auth Auth
	for _, part := range strings.Split(rest, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return Auth{}, fmt.Errorf("malformed dialback parameter: %q", part)
		}
		value = strings.Trim(value, `"`)
		switch strings.ToLower(name) {
		case "host":
			auth.Host = value
		case "webfinger":
			auth.Webfinger = value
		case "token":
			auth.Token = value
		}
	}

	if auth.Token == "" {
		return Auth{}, fmt.Errorf("dialback authorization without token")
	}
	return auth, nil
}

// Package dialback implements the challenge/callback trust protocol: a caller
// proves control of a claimed host or user@host identity by answering a
// callback on that identity's own dialback endpoint. No pre-shared secret is
// involved; forging success requires controlling the claimed identity's server.
package dialback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/client"
	"github.com/sidereusnuntius/courier/internal/validate"
)

// Window is the clock-skew tolerance on a claim's date. The boundary is
// inclusive: a claim exactly Window old is still accepted.
const Window = 5 * time.Minute

// TrustError reports a rejected claim.
type TrustError struct {
	Reason string
	Err    error
}

func (e *TrustError) Error() string {
	return "dialback: " + e.Reason
}

func (e *TrustError) Unwrap() error {
	return e.Err
}

func rejected(reason string) error {
	return &TrustError{Reason: reason}
}

// Claim is one dialback attempt: a claimed identity, the token backing it,
// the time the claim was made and the url it was made for. Claims are
// validated synchronously and never persisted.
type Claim struct {
	// Exactly one of Host and Webfinger identifies the claimant.
	Host      string
	Webfinger string
	Token     string
	Date      time.Time
	// URL is the resource the claim was presented for.
	URL string
	// Origin, when known, is the apparent origin host of the request carrying
	// the claim; a claimed identity on another host is rejected outright.
	Origin string
}

// Form encodes the claim the way it travels on the wire, both in the original
// request's body and in the verification callback.
func (c Claim) Form() url.Values {
	form := url.Values{}
	if c.Host != "" {
		form.Set("host", c.Host)
	}
	if c.Webfinger != "" {
		form.Set("webfinger", c.Webfinger)
	}
	form.Set("token", c.Token)
	form.Set("date", c.Date.UTC().Format(http.TimeFormat))
	form.Set("url", c.URL)
	return form
}

// EndpointResolver finds the dialback endpoint of a claimed identity's host.
type EndpointResolver interface {
	DialbackEndpoint(ctx context.Context, hostname string) (string, error)
}

type Verifier struct {
	resolver EndpointResolver
	client   *client.HttpClient
	now      func() time.Time
}

func NewVerifier(resolver EndpointResolver, c *client.HttpClient) *Verifier {
	return &Verifier{
		resolver: resolver,
		client:   c,
		now:      time.Now,
	}
}

// Verify runs a claim through the dialback state machine. A nil return means
// the claim is verified; any other outcome is a TrustError. The claim's own
// fields are checked first, then the claimed identity's dialback endpoint is
// called back with the identical claim. Only a 2xx answer verifies.
func (v *Verifier) Verify(ctx context.Context, claim Claim) error {
	identityHost, err := v.check(claim)
	if err != nil {
		return err
	}

	endpoint, err := v.resolver.DialbackEndpoint(ctx, identityHost)
	if err != nil {
		return &TrustError{Reason: "no dialback endpoint for " + identityHost, Err: err}
	}

	res, err := v.client.PostForm(ctx, endpoint, claim.Form(), nil)
	if err != nil {
		return &TrustError{Reason: "callback failed", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status", res.StatusCode).
			Msg("dialback callback refused")
		return rejected(fmt.Sprintf("callback returned status %d", res.StatusCode))
	}
	return nil
}

// check validates the claim's own fields and returns the claimed identity's
// hostname.
func (v *Verifier) check(claim Claim) (string, error) {
	switch {
	case claim.Host == "" && claim.Webfinger == "":
		return "", rejected("no claimed identity")
	case claim.Host != "" && claim.Webfinger != "":
		return "", rejected("ambiguous claimed identity")
	case claim.Token == "":
		return "", rejected("missing token")
	case claim.Date.IsZero():
		return "", rejected("missing date")
	}

	identityHost := claim.Host
	if claim.Webfinger != "" {
		_, host, err := validate.Webfinger(claim.Webfinger)
		if err != nil {
			return "", &TrustError{Reason: "invalid webfinger identity", Err: err}
		}
		identityHost = host
	} else if err := validate.Hostname(claim.Host); err != nil {
		return "", &TrustError{Reason: "invalid host identity", Err: err}
	}

	if claim.Origin != "" && identityHost != claim.Origin {
		return "", rejected("claimed identity does not match request origin")
	}

	if skew := absDuration(v.now().Sub(claim.Date)); skew > Window {
		return "", rejected("stale date")
	}
	return identityHost, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

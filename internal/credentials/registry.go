// Package credentials acquires and caches the per-host OAuth clients used to
// sign outbound federation requests. The first request for an unseen host
// performs dynamic client registration, authenticated by dialback since no
// secret is shared with that host yet.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/gruf/go-mutexes"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/client"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/dialback"
	"github.com/sidereusnuntius/courier/internal/directory"
	"github.com/sidereusnuntius/courier/internal/domain"
)

// CredentialError reports a failed or incomplete client registration. The key
// stays uncached so a later call may retry.
type CredentialError struct {
	Key    string
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("registration for %s: %s", e.Key, e.Reason)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

type Registry struct {
	db        db.Credentials
	directory *directory.Directory
	client    *client.HttpClient
	tokens    *dialback.TokenSource
	locks     *mutexes.MutexMap
	// hostname is the identity this server claims when registering.
	hostname string
	now      func() time.Time
}

func New(creds db.Credentials, dir *directory.Directory, c *client.HttpClient, tokens *dialback.TokenSource, hostname string) *Registry {
	locks := mutexes.MutexMap{}
	return &Registry{
		db:        creds,
		directory: dir,
		client:    c,
		tokens:    tokens,
		locks:     &locks,
		hostname:  hostname,
		now:       time.Now,
	}
}

// GetForHost returns this server's client credentials for hostname,
// registering on first use.
func (r *Registry) GetForHost(ctx context.Context, hostname string) (domain.Credentials, error) {
	return r.get(ctx, hostname, hostname, "")
}

// GetFor returns credentials attributable to a specific actor rather than the
// host service account, keyed by the target's host plus the actor's webfinger
// address. resource is the url the credentials will be used against.
func (r *Registry) GetFor(ctx context.Context, webfinger, resource string) (domain.Credentials, error) {
	u, err := url.Parse(resource)
	if err != nil || u.Host == "" {
		return domain.Credentials{}, &CredentialError{
			Key:    webfinger,
			Reason: fmt.Sprintf("unusable resource url %q", resource),
			Err:    err,
		}
	}
	return r.get(ctx, u.Host, u.Host+"/"+webfinger, webfinger)
}

// get implements the read-through. Concurrent callers of the same uncached
// key serialize on a per-key lock; whoever enters first registers, everyone
// behind it finds the fresh row on the re-check and no second registration
// call is made.
func (r *Registry) get(ctx context.Context, hostname, key, webfinger string) (domain.Credentials, error) {
	creds, err := r.db.GetCredentials(ctx, key)
	if err == nil && !creds.Expired(r.now()) {
		return creds, nil
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return domain.Credentials{}, err
	}

	unlock := r.locks.Lock(key)
	defer unlock()

	creds, err = r.db.GetCredentials(ctx, key)
	if err == nil && !creds.Expired(r.now()) {
		return creds, nil
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return domain.Credentials{}, err
	}

	host, err := r.directory.EnsureHost(ctx, hostname)
	if err != nil {
		return domain.Credentials{}, &CredentialError{Key: key, Reason: "host discovery failed", Err: err}
	}

	creds, err = r.register(ctx, host, key, webfinger)
	if err != nil {
		return domain.Credentials{}, err
	}

	if err = r.db.CreateCredentials(ctx, creds); err != nil {
		return domain.Credentials{}, err
	}
	if err = r.db.TouchCredentials(ctx, creds.Key); err != nil {
		log.Error().Err(err).Str("key", creds.Key).Msg("credential touch failed")
	}

	log.Info().Str("key", key).Msg("registered new client")
	return r.db.GetCredentials(ctx, key)
}

func (r *Registry) register(ctx context.Context, host domain.Host, key, webfinger string) (domain.Credentials, error) {
	token, date := r.tokens.TokenFor(host.RegistrationEndpoint)

	param, identity := "host", r.hostname
	if webfinger != "" {
		param, identity = "webfinger", webfinger
	}

	form := url.Values{}
	form.Set("type", "client_associate")

	header := http.Header{}
	header.Set("Authorization", dialback.BuildAuthorization(param, identity, token))
	header.Set("Date", date.Format(http.TimeFormat))

	res, err := r.client.PostForm(ctx, host.RegistrationEndpoint, form, header)
	if err != nil {
		return domain.Credentials{}, &CredentialError{Key: key, Reason: "registration unreachable", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return domain.Credentials{}, &CredentialError{
			Key:    key,
			Reason: fmt.Sprintf("registration returned status %d", res.StatusCode),
		}
	}

	var body struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		ExpiresAt    int64  `json:"expires_at"`
	}
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return domain.Credentials{}, &CredentialError{Key: key, Reason: "unreadable registration response", Err: err}
	}
	if body.ClientID == "" || body.ClientSecret == "" {
		return domain.Credentials{}, &CredentialError{Key: key, Reason: "incomplete credential in response"}
	}

	now := r.now().UTC()
	creds := domain.Credentials{
		Key:          key,
		ClientID:     body.ClientID,
		ClientSecret: body.ClientSecret,
		Created:      now,
		Updated:      now,
	}
	if body.ExpiresAt != 0 {
		creds.ExpiresAt = time.Unix(body.ExpiresAt, 0).UTC()
	}
	return creds, nil
}

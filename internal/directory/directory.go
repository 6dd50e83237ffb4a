// Package directory resolves hostnames to their federation endpoints through
// well-known host-meta discovery, caching the result. A cached host is never
// refreshed: endpoint values are immutable once recorded.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/gruf/go-mutexes"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/client"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/domain"
	"github.com/sidereusnuntius/courier/internal/validate"
)

// Link relations a host-meta document must carry for a host to be usable.
const (
	RelRegistration  = "registration_endpoint"
	RelRequestToken  = "http://apinamespace.org/oauth/request_token"
	RelAccessToken   = "http://apinamespace.org/oauth/access_token"
	RelAuthorization = "http://apinamespace.org/oauth/authorize"
	RelWhoami        = "http://apinamespace.org/activitypub/whoami"

	// RelDialback is resolved on demand for trust verification and not part
	// of the stored host record.
	RelDialback = "dialback"
	RelLrdd     = "lrdd"
)

var requiredRels = []string{
	RelRegistration,
	RelRequestToken,
	RelAccessToken,
	RelAuthorization,
	RelWhoami,
}

// DiscoveryError reports malformed or incomplete host metadata, or an
// unreachable host.
type DiscoveryError struct {
	Host       string
	MissingRel string
	Err        error
}

func (e *DiscoveryError) Error() string {
	if e.MissingRel != "" {
		return fmt.Sprintf("discovery of %s: missing link relation %q", e.Host, e.MissingRel)
	}
	return fmt.Sprintf("discovery of %s: %s", e.Host, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

type hostMetaLink struct {
	Rel      string `json:"rel"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type hostMeta struct {
	Links []hostMetaLink `json:"links"`
}

type Directory struct {
	db     db.Hosts
	client *client.HttpClient
	locks  *mutexes.MutexMap
	https  bool
}

func New(hosts db.Hosts, c *client.HttpClient, https bool) *Directory {
	locks := mutexes.MutexMap{}
	return &Directory{
		db:     hosts,
		client: c,
		locks:  &locks,
		https:  https,
	}
}

// EnsureHost returns the cached record for hostname, or discovers and creates
// it. A cache hit has no side effects; a second call for the same hostname
// returns an identical record.
func (d *Directory) EnsureHost(ctx context.Context, hostname string) (domain.Host, error) {
	if err := validate.Hostname(hostname); err != nil {
		return domain.Host{}, &DiscoveryError{Host: hostname, Err: err}
	}

	host, err := d.db.GetHost(ctx, hostname)
	if err == nil {
		return host, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return domain.Host{}, err
	}

	unlock := d.locks.Lock(hostname)
	defer unlock()

	// A concurrent caller may have finished discovery while we waited.
	host, err = d.db.GetHost(ctx, hostname)
	if err == nil {
		return host, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return domain.Host{}, err
	}

	host, err = d.discover(ctx, hostname)
	if err != nil {
		return domain.Host{}, err
	}

	if err = d.db.CreateHost(ctx, host); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			// Someone else already discovered it; theirs wins.
			return d.db.GetHost(ctx, hostname)
		}
		return domain.Host{}, err
	}

	log.Info().Str("hostname", hostname).Msg("discovered new host")
	return d.db.GetHost(ctx, hostname)
}

// DialbackEndpoint resolves a host's dialback endpoint from its host-meta
// document. The result is not persisted.
func (d *Directory) DialbackEndpoint(ctx context.Context, hostname string) (string, error) {
	doc, err := d.fetchHostMeta(ctx, hostname)
	if err != nil {
		return "", err
	}
	for _, link := range doc.Links {
		if link.Rel == RelDialback && link.Href != "" {
			return link.Href, nil
		}
	}
	return "", &DiscoveryError{Host: hostname, MissingRel: RelDialback}
}

func (d *Directory) discover(ctx context.Context, hostname string) (domain.Host, error) {
	doc, err := d.fetchHostMeta(ctx, hostname)
	if err != nil {
		return domain.Host{}, err
	}

	endpoints := map[string]string{}
	for _, link := range doc.Links {
		if link.Href != "" {
			endpoints[link.Rel] = link.Href
		}
	}
	for _, rel := range requiredRels {
		if endpoints[rel] == "" {
			return domain.Host{}, &DiscoveryError{Host: hostname, MissingRel: rel}
		}
	}

	now := time.Now().UTC()
	return domain.Host{
		Hostname:              hostname,
		RegistrationEndpoint:  endpoints[RelRegistration],
		RequestTokenEndpoint:  endpoints[RelRequestToken],
		AccessTokenEndpoint:   endpoints[RelAccessToken],
		AuthorizationEndpoint: endpoints[RelAuthorization],
		WhoamiEndpoint:        endpoints[RelWhoami],
		Created:               now,
		Updated:               now,
	}, nil
}

func (d *Directory) fetchHostMeta(ctx context.Context, hostname string) (hostMeta, error) {
	wellKnown := config.InstanceURL(hostname, d.https).JoinPath(".well-known", "host-meta.json")

	var doc hostMeta
	if err := d.client.GetJSON(ctx, wellKnown.String(), &doc); err != nil {
		return hostMeta{}, &DiscoveryError{Host: hostname, Err: err}
	}
	return doc, nil
}

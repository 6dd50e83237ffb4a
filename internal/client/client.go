package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"code.superseriousbusiness.org/httpsig"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/domain"
)

var prefs = []httpsig.Algorithm{httpsig.HMAC_SHA256}
var getHeaders = []string{httpsig.RequestTarget, "date"}
var postHeaders = []string{httpsig.RequestTarget, "date", "digest"}

// HttpClient performs the outbound side of federation: discovery fetches,
// dialback callbacks, registration posts and signed inbox deliveries. Signed
// requests carry an HTTP signature keyed by the client credentials the remote
// host issued to us: keyId is the client id, the MAC key the client secret.
type HttpClient struct {
	client    *http.Client
	userAgent string
}

func New(client *http.Client) *HttpClient {
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		client.Timeout = 30 * time.Second
	}
	return &HttpClient{
		client:    client,
		userAgent: "courier",
	}
}

// GetJSON fetches a JSON document without authentication, as used for
// well-known discovery documents.
func (c *HttpClient) GetJSON(ctx context.Context, rawurl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return c.statusError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// GetJSONAs fetches a JSON document with a request signed by creds, as used
// for remote collection pages.
func (c *HttpClient) GetJSONAs(ctx context.Context, rawurl string, creds domain.Credentials, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	signer, _, err := httpsig.NewSigner(prefs, httpsig.DigestSha256, getHeaders, httpsig.Signature, 3600)
	if err != nil {
		return err
	}
	if err = signer.SignRequest([]byte(creds.ClientSecret), creds.ClientID, req, nil); err != nil {
		log.Error().Err(err).Msg("error while signing request")
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return c.statusError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// PostActivity delivers an activity document to an inbox, signed with creds.
func (c *HttpClient) PostActivity(ctx context.Context, inbox string, creds domain.Credentials, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	signer, _, err := httpsig.NewSigner(prefs, httpsig.DigestSha256, postHeaders, httpsig.Signature, 3600)
	if err != nil {
		return err
	}
	if err = signer.SignRequest([]byte(creds.ClientSecret), creds.ClientID, req, body); err != nil {
		return err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return c.statusError(res)
	}
	return nil
}

// PostForm posts a form-encoded request, with optional extra headers. Used
// for dialback callbacks and registration, which authenticate by other means.
func (c *HttpClient) PostForm(ctx context.Context, rawurl string, form url.Values, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	return c.client.Do(req)
}

// PostJSON posts a JSON document and only reports whether it was accepted.
func (c *HttpClient) PostJSON(ctx context.Context, rawurl string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return c.statusError(res)
	}
	return nil
}

func (c *HttpClient) statusError(res *http.Response) error {
	content, _ := io.ReadAll(res.Body)
	log.Error().Int("code", res.StatusCode).Bytes("response body", content).Msg("request error")
	return fmt.Errorf("error %d: %s", res.StatusCode, res.Status)
}

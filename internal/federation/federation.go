// Package federation bundles the components remote-facing code depends on.
// Everything is wired here explicitly and passed down by value; nothing is
// resolved through package-level state.
package federation

import (
	"net/http"

	"github.com/sidereusnuntius/courier/internal/client"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/credentials"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/dialback"
	"github.com/sidereusnuntius/courier/internal/directory"
)

// Context is the dependency bundle handed to the distributor, the delivery
// queue and the inbound federation handlers.
type Context struct {
	Client    *client.HttpClient
	Directory *directory.Directory
	Tokens    *dialback.TokenSource
	Verifier  *dialback.Verifier
	Registry  *credentials.Registry
}

func New(cfg *config.Configuration, d db.DB, httpClient *http.Client) *Context {
	c := client.New(httpClient)
	dir := directory.New(d, c, cfg.Https)
	tokens := dialback.NewTokenSource()

	return &Context{
		Client:    c,
		Directory: dir,
		Tokens:    tokens,
		Verifier:  dialback.NewVerifier(dir, c),
		Registry:  credentials.New(d, dir, c, tokens, cfg.Hostname),
	}
}

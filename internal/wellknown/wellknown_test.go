package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/db/impl"
	"github.com/sidereusnuntius/courier/internal/directory"
	"github.com/sidereusnuntius/courier/internal/domain"
	"github.com/sidereusnuntius/courier/internal/initialization"
	"github.com/sidereusnuntius/courier/internal/state"
)

var DB db.DB
var ctx = context.Background()

func TestMain(m *testing.M) {
	d, err := initialization.OpenDB("file:temp?mode=memory")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open connection: %s", err)
		return
	}

	// The named in-memory database exists per connection.
	d.SetMaxOpenConns(1)

	err = initialization.SetupDB(d, "../../migrations", "temp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %s", err)
		return
	}
	DB = impl.New(config.Configuration{Hostname: "test.courier"}, d)
	m.Run()
	d.Close()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	base, _ := url.Parse("https://test.courier")
	st := state.State{
		DB: DB,
		Config: config.Configuration{
			Hostname: "test.courier",
			Https:    true,
			Url:      base,
		},
	}

	router := chi.NewRouter()
	Mount(&st, router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestHostMetaEndpoint(t *testing.T) {
	server := newServer(t)

	res, err := http.Get(server.URL + "/.well-known/host-meta.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var doc HostMetaResponse
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("unreadable document: %v", err)
	}

	links := map[string]Link{}
	for _, link := range doc.Links {
		links[link.Rel] = link
	}

	required := []string{
		directory.RelRegistration,
		directory.RelRequestToken,
		directory.RelAccessToken,
		directory.RelAuthorization,
		directory.RelWhoami,
		directory.RelDialback,
	}
	for _, rel := range required {
		if links[rel].Href == "" {
			t.Errorf("host-meta must advertise %q", rel)
		}
	}
	if links[directory.RelLrdd].Template == "" {
		t.Error("host-meta must advertise a webfinger template")
	}
}

func TestWebfingerEndpoint(t *testing.T) {
	server := newServer(t)

	actor := domain.Actor{
		ID:       "acct:wf_alice@test.courier",
		Nickname: "wf_alice",
		Hostname: "test.courier",
		Inbox:    "https://test.courier/api/user/wf_alice/inbox",
		Local:    true,
	}
	if err := DB.CreateActor(ctx, actor); err != nil {
		t.Fatalf("fixture actor: %s", err)
	}

	res, err := http.Get(server.URL + "/.well-known/webfinger?resource=acct:wf_alice@test.courier")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var doc WebfingerResponse
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("unreadable document: %v", err)
	}
	if doc.Subject != "acct:wf_alice@test.courier" {
		t.Errorf("unexpected subject %q", doc.Subject)
	}

	var inbox string
	for _, link := range doc.Links {
		if link.Rel == "activity-inbox" {
			inbox = link.Href
		}
	}
	if inbox != actor.Inbox {
		t.Errorf("expected the actor's inbox, got %q", inbox)
	}
}

func TestWebfingerEndpointUnknownActor(t *testing.T) {
	server := newServer(t)

	res, err := http.Get(server.URL + "/.well-known/webfinger?resource=acct:nobody@test.courier")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.StatusCode)
	}
}

package impl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/domain"
	"github.com/sidereusnuntius/courier/internal/initialization"
)

var DB db.DB
var ctx = context.Background()

func TestMain(m *testing.M) {
	cfg := config.Configuration{
		Hostname: "test.courier",
	}
	d, err := initialization.OpenDB("file:temp?mode=memory")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open connection: %s", err)
		return
	}

	// The named in-memory database exists per connection.
	d.SetMaxOpenConns(1)

	err = initialization.SetupDB(d, "../../../migrations", "temp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %s", err)
		return
	}
	DB = New(cfg, d)
	m.Run()
	d.Close()
}

func sampleHost(hostname string) domain.Host {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.Host{
		Hostname:              hostname,
		RegistrationEndpoint:  "https://" + hostname + "/api/client/register",
		RequestTokenEndpoint:  "https://" + hostname + "/oauth/request_token",
		AccessTokenEndpoint:   "https://" + hostname + "/oauth/access_token",
		AuthorizationEndpoint: "https://" + hostname + "/oauth/authorize",
		WhoamiEndpoint:        "https://" + hostname + "/api/whoami",
		Created:               now,
		Updated:               now,
	}
}

func TestCreateHost(t *testing.T) {
	want := sampleHost("social.example")
	if err := DB.CreateHost(ctx, want); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := DB.GetHost(ctx, "social.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected host record (-want +got):\n%s", diff)
	}
}

func TestCreateHostDuplicate(t *testing.T) {
	host := sampleHost("taken.example")
	if err := DB.CreateHost(ctx, host); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	host.WhoamiEndpoint = "https://taken.example/api/whoami2"
	err := DB.CreateHost(ctx, host)
	if !errors.Is(err, db.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := DB.GetHost(ctx, "taken.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.WhoamiEndpoint != "https://taken.example/api/whoami" {
		t.Error("a losing insert must not change the stored record")
	}
}

func TestGetHostNotFound(t *testing.T) {
	_, err := DB.GetHost(ctx, "unknown.example")
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialsUpsert(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	creds := domain.Credentials{
		Key:          "remote.example",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Created:      now,
		Updated:      now,
	}

	if err := DB.CreateCredentials(ctx, creds); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	creds.ClientSecret = "secret-2"
	creds.Updated = now.Add(time.Hour)
	if err := DB.CreateCredentials(ctx, creds); err != nil {
		t.Fatalf("a second create for the same key must replace, got: %s", err)
	}

	got, err := DB.GetCredentials(ctx, "remote.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.ClientSecret != "secret-2" {
		t.Errorf("expected the replacement secret, got %q", got.ClientSecret)
	}
	if !got.ExpiresAt.IsZero() {
		t.Errorf("expected a non-expiring client, got expiry %s", got.ExpiresAt)
	}
}

func TestCredentialsExpiry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	creds := domain.Credentials{
		Key:          "expiring.example",
		ClientID:     "client-2",
		ClientSecret: "secret",
		ExpiresAt:    now.Add(time.Hour),
		Created:      now,
		Updated:      now,
	}
	if err := DB.CreateCredentials(ctx, creds); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := DB.GetCredentials(ctx, "expiring.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.Expired(now) {
		t.Error("the client should still be live")
	}
	if !got.Expired(now.Add(2 * time.Hour)) {
		t.Error("the client should have expired")
	}
}

func TestTouchCredentials(t *testing.T) {
	if err := DB.TouchCredentials(ctx, "no-such-key"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	creds := domain.Credentials{
		Key:          "touched.example",
		ClientID:     "client-3",
		ClientSecret: "secret",
		Created:      now,
		Updated:      now,
	}
	if err := DB.CreateCredentials(ctx, creds); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := DB.TouchCredentials(ctx, "touched.example"); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
}

func TestClients(t *testing.T) {
	if err := DB.CreateClient(ctx, "issued-1", "s3cret", "peer.example"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := DB.CreateClient(ctx, "issued-1", "other", "peer.example"); !errors.Is(err, db.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := DB.CreateClient(ctx, "issued-2", "s3cret2", "peer.example"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	secret, err := DB.GetClientSecret(ctx, "issued-1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if secret != "s3cret" {
		t.Errorf("expected the issued secret, got %q", secret)
	}

	count, err := DB.CountClientsFor(ctx, "peer.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if count != 2 {
		t.Errorf("expected 2 issued clients, got %d", count)
	}
}

func TestActors(t *testing.T) {
	local := domain.Actor{
		ID:       "acct:alice@test.courier",
		Nickname: "alice",
		Hostname: "test.courier",
		Inbox:    "https://test.courier/api/user/alice/inbox",
		Local:    true,
	}
	remote := domain.Actor{
		ID:       "acct:alice@far.example",
		Nickname: "alice",
		Hostname: "far.example",
		Inbox:    "https://far.example/api/user/alice/inbox",
	}
	if err := DB.CreateActor(ctx, local); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := DB.CreateActor(ctx, remote); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := DB.GetActorByNickname(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(local, got); diff != "" {
		t.Errorf("nickname lookup must only see local actors (-want +got):\n%s", diff)
	}

	got, err = DB.GetActor(ctx, "acct:alice@far.example")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff(remote, got); diff != "" {
		t.Errorf("unexpected actor (-want +got):\n%s", diff)
	}

	if _, err = DB.GetActor(ctx, "acct:nobody@test.courier"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMembershipPaging(t *testing.T) {
	collection := "https://test.courier/api/user/alice/followers"
	members := []string{
		"acct:m1@far.example",
		"acct:m2@far.example",
		"acct:m3@far.example",
		"acct:m4@far.example",
		"acct:m5@far.example",
	}
	for _, m := range members {
		if err := DB.AddMember(ctx, collection, m); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}
	// Re-adding is a no-op.
	if err := DB.AddMember(ctx, collection, members[0]); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var paged []string
	for offset := int64(0); ; offset += 2 {
		page, err := DB.GetMembersPage(ctx, collection, offset, 2)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(page) == 0 {
			break
		}
		paged = append(paged, page...)
	}
	if diff := cmp.Diff(members, paged); diff != "" {
		t.Errorf("paging must walk members once in insertion order (-want +got):\n%s", diff)
	}

	if err := DB.RemoveMember(ctx, collection, members[0]); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	page, err := DB.GetMembersPage(ctx, collection, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(page) != 4 {
		t.Errorf("expected 4 members after removal, got %d", len(page))
	}
}

func TestInboxIdempotent(t *testing.T) {
	actor := "acct:bob@test.courier"
	activity := []byte(`{"id":"act-1","verb":"post"}`)

	for range 3 {
		if err := DB.AddToInbox(ctx, actor, "act-1", activity); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	count, err := DB.CountInbox(ctx, actor)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if count != 1 {
		t.Errorf("re-delivery must not duplicate, got %d copies", count)
	}

	contains, err := DB.InboxContains(ctx, actor, "act-1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !contains {
		t.Error("expected the delivered activity to be present")
	}
	contains, err = DB.InboxContains(ctx, actor, "act-2")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if contains {
		t.Error("an undelivered activity must not be present")
	}
}

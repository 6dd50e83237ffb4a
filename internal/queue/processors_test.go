package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/db/impl"
	"github.com/sidereusnuntius/courier/internal/directory"
	"github.com/sidereusnuntius/courier/internal/federation"
	"github.com/sidereusnuntius/courier/internal/initialization"
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

// fakeHost is a remote server that registers any client and answers inbox
// posts with a fixed status.
type fakeHost struct {
	hostname    string
	inboxStatus int
	deliveries  atomic.Int32
	lastSigned  atomic.Bool
}

func newFakeHost(t *testing.T, inboxStatus int) *fakeHost {
	t.Helper()
	h := &fakeHost{inboxStatus: inboxStatus}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/host-meta.json", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + h.hostname
		doc := map[string]any{
			"links": []map[string]string{
				{"rel": directory.RelRegistration, "href": base + "/api/client/register"},
				{"rel": directory.RelRequestToken, "href": base + "/oauth/request_token"},
				{"rel": directory.RelAccessToken, "href": base + "/oauth/access_token"},
				{"rel": directory.RelAuthorization, "href": base + "/oauth/authorize"},
				{"rel": directory.RelWhoami, "href": base + "/api/whoami"},
			},
		}
		json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/api/client/register", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"client_id":     "issued-client",
			"client_secret": "issued-secret",
		})
	})
	mux.HandleFunc("/api/user/alice/inbox", func(w http.ResponseWriter, r *http.Request) {
		h.deliveries.Add(1)
		h.lastSigned.Store(r.Header.Get("Signature") != "" && r.Header.Get("Digest") != "")
		w.WriteHeader(h.inboxStatus)
	})

	server := httptest.NewServer(mux)
	h.hostname = strings.TrimPrefix(server.URL, "http://")
	t.Cleanup(server.Close)
	return h
}

func newQueueImpl() *queueImpl {
	cfg := config.Configuration{Hostname: "test.courier"}
	fed := federation.New(&cfg, DB, nil)
	return &queueImpl{fed: fed}
}

func (h *fakeHost) deliverJobFor() DeliverJob {
	return DeliverJob{
		Host:     h.hostname,
		Inbox:    "http://" + h.hostname + "/api/user/alice/inbox",
		Activity: json.RawMessage(`{"id":"act-1","verb":"post"}`),
	}
}

func TestDeliverJob(t *testing.T) {
	host := newFakeHost(t, http.StatusOK)
	q := newQueueImpl()

	if err := q.deliverJob(ctx, host.deliverJobFor()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.deliveries.Load() != 1 {
		t.Errorf("expected one delivery, got %d", host.deliveries.Load())
	}
	if !host.lastSigned.Load() {
		t.Error("deliveries must carry a signature and digest")
	}
}

func TestDeliverJobIsolation(t *testing.T) {
	broken := newFakeHost(t, http.StatusInternalServerError)
	healthy := newFakeHost(t, http.StatusOK)
	q := newQueueImpl()

	err := q.deliverJob(ctx, broken.deliverJobFor())
	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected a DeliveryError, got %v", err)
	}

	// The failure stays with its own task.
	if err := q.deliverJob(ctx, healthy.deliverJobFor()); err != nil {
		t.Errorf("a failing sibling must not affect this delivery: %v", err)
	}
	if healthy.deliveries.Load() != 1 {
		t.Errorf("expected one delivery, got %d", healthy.deliveries.Load())
	}
}

func TestDeliverJobWithoutCredentials(t *testing.T) {
	// No server behind the hostname: discovery fails, so must the task.
	q := newQueueImpl()
	err := q.deliverJob(ctx, DeliverJob{
		Host:     "unreachable.invalid",
		Inbox:    "http://unreachable.invalid/api/user/alice/inbox",
		Activity: json.RawMessage(`{"id":"act-2","verb":"post"}`),
	})
	if err == nil {
		t.Error("expected the task to fail without credentials")
	}
}

func TestFirehoseJobBestEffort(t *testing.T) {
	var pings atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pings.Add(1)
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer server.Close()

	q := newQueueImpl()
	err := q.firehoseJob(ctx, FirehoseJob{
		URL:      server.URL,
		Activity: json.RawMessage(`{"id":"act-3","verb":"post"}`),
	})
	if err != nil {
		t.Errorf("the firehose ping is best effort, got %v", err)
	}
	if pings.Load() != 1 {
		t.Errorf("expected one ping, got %d", pings.Load())
	}
}

package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/adapter/outbound/memory"
	"github.com/medistore/medistore/internal/domain/notify"
	"github.com/medistore/medistore/internal/domain/session"
	"github.com/medistore/medistore/internal/domain/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer routes "METHOD /path" patterns and counts hits per pattern.
type fakeServer struct {
	*httptest.Server
	mux  *http.ServeMux
	mu   sync.Mutex
	hits map[string]int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{mux: http.NewServeMux(), hits: make(map[string]int)}
	f.Server = httptest.NewServer(f.mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[pattern]++
		f.mu.Unlock()
		h(w, r)
	})
}

func (f *fakeServer) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *fakeServer) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func success(data any) map[string]any {
	return map[string]any{"success": true, "message": "ok", "data": data}
}

func failure(msg string) map[string]any {
	return map[string]any{"success": false, "message": msg}
}

var testUser = session.User{
	ID:        "u1",
	Name:      "Asha Rao",
	Email:     "a@b.com",
	Role:      session.RoleOwner,
	StoreName: "Rao Medicals",
}

// harness wires the services the way the CLI does, against a fake server.
type harness struct {
	srv      *fakeServer
	store    *memory.Store
	client   *httpapi.Client
	api      *AuthAPI
	sessions *SessionStore
	notes    *notify.Recorder
}

func newHarness(t *testing.T, opts ...SessionOption) *harness {
	t.Helper()
	h := &harness{
		srv:   newFakeServer(t),
		store: memory.NewStore(),
		notes: &notify.Recorder{},
	}
	h.client = httpapi.NewClient(h.store,
		httpapi.WithBaseURL(h.srv.URL),
		httpapi.WithHTTPClient(h.srv.Client()),
		httpapi.WithTimeout(2*time.Second),
		httpapi.WithLogger(testLogger()),
	)
	h.api = NewAuthAPI(h.client, h.store, testLogger())
	h.sessions = NewSessionStore(h.api, h.store, testLogger(), append([]SessionOption{WithNotifier(h.notes)}, opts...)...)
	h.client.SetRefresher(h.sessions)
	h.client.SetInvalidationHook(h.sessions.Invalidate)
	return h
}

// seedSession stores credentials as a previous launch would have.
func (h *harness) seedSession(t *testing.T, token string) {
	t.Helper()
	if err := h.store.SetString(storage.KeyAuthToken, token); err != nil {
		t.Fatal(err)
	}
	if err := storage.SetObject(h.store, storage.KeyUserData, testUser); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) storedToken() string {
	return storage.GetStringOrEmpty(h.store, storage.KeyAuthToken)
}

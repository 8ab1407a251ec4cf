package syncbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hearthline-bakery/hearthline-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeServer fakes the external row store: a token endpoint plus store
// routes whose first failBefore requests return the given failure status
type storeServer struct {
	mu         sync.Mutex
	srv        *httptest.Server
	storeHits  int
	failBefore int
	failStatus int
	lastAuth   string
	lastBody   map[string]interface{}
}

func newStoreServer(t *testing.T) *storeServer {
	t.Helper()
	s := &storeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "store-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/stores/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.storeHits++
		s.lastAuth = r.Header.Get("Authorization")
		if r.Body != nil {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				s.lastBody = body
			}
		}
		if s.storeHits <= s.failBefore {
			w.WriteHeader(s.failStatus)
			return
		}
		if strings.Contains(r.URL.Path, "/intake") && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"rows": []IntakeRow{{ID: "00000001"}},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *storeServer) hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeHits
}

func newTestClient(t *testing.T, s *storeServer) *Client {
	t.Helper()
	keyPEM, _ := testKeyPEM(t)
	tokens, err := NewTokenSource(Credentials{
		ServiceEmail:  "sync@hearthline.example",
		PrivateKeyPEM: keyPEM,
		TokenURL:      s.srv.URL + "/oauth/token",
	})
	require.NoError(t, err)

	client, err := NewClient(s.srv.URL, "store-1", tokens)
	require.NoError(t, err)
	client.backoffBase = time.Millisecond
	return client
}

func TestNewClientValidatesConfiguration(t *testing.T) {
	_, err := NewClient("", "store-1", nil)
	assert.ErrorIs(t, err, services.ErrConfigMissing)
	_, err = NewClient("https://store.example.com", "", nil)
	assert.ErrorIs(t, err, services.ErrConfigMissing)
}

func TestUpsertRowSendsBearerAndBody(t *testing.T) {
	s := newStoreServer(t)
	client := newTestClient(t, s)

	err := client.UpsertRow(context.Background(), TableFlavors, "7",
		map[string]interface{}{"name": "Classic Sourdough"})
	require.NoError(t, err)

	s.mu.Lock()
	assert.Equal(t, "Bearer store-token", s.lastAuth)
	assert.Equal(t, "Classic Sourdough", s.lastBody["name"])
	s.mu.Unlock()
	assert.Equal(t, 1, s.hits())
}

func TestListIntakeRows(t *testing.T) {
	s := newStoreServer(t)
	client := newTestClient(t, s)

	rows, err := client.ListIntakeRows(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "00000001", rows[0].ID)
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	s := newStoreServer(t)
	s.failBefore = 2
	s.failStatus = http.StatusServiceUnavailable
	client := newTestClient(t, s)

	err := client.MarkIntakeProcessed(context.Background(), "00000001", IntakeResultProcessed)
	require.NoError(t, err)
	assert.Equal(t, 3, s.hits(), "two failures, then success")
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	s := newStoreServer(t)
	s.failBefore = 100
	s.failStatus = http.StatusInternalServerError
	client := newTestClient(t, s)

	err := client.UpsertRow(context.Background(), TableFlavors, "7", map[string]interface{}{})
	assert.ErrorIs(t, err, services.ErrSyncUnavailable)
	assert.Equal(t, client.maxAttempts, s.hits())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	s := newStoreServer(t)
	s.failBefore = 100
	s.failStatus = http.StatusForbidden
	client := newTestClient(t, s)

	err := client.UpsertRow(context.Background(), TableFlavors, "7", map[string]interface{}{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrSyncUnavailable, "4xx is permanent, not transient")
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, 1, s.hits(), "a rejected request is not replayed")
}

func TestRetryStopsWhenContextIsCanceled(t *testing.T) {
	s := newStoreServer(t)
	s.failBefore = 100
	s.failStatus = http.StatusInternalServerError
	client := newTestClient(t, s)
	client.backoffBase = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := client.UpsertRow(ctx, TableFlavors, "7", map[string]interface{}{})
	assert.ErrorIs(t, err, services.ErrSyncUnavailable)
	assert.Less(t, time.Since(start), time.Second, "cancellation cuts the backoff short")
}

package siblingclient

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func entitiesResponse(ids ...string) []byte {
	entities := make([]map[string]any, len(ids))
	for i, id := range ids {
		entities[i] = map[string]any{"__typename": "User", "id": id}
	}
	payload := map[string]any{"data": map[string]any{"_entities": entities}}
	b, _ := json.Marshal(payload)
	return b
}

func TestGetUsers_Success(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(entitiesResponse(id.String()))
	}))
	defer srv.Close()

	c := NewClient(Config{Name: "users", URL: srv.URL, Timeout: time.Second, Breaker: DefaultBreakerSettings("users")}, testLogger())
	refs, err := c.GetUsers(t.Context(), []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, id, refs[0].ID)
	assert.False(t, refs[0].Stub)
}

func TestGetUsers_MissingEntityIsReportedAsStub(t *testing.T) {
	requested := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(entitiesResponse()) // sibling has no such user
	}))
	defer srv.Close()

	c := NewClient(Config{Name: "users", URL: srv.URL, Timeout: time.Second, Breaker: DefaultBreakerSettings("users")}, testLogger())
	refs, err := c.GetUsers(t.Context(), []uuid.UUID{requested})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Stub, "a confirmed-absent entity is reported as a stub, not an error")
}

func TestGetUsers_RetriesOnceOnTransientThenSucceeds(t *testing.T) {
	id := uuid.New()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(entitiesResponse(id.String()))
	}))
	defer srv.Close()

	c := NewClient(Config{Name: "users", URL: srv.URL, Timeout: time.Second, Breaker: DefaultBreakerSettings("users")}, testLogger())
	refs, err := c.GetUsers(t.Context(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, refs[0].Stub)
}

func TestGetUsers_PermanentErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	id := uuid.New()
	c := NewClient(Config{Name: "users", URL: srv.URL, Timeout: time.Second, Breaker: DefaultBreakerSettings("users")}, testLogger())
	refs, err := c.GetUsers(t.Context(), []uuid.UUID{id})
	require.NoError(t, err, "a failed call degrades to a stub rather than propagating an error")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, refs[0].Stub)
}

func TestGetUsers_CircuitOpenFallsBackToStubsWithoutCallingSibling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	settings := DefaultBreakerSettings("users")
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 }
	settings.Timeout = time.Hour
	c := NewClient(Config{Name: "users", URL: srv.URL, Timeout: 50 * time.Millisecond, Breaker: settings}, testLogger())

	id := uuid.New()
	_, err := c.GetUsers(t.Context(), []uuid.UUID{id})
	require.NoError(t, err)
	callsAfterTrip := atomic.LoadInt32(&calls)
	require.Greater(t, callsAfterTrip, int32(0))

	refs, err := c.GetUsers(t.Context(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.True(t, refs[0].Stub)
	assert.Equal(t, callsAfterTrip, atomic.LoadInt32(&calls), "circuit open must short-circuit without reaching the sibling")
}

func TestGetUser_EmptyIDsNoop(t *testing.T) {
	c := NewClient(Config{Name: "users", URL: "http://unused.invalid", Timeout: time.Second, Breaker: DefaultBreakerSettings("users")}, testLogger())
	refs, err := c.GetUsers(t.Context(), nil)
	require.NoError(t, err)
	assert.Nil(t, refs)
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/infrastructure/storage/postgres"
)

type fakeRecord struct {
	operation, hash string
	done            bool
	status          int
	contentType     string
	body            []byte
}

type fakeIdempotencyStore struct {
	mu       sync.Mutex
	records  map[string]*fakeRecord
	released int
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]*fakeRecord{}}
}

func (s *fakeIdempotencyStore) AcquireKey(_ context.Context, tenantID id.ID, key, _, operation, requestHash string) (*postgres.IdempotencyReplay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := tenantID.String() + "/" + key
	rec, ok := s.records[k]
	if !ok {
		s.records[k] = &fakeRecord{operation: operation, hash: requestHash}
		return nil, nil
	}
	if rec.operation != operation || rec.hash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if !rec.done {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return &postgres.IdempotencyReplay{StatusCode: rec.status, ContentType: rec.contentType, Body: rec.body}, nil
}

func (s *fakeIdempotencyStore) finish(tenantID id.ID, key string, status int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[tenantID.String()+"/"+key]
	rec.done, rec.status, rec.contentType, rec.body = true, status, contentType, body
	return nil
}

func (s *fakeIdempotencyStore) CompleteKey(_ context.Context, tenantID id.ID, key string, status int, contentType string, response any) error {
	return s.finish(tenantID, key, status, contentType, response)
}

func (s *fakeIdempotencyStore) FailKey(_ context.Context, tenantID id.ID, key string, status int, contentType string, response any) error {
	return s.finish(tenantID, key, status, contentType, response)
}

func (s *fakeIdempotencyStore) ReleaseKey(_ context.Context, tenantID id.ID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tenantID.String()+"/"+key)
	s.released++
	return nil
}

// idempotencyEngine mounts a handler that counts executions; its outcome is
// chosen per request by the "outcome" query parameter.
func idempotencyEngine(store IdempotencyStore, tenantID id.ID, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(tenant.WithTenantID(c.Request.Context(), tenantID))
		c.Next()
	})
	r.Use(Idempotency(store))
	handler := func(c *gin.Context) {
		*calls++
		switch c.Query("outcome") {
		case "reject":
			_ = c.Error(apperror.NewBusinessRule("OVERPAYMENT", "amount exceeds outstanding"))
		case "crash":
			_ = c.Error(apperror.NewInternal(assert.AnError))
		default:
			body := gin.H{"call": *calls}
			CompleteIdempotency(c, http.StatusCreated, "application/json", body)
			c.JSON(http.StatusCreated, body)
		}
	}
	r.POST("/payments-out", handler)
	r.POST("/purchase-bills", handler)
	return r
}

func post(r http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysCompletedRequest(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	r := idempotencyEngine(store, id.New(), &calls)

	first := post(r, "/payments-out", "k-1", `{"amount":"10"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(r, "/payments-out", "k-1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotency_WithoutKeyAlwaysExecutes(t *testing.T) {
	calls := 0
	r := idempotencyEngine(newFakeIdempotencyStore(), id.New(), &calls)

	post(r, "/payments-out", "", `{}`)
	post(r, "/payments-out", "", `{}`)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_KeyReuseWithDifferentRequest(t *testing.T) {
	calls := 0
	r := idempotencyEngine(newFakeIdempotencyStore(), id.New(), &calls)

	require.Equal(t, http.StatusCreated, post(r, "/payments-out", "k-1", `{"amount":"10"}`).Code)

	rec := post(r, "/payments-out", "k-1", `{"amount":"11"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(r, "/purchase-bills", "k-1", `{"amount":"10"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_BusinessErrorIsReplayed(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	r := idempotencyEngine(store, id.New(), &calls)

	first := post(r, "/payments-out?outcome=reject", "k-2", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	second := post(r, "/payments-out?outcome=reject", "k-2", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Contains(t, second.Body.String(), "OVERPAYMENT")
	assert.Equal(t, 1, calls)
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	r := idempotencyEngine(store, id.New(), &calls)

	require.Equal(t, http.StatusInternalServerError, post(r, "/payments-out?outcome=crash", "k-3", `{}`).Code)
	assert.Equal(t, 1, store.released)

	require.Equal(t, http.StatusInternalServerError, post(r, "/payments-out?outcome=crash", "k-3", `{}`).Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_KeysAreTenantScoped(t *testing.T) {
	store := newFakeIdempotencyStore()
	callsA, callsB := 0, 0
	a := idempotencyEngine(store, id.New(), &callsA)
	b := idempotencyEngine(store, id.New(), &callsB)

	require.Equal(t, http.StatusCreated, post(a, "/payments-out", "shared", `{}`).Code)
	rec := post(b, "/payments-out", "shared", `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, callsA)
	assert.Equal(t, 1, callsB)
}

func TestIdempotency_RejectsLongKey(t *testing.T) {
	calls := 0
	r := idempotencyEngine(newFakeIdempotencyStore(), id.New(), &calls)

	rec := post(r, "/payments-out", strings.Repeat("k", 256), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)
}

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCachedHandlerServesSecondRequestFromCache(t *testing.T) {
	calls := 0
	handler := cachedHandler(time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"n":1}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)

	rec1 := httptest.NewRecorder()
	handler(rec1, req)
	require.Equal(t, "", rec1.Header().Get("X-Cache"))

	rec2 := httptest.NewRecorder()
	handler(rec2, req)
	require.Equal(t, "HIT", rec2.Header().Get("X-Cache"))

	require.Equal(t, 1, calls)
}

func TestCachedHandlerDoesNotCacheErrorResponses(t *testing.T) {
	calls := 0
	handler := cachedHandler(time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/statistics/error", nil)

	handler(httptest.NewRecorder(), req)
	handler(httptest.NewRecorder(), req)

	require.Equal(t, 2, calls)
}

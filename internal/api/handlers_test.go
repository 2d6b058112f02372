package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/chicoferreira/contratopublico-go/internal/models"
	"github.com/chicoferreira/contratopublico-go/internal/store"
)

type fakeSearch struct {
	resp      models.SearchResponse
	searchErr error
	upserted  []models.SearchProjection
	upsertErr error
}

func (f *fakeSearch) SearchContracts(req models.SearchRequest) (models.SearchResponse, error) {
	return f.resp, f.searchErr
}

func (f *fakeSearch) UpsertBatch(docs []models.SearchProjection) error {
	f.upserted = docs
	return f.upsertErr
}

func (f *fakeSearch) DeleteAll() error { return nil }

type fakeRelational struct {
	contracts  map[int64]models.Contract
	idsInRange []int64
}

func (f *fakeRelational) GetContract(ctx context.Context, id int64) (models.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return models.Contract{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeRelational) ContractIDsInRange(ctx context.Context, minID, maxID int64) ([]int64, error) {
	return f.idsInRange, nil
}

type fakeRollup struct {
	rollup models.StatisticsRollup
}

func (f *fakeRollup) Rollup() models.StatisticsRollup { return f.rollup }

func newTestServer(search *fakeSearch, relational *fakeRelational, rollup *fakeRollup) *Server {
	return &Server{
		search:     search,
		relational: relational,
		aggregator: rollup,
		auth:       NewAuthMiddleware("test-secret"),
		hub:        newHub(),
	}
}

func TestHandleSearchReturnsIndexResults(t *testing.T) {
	s := newTestServer(&fakeSearch{resp: models.SearchResponse{Total: 3}}, &fakeRelational{}, &fakeRollup{})

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(`{"query":"estrada"}`))
	rec := httptest.NewRecorder()
	s.handleSearch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":3`)
}

func TestHandleSearchRejectsMalformedBody(t *testing.T) {
	s := newTestServer(&fakeSearch{}, &fakeRelational{}, &fakeRollup{})

	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	s.handleSearch(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetContractReturnsNotFound(t *testing.T) {
	s := newTestServer(&fakeSearch{}, &fakeRelational{contracts: map[int64]models.Contract{}}, &fakeRollup{})

	req := httptest.NewRequest(http.MethodGet, "/api/contract/42", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "42"})
	rec := httptest.NewRecorder()
	s.handleGetContract(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetContractReturnsContract(t *testing.T) {
	s := newTestServer(&fakeSearch{}, &fakeRelational{contracts: map[int64]models.Contract{42: {ID: 42}}}, &fakeRollup{})

	req := httptest.NewRequest(http.MethodGet, "/api/contract/42", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "42"})
	rec := httptest.NewRecorder()
	s.handleGetContract(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":42`)
}

func TestHandleStatisticsReturnsCurrentRollup(t *testing.T) {
	s := newTestServer(&fakeSearch{}, &fakeRelational{}, &fakeRollup{rollup: models.StatisticsRollup{ContractsLast7Days: 11}})

	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	rec := httptest.NewRecorder()
	s.handleStatistics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"contractsLast7Days":11`)
}

func TestHandleAdminReindexRejectsBadRange(t *testing.T) {
	s := newTestServer(&fakeSearch{}, &fakeRelational{}, &fakeRollup{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex?minId=10&maxId=5", nil)
	rec := httptest.NewRecorder()
	s.handleAdminReindex(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAdminReindexReprojectsRange(t *testing.T) {
	search := &fakeSearch{}
	relational := &fakeRelational{
		idsInRange: []int64{1, 2},
		contracts: map[int64]models.Contract{
			1: {ID: 1},
			2: {ID: 2},
		},
	}
	s := newTestServer(search, relational, &fakeRollup{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex?minId=1&maxId=2", nil)
	rec := httptest.NewRecorder()
	s.handleAdminReindex(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, search.upserted, 2)
}

func TestHandleAdminReindexPropagatesSearchFailure(t *testing.T) {
	search := &fakeSearch{upsertErr: errors.New("index down")}
	relational := &fakeRelational{idsInRange: []int64{1}, contracts: map[int64]models.Contract{1: {ID: 1}}}
	s := newTestServer(search, relational, &fakeRollup{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reindex?minId=1&maxId=1", nil)
	rec := httptest.NewRecorder()
	s.handleAdminReindex(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

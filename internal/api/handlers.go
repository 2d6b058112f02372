package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chicoferreira/contratopublico-go/internal/models"
	"github.com/chicoferreira/contratopublico-go/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleSearch implements POST /api/search, decoding the request body
// into a models.SearchRequest and forwarding it to the search index.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	resp, err := s.search.SearchContracts(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetContract implements GET /api/contract/{id}, reading the full
// relational record (as opposed to the search index's narrower
// projection).
func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract id")
		return
	}

	contract, err := s.relational.GetContract(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, contract)
}

// handleStatistics implements GET /api/statistics, returning the
// trailing-window rollup most recently published by the aggregator.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.aggregator.Rollup())
}

// handleAdminReindex implements POST /api/admin/reindex?minId=&maxId=,
// re-deriving the search-index projection for every contract id in the
// requested range straight from the relational store. Protected by
// AuthMiddleware.
func (s *Server) handleAdminReindex(w http.ResponseWriter, r *http.Request) {
	minID, err := strconv.ParseInt(r.URL.Query().Get("minId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "minId must be an integer")
		return
	}
	maxID, err := strconv.ParseInt(r.URL.Query().Get("maxId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "maxId must be an integer")
		return
	}
	if maxID < minID {
		writeError(w, http.StatusBadRequest, "maxId must be >= minId")
		return
	}

	ids, err := s.relational.ContractIDsInRange(r.Context(), minID, maxID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	docs := make([]models.SearchProjection, 0, len(ids))
	for _, id := range ids {
		contract, err := s.relational.GetContract(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "reindex failed")
			return
		}
		docs = append(docs, contract.ToSearchProjection())
	}

	if err := s.search.UpsertBatch(docs); err != nil {
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "reindexed",
		"byWhom":       subjectFromContext(r.Context()),
		"reindexedIDs": len(docs),
		"minId":        minID,
		"maxId":        maxID,
	})
}

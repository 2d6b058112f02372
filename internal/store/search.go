package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

const contractsIndex = "contracts"

// filterableAttributes mirrors the filters table in the query-surface
// boundary spec: every field a caller can filter search results on.
var filterableAttributes = []string{
	"id", "publicationDate", "signingDate", "initialPriceCents",
	"totalEffectivePriceCents", "contracting", "contracted",
}

var sortableAttributes = []string{"id", "publicationDate", "signingDate", "initialPriceCents"}

var searchableAttributes = []string{"contracting", "contracted", "procedureType"}

// Search is the denormalized full-text projection of Contract, kept in
// sync with the relational store by DualStore.
type Search struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
}

// NewSearch connects to a Meilisearch instance and ensures the
// contracts index carries the settings the query surface depends on.
func NewSearch(host, apiKey string) (*Search, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{Host: host, APIKey: apiKey})
	index := client.Index(contractsIndex)

	if _, err := index.UpdateFilterableAttributes(&filterableAttributes); err != nil {
		return nil, fmt.Errorf("store: configure filterable attributes: %w", err)
	}
	if _, err := index.UpdateSortableAttributes(&sortableAttributes); err != nil {
		return nil, fmt.Errorf("store: configure sortable attributes: %w", err)
	}
	if _, err := index.UpdateSearchableAttributes(&searchableAttributes); err != nil {
		return nil, fmt.Errorf("store: configure searchable attributes: %w", err)
	}

	return &Search{client: client, index: index}, nil
}

// UpsertContract projects c and writes it into the index, keyed by ID.
func (s *Search) UpsertContract(c models.Contract) error {
	doc := c.ToSearchProjection()
	if _, err := s.index.AddDocuments([]models.SearchProjection{doc}, "id"); err != nil {
		return fmt.Errorf("store: index contract %d: %w", c.ID, err)
	}
	return nil
}

// UpsertBatch writes many projections in one call, used by the
// migrate-to-postgres bulk reload flow.
func (s *Search) UpsertBatch(docs []models.SearchProjection) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.index.AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("store: index batch of %d: %w", len(docs), err)
	}
	return nil
}

// DeleteAll clears the index, used before a full migrate-to-postgres
// reload.
func (s *Search) DeleteAll() error {
	if _, err := s.index.DeleteAllDocuments(); err != nil {
		return fmt.Errorf("store: delete all documents: %w", err)
	}
	return nil
}

// documentsPageSize bounds each GetDocuments call used by AllDocuments.
const documentsPageSize = 10000

// AllDocuments pages through every document currently stored in the
// index, used by the one-shot export-old-format-to-json dump.
func (s *Search) AllDocuments() ([]models.SearchProjection, error) {
	var out []models.SearchProjection
	var offset int64

	for {
		limit := int64(documentsPageSize)
		var resp meilisearch.DocumentsResult
		err := s.index.GetDocuments(&meilisearch.DocumentsQuery{
			Offset: offset,
			Limit:  limit,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("store: get documents at offset %d: %w", offset, err)
		}

		for _, raw := range resp.Results {
			data, err := json.Marshal(raw)
			if err != nil {
				return nil, fmt.Errorf("store: marshal document: %w", err)
			}
			var doc models.SearchProjection
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("store: decode document: %w", err)
			}
			out = append(out, doc)
		}

		offset += int64(len(resp.Results))
		if offset >= resp.Total || len(resp.Results) == 0 {
			break
		}
	}

	return out, nil
}

// buildFilterExpression translates Filters into Meilisearch's filter
// expression syntax.
func buildFilterExpression(f *models.Filters) string {
	if f == nil {
		return ""
	}
	var clauses []string
	if f.MinID != nil {
		clauses = append(clauses, fmt.Sprintf("id >= %d", *f.MinID))
	}
	if f.MaxID != nil {
		clauses = append(clauses, fmt.Sprintf("id <= %d", *f.MaxID))
	}
	if f.StartPublicationDate != nil {
		clauses = append(clauses, fmt.Sprintf("publicationDate >= %d", f.StartPublicationDate.Unix()))
	}
	if f.EndPublicationDate != nil {
		clauses = append(clauses, fmt.Sprintf("publicationDate <= %d", f.EndPublicationDate.Unix()))
	}
	if f.StartSigningDate != nil {
		clauses = append(clauses, fmt.Sprintf("signingDate >= %d", f.StartSigningDate.Unix()))
	}
	if f.EndSigningDate != nil {
		clauses = append(clauses, fmt.Sprintf("signingDate <= %d", f.EndSigningDate.Unix()))
	}
	if f.Contracted != "" {
		clauses = append(clauses, fmt.Sprintf("contracted = %q", f.Contracted))
	}
	if f.Contracting != "" {
		clauses = append(clauses, fmt.Sprintf("contracting = %q", f.Contracting))
	}
	if f.MinPrice != nil {
		clauses = append(clauses, fmt.Sprintf("initialPriceCents >= %d", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("initialPriceCents <= %d", *f.MaxPrice))
	}
	return strings.Join(clauses, " AND ")
}

// sortExpression translates a Sort into Meilisearch's "field:direction"
// syntax, adding the secondary id sort the boundary spec requires to
// stabilize pagination on date fields.
func sortExpression(s models.Sort) []string {
	field := string(s.Field)
	if s.Field == models.SortByPrice {
		field = "initialPriceCents"
	}
	dir := "asc"
	if s.Direction == models.Descending {
		dir = "desc"
	}
	expr := []string{field + ":" + dir}
	if s.Field == models.SortByPublicationDate || s.Field == models.SortBySigningDate {
		expr = append(expr, "id:"+dir)
	}
	return expr
}

const hitsPerPage = 20

// SearchContracts runs a full-text query with filters and sort, paginated
// in pages of hitsPerPage, and reports byte-offset match ranges per field.
func (s *Search) SearchContracts(req models.SearchRequest) (models.SearchResponse, error) {
	start := time.Now()

	sort := req.Sort
	if sort == nil {
		d := models.DefaultSort()
		sort = &d
	}

	searchReq := &meilisearch.SearchRequest{
		Filter:                buildFilterExpression(req.Filters),
		Sort:                  sortExpression(*sort),
		Limit:                 int64(hitsPerPage),
		Offset:                int64(req.Page * hitsPerPage),
		AttributesToHighlight: []string{"*"},
		ShowMatchesPosition:   true,
	}

	res, err := s.index.Search(req.Query, searchReq)
	if err != nil {
		return models.SearchResponse{}, fmt.Errorf("store: search: %w", err)
	}

	contracts := make([]models.SearchedContract, 0, len(res.Hits))
	for _, hit := range res.Hits {
		sc, err := hitToSearchedContract(hit)
		if err != nil {
			return models.SearchResponse{}, fmt.Errorf("store: decode hit: %w", err)
		}
		contracts = append(contracts, sc)
	}

	total := res.EstimatedTotalHits
	totalPages := int((total + hitsPerPage - 1) / hitsPerPage)

	return models.SearchResponse{
		Contracts:     contracts,
		Total:         total,
		Page:          req.Page,
		TotalPages:    totalPages,
		ElapsedMillis: time.Since(start).Milliseconds(),
		HitsPerPage:   hitsPerPage,
	}, nil
}

// hitToSearchedContract converts one raw Meilisearch hit (a
// map[string]any, the dynamic shape the SDK returns) into the typed
// SearchedContract boundary shape, preserving matchingRanges.
func hitToSearchedContract(hit map[string]any) (models.SearchedContract, error) {
	var sc models.SearchedContract

	if v, ok := hit["id"].(float64); ok {
		sc.ID = int64(v)
	}
	if v, ok := hit["procedureType"].(string); ok {
		sc.ProcedureType = v
	}
	if v, ok := hit["initialPriceCents"].(float64); ok {
		sc.InitialPriceCents = int64(v)
	}
	if v, ok := hit["publicationDate"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			sc.PublicationDate = t
		}
	}
	if list, ok := hit["contracting"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				sc.Contracting = append(sc.Contracting, s)
			}
		}
	}
	if list, ok := hit["contracted"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				sc.Contracted = append(sc.Contracted, s)
			}
		}
	}
	if list, ok := hit["cpvCodes"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				sc.CPVCodes = append(sc.CPVCodes, s)
			}
		}
	}

	sc.MatchingRanges = map[string][]models.MatchRange{}
	if formatted, ok := hit["_matchesPosition"].(map[string]any); ok {
		for field, raw := range formatted {
			spans, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, spanAny := range spans {
				span, ok := spanAny.(map[string]any)
				if !ok {
					continue
				}
				start, _ := span["start"].(float64)
				length, _ := span["length"].(float64)
				sc.MatchingRanges[field] = append(sc.MatchingRanges[field], models.MatchRange{
					Start: int(start),
					End:   int(start + length),
				})
			}
		}
	}

	return sc, nil
}


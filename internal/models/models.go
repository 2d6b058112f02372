// Package models holds the plain data structures shared across the
// store, portal and API layers.
package models

import "time"

// Role is the relationship an Entity holds to a Contract.
type Role string

const (
	RoleContracting Role = "contracting"
	RoleContracted  Role = "contracted"
	RoleContestant  Role = "contestant"
	RoleInvitee     Role = "invitee"
)

// Entity represents the 'entities' table: a party referenced by one or
// more contracts in one of four roles.
type Entity struct {
	ID          int64  `json:"id"`
	NIF         string `json:"nif"`
	Description string `json:"description"`
}

// CPV represents the 'cpvs' table, a Common Procurement Vocabulary code.
type CPV struct {
	Code        string `json:"code"`
	Designation string `json:"designation"`
}

// Document represents the 'documents' table.
type Document struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// ContractParty links a Contract to an Entity under a role, carrying an
// optional per-relation description (e.g. the contestant's bid text).
type ContractParty struct {
	EntityID    int64  `json:"entityId"`
	Role        Role   `json:"role"`
	Description string `json:"description,omitempty"`
}

// Contract is the primary aggregate harvested from the portal.
type Contract struct {
	ID                  int64      `json:"id"`
	PublicationDate     time.Time  `json:"publicationDate"`
	SigningDate         *time.Time `json:"signingDate,omitempty"`
	Description         string     `json:"description"`
	InitialPriceCents   int64      `json:"initialPriceCents"`
	ClosingDate         *time.Time `json:"closingDate,omitempty"`
	TotalEffectivePrice *int64     `json:"totalEffectivePriceCents,omitempty"`
	ProcedureType       string     `json:"procedureType"`
	Regime              string     `json:"regime"`
	Fundamentation      string     `json:"fundamentation"`
	Observations        string     `json:"observations"`
	ExecutionDeadline   *int       `json:"executionDeadlineDays,omitempty"`
	AnnouncementID      *int64     `json:"announcementId,omitempty"`
	CCP                 bool       `json:"ccp"`

	Contracting []ContractParty `json:"contracting"`
	Contracted  []ContractParty `json:"contracted"`
	Contestants []ContractParty `json:"contestants"`
	Invitees    []ContractParty `json:"invitees"`

	// Entities referenced by the ContractParty rows above; keyed by ID
	// so DualStore can upsert each one exactly once per save.
	Entities []Entity `json:"entities"`

	CPVs      []CPV      `json:"cpvs"`
	Documents []Document `json:"documents"`
}

// SearchProjection is the denormalized shape indexed for full-text
// search: every heavy narrative field is dropped (description,
// observations, fundamentation, execution deadline, status) and only
// the fields useful for filtering, sorting and snippet display survive.
type SearchProjection struct {
	ID                  int64      `json:"id"`
	PublicationDate     time.Time  `json:"publicationDate"`
	SigningDate         *time.Time `json:"signingDate,omitempty"`
	InitialPriceCents   int64      `json:"initialPriceCents"`
	TotalEffectivePrice *int64     `json:"totalEffectivePriceCents,omitempty"`
	ProcedureType       string     `json:"procedureType"`

	Contracting []string `json:"contracting"`
	Contracted  []string `json:"contracted"`

	CPVCodes  []string `json:"cpvCodes"`
	Documents []int64  `json:"documents"`
}

func (c Contract) ToSearchProjection() SearchProjection {
	p := SearchProjection{
		ID:                  c.ID,
		PublicationDate:     c.PublicationDate,
		SigningDate:         c.SigningDate,
		InitialPriceCents:   c.InitialPriceCents,
		TotalEffectivePrice: c.TotalEffectivePrice,
		ProcedureType:       c.ProcedureType,
	}
	byID := make(map[int64]Entity, len(c.Entities))
	for _, e := range c.Entities {
		byID[e.ID] = e
	}
	for _, cp := range c.Contracting {
		p.Contracting = append(p.Contracting, byID[cp.EntityID].Description)
	}
	for _, cp := range c.Contracted {
		p.Contracted = append(p.Contracted, byID[cp.EntityID].Description)
	}
	for _, cpv := range c.CPVs {
		p.CPVCodes = append(p.CPVCodes, cpv.Code)
	}
	for _, d := range c.Documents {
		p.Documents = append(p.Documents, d.ID)
	}
	return p
}

// DailyAggregate is one row of the 'daily_aggregates' materialized view:
// total spend and contract count for a single publication date.
type DailyAggregate struct {
	Date        time.Time `json:"date"`
	AmountCents int64     `json:"amountCents"`
	Count       int64     `json:"count"`
}

// StatisticsRollup is the trailing-window snapshot published to the
// query layer by StatisticsAggregator.
type StatisticsRollup struct {
	TotalSpentLast365Days  int64 `json:"totalSpentLast365Days"`
	ContractsLast365Days   int64 `json:"contractsLast365Days"`
	TotalSpentLast30Days   int64 `json:"totalSpentLast30Days"`
	ContractsLast30Days    int64 `json:"contractsLast30Days"`
	TotalSpentLast7Days    int64 `json:"totalSpentLast7Days"`
	ContractsLast7Days     int64 `json:"contractsLast7Days"`
}

// SortField enumerates the fields the search endpoint can sort on.
type SortField string

const (
	SortByID              SortField = "id"
	SortByPublicationDate SortField = "publicationDate"
	SortBySigningDate     SortField = "signingDate"
	SortByPrice           SortField = "price"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "ascending"
	Descending SortDirection = "descending"
)

// Sort describes how search results should be ordered. Date fields get
// a secondary sort on ID to stabilize pagination across ties.
type Sort struct {
	Field     SortField     `json:"sortField"`
	Direction SortDirection `json:"sortDirection"`
}

// DefaultSort matches the query surface's documented default.
func DefaultSort() Sort {
	return Sort{Field: SortByPublicationDate, Direction: Descending}
}

// Filters narrows a search request. The zero value means "no filter".
type Filters struct {
	MinID                *int64     `json:"minId,omitempty"`
	MaxID                *int64     `json:"maxId,omitempty"`
	StartPublicationDate *time.Time `json:"startPublicationDate,omitempty"`
	EndPublicationDate   *time.Time `json:"endPublicationDate,omitempty"`
	StartSigningDate     *time.Time `json:"startSigningDate,omitempty"`
	EndSigningDate       *time.Time `json:"endSigningDate,omitempty"`
	Contracted           string     `json:"contracted,omitempty"`
	Contracting          string     `json:"contracting,omitempty"`
	MinPrice             *int64     `json:"minPrice,omitempty"`
	MaxPrice             *int64     `json:"maxPrice,omitempty"`
}

// MatchRange is a byte offset span within a field's original value that
// matched the search query.
type MatchRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SearchedContract is one hit in a SearchResponse: the projected
// contract plus the ranges that matched the query, per field.
type SearchedContract struct {
	SearchProjection
	MatchingRanges map[string][]MatchRange `json:"matchingRanges"`
}

// SearchRequest is the decoded body of POST /api/search.
type SearchRequest struct {
	Query   string   `json:"query"`
	Filters *Filters `json:"filters,omitempty"`
	Sort    *Sort    `json:"sort,omitempty"`
	Page    int      `json:"page"`
}

// SearchResponse is the JSON body returned by POST /api/search.
type SearchResponse struct {
	Contracts     []SearchedContract `json:"contracts"`
	Total         int64              `json:"total"`
	Page          int                `json:"page"`
	TotalPages    int                `json:"totalPages"`
	ElapsedMillis int64              `json:"elapsedMillis"`
	HitsPerPage   int                `json:"hitsPerPage"`
}

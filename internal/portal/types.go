package portal

import (
	"fmt"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

// wireDocument mirrors one entry of the portal's "documents" array.
type wireDocument struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// rawContract is the typed projection of one contract detail response.
// Field names and decoders reproduce the portal's wire format exactly;
// see decode.go for the per-field rules.
type rawContract struct {
	ID                       int64              `json:"id"`
	Description              *string            `json:"description"`
	ObjectBriefDescription   string             `json:"objectBriefDescription"`
	ContractingProcedureType string             `json:"contractingProcedureType"`
	Contracting              []wireEntity       `json:"contracting"`
	Contracted               []wireEntity       `json:"contracted"`
	Contestants              []wireEntity       `json:"contestants"`
	Invitees                 []wireInvitee      `json:"invitees"`
	Documents                []wireDocument     `json:"documents"`

	Cpvs             string `json:"cpvs"`
	CpvsDesignation  string `json:"cpvsDesignation"`

	SigningDate             optionalPortalDate `json:"signingDate"`
	PublicationDate         portalDate         `json:"publicationDate"`
	InitialContractualPrice cents              `json:"initialContractualPrice"`
	Regime                  string             `json:"regime"`
	ExecutionDeadlineDays   executionDeadline  `json:"executionDeadline"`
	ContractFundamentationType string         `json:"contractFundamentationType"`
	AnnouncementID          announcementID     `json:"announcementId"`
	DirectAwardFundamentationType string      `json:"directAwardFundamentationType"`
	Observations            *string            `json:"observations"`
	CCP                     bool               `json:"ccp"`
	CloseDate               optionalPortalDate `json:"closeDate"`
	TotalEffectivePrice     optionalCents      `json:"totalEffectivePrice"`
}

// toContract converts the wire-decoded shape into the domain model,
// joining the role-entity lists into the contract's flat Entities
// slice and per-role ContractParty links.
func (r rawContract) toContract() (models.Contract, error) {
	cpvs, err := decodeCPVs(r.Cpvs, r.CpvsDesignation)
	if err != nil {
		return models.Contract{}, fmt.Errorf("portal: contract %d: %w", r.ID, err)
	}

	c := models.Contract{
		ID:                  r.ID,
		PublicationDate:     r.PublicationDate.Time,
		SigningDate:         r.SigningDate.Time,
		InitialPriceCents:   int64(r.InitialContractualPrice),
		ClosingDate:         r.CloseDate.Time,
		TotalEffectivePrice: r.TotalEffectivePrice.Value,
		ProcedureType:       r.ContractingProcedureType,
		Regime:              r.Regime,
		Fundamentation:      r.ContractFundamentationType,
		CCP:                 r.CCP,
		AnnouncementID:      r.AnnouncementID.Value,
	}
	if r.Description != nil {
		c.Description = *r.Description
	} else {
		c.Description = r.ObjectBriefDescription
	}
	if r.Observations != nil {
		c.Observations = *r.Observations
	}
	deadline := int(r.ExecutionDeadlineDays)
	c.ExecutionDeadline = &deadline

	entitiesByID := make(map[int64]models.Entity)
	addRole := func(entities []wireEntity, role models.Role) []models.ContractParty {
		parties := make([]models.ContractParty, 0, len(entities))
		for _, e := range entities {
			entitiesByID[e.ID] = models.Entity{ID: e.ID, NIF: e.NIF, Description: e.Description}
			parties = append(parties, models.ContractParty{EntityID: e.ID, Role: role})
		}
		return parties
	}

	c.Contracting = addRole(r.Contracting, models.RoleContracting)
	c.Contracted = addRole(r.Contracted, models.RoleContracted)
	c.Contestants = addRole(r.Contestants, models.RoleContestant)

	invitees := make([]wireEntity, len(r.Invitees))
	for i, inv := range r.Invitees {
		invitees[i] = inv.wireEntity
	}
	c.Invitees = addRole(invitees, models.RoleInvitee)

	for _, e := range entitiesByID {
		c.Entities = append(c.Entities, e)
	}

	for _, cpv := range cpvs {
		c.CPVs = append(c.CPVs, models.CPV{Code: cpv.Code, Designation: cpv.Designation})
	}
	for _, d := range r.Documents {
		c.Documents = append(c.Documents, models.Document{ID: d.ID, Description: d.Description})
	}

	return c, nil
}

// searchResponse is the wire shape of fetch_page's result: a reported
// total hit count and a page of minimal (ID-only) records.
type searchResponse struct {
	Total int64 `json:"total"`
	Items []struct {
		ID int64 `json:"id"`
	} `json:"items"`
}

// PageResult is fetch_page's projected return value.
type PageResult struct {
	Total int64
	IDs   []int64
}

// SortField is the field a portal search is ordered by.
type SortField string

const (
	SortPublicationDate         SortField = "publicationDate"
	SortObjectBriefDescription  SortField = "objectBriefDescription"
	SortInitialContractualPrice SortField = "initialContractualPrice"
	SortID                      SortField = "id"
)

// SortOrder is ascending or descending.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Sort serializes as "+field" or "-field" per the portal's wire format.
type Sort struct {
	Field SortField
	Order SortOrder
}

func (s Sort) wireString() string {
	prefix := "+"
	if s.Order == Descending {
		prefix = "-"
	}
	return prefix + string(s.Field)
}

// Package store implements the relational store, the search-index
// client, and the DualStore façade that writes a contract to both and
// then updates the resumable progress ledger.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the relational store: every Contract and its referenced
// CPVs, Entities and Documents, written in one transaction per save.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dbURL and applies the pool tuning the
// teacher's repository layer uses: env-overridable pool size, bounded
// connection lifetime, and per-connection statement timeouts.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse db url: %w", err)
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinConns = int32(n)
		}
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = getEnvDefault("DB_STATEMENT_TIMEOUT", "300000")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Migrate applies the embedded relational schema. Schema migrations are
// a precondition for the core pipeline, kept here only as a convenience
// for standing up a fresh database.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.db.Close()
}

// SaveContract upserts contract and every CPV/Entity/Document it
// references, plus the per-role linking rows, in one transaction.
// Every statement uses ON CONFLICT DO NOTHING so repeated calls on the
// same contract are idempotent.
func (p *Postgres) SaveContract(ctx context.Context, c models.Contract) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, cpv := range c.CPVs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cpvs (code, designation) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			cpv.Code, cpv.Designation); err != nil {
			return fmt.Errorf("store: upsert cpv %s: %w", cpv.Code, err)
		}
	}

	for _, e := range c.Entities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO entities (id, nif, description) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.NIF, e.Description); err != nil {
			return fmt.Errorf("store: upsert entity %d: %w", e.ID, err)
		}
	}

	for _, d := range c.Documents {
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (id, description) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			d.ID, d.Description); err != nil {
			return fmt.Errorf("store: upsert document %d: %w", d.ID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO contracts (
			id, publication_date, signing_date, description, initial_price_cents,
			closing_date, total_effective_price, procedure_type, regime,
			fundamentation, observations, execution_deadline_days, announcement_id, ccp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.PublicationDate, c.SigningDate, c.Description, c.InitialPriceCents,
		c.ClosingDate, c.TotalEffectivePrice, c.ProcedureType, c.Regime,
		c.Fundamentation, c.Observations, c.ExecutionDeadline, c.AnnouncementID, c.CCP,
	); err != nil {
		return fmt.Errorf("store: upsert contract %d: %w", c.ID, err)
	}

	allParties := append(append(append(append([]models.ContractParty{}, c.Contracting...), c.Contracted...), c.Contestants...), c.Invitees...)
	for _, party := range allParties {
		if _, err := tx.Exec(ctx,
			`INSERT INTO contract_parties (contract_id, entity_id, role, description) VALUES ($1,$2,$3,$4)
			 ON CONFLICT DO NOTHING`,
			c.ID, party.EntityID, string(party.Role), party.Description); err != nil {
			return fmt.Errorf("store: link party %d/%d: %w", c.ID, party.EntityID, err)
		}
	}

	for _, cpv := range c.CPVs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO contract_cpvs (contract_id, cpv_code) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			c.ID, cpv.Code); err != nil {
			return fmt.Errorf("store: link cpv %d/%s: %w", c.ID, cpv.Code, err)
		}
	}

	for _, d := range c.Documents {
		if _, err := tx.Exec(ctx,
			`INSERT INTO contract_documents (contract_id, document_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			c.ID, d.ID); err != nil {
			return fmt.Errorf("store: link document %d/%d: %w", c.ID, d.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit contract %d: %w", c.ID, err)
	}
	return nil
}

// GetContract fetches one contract by ID with all its linked rows, or
// ErrNotFound if no such contract exists.
func (p *Postgres) GetContract(ctx context.Context, id int64) (models.Contract, error) {
	var c models.Contract
	c.ID = id

	row := p.db.QueryRow(ctx, `
		SELECT publication_date, signing_date, description, initial_price_cents,
		       closing_date, total_effective_price, procedure_type, regime,
		       fundamentation, observations, execution_deadline_days, announcement_id, ccp
		FROM contracts WHERE id = $1`, id)
	if err := row.Scan(
		&c.PublicationDate, &c.SigningDate, &c.Description, &c.InitialPriceCents,
		&c.ClosingDate, &c.TotalEffectivePrice, &c.ProcedureType, &c.Regime,
		&c.Fundamentation, &c.Observations, &c.ExecutionDeadline, &c.AnnouncementID, &c.CCP,
	); err != nil {
		if err == pgx.ErrNoRows {
			return models.Contract{}, ErrNotFound
		}
		return models.Contract{}, fmt.Errorf("store: get contract %d: %w", id, err)
	}

	rows, err := p.db.Query(ctx, `
		SELECT cp.entity_id, cp.role, cp.description, e.nif, e.description
		FROM contract_parties cp JOIN entities e ON e.id = cp.entity_id
		WHERE cp.contract_id = $1`, id)
	if err != nil {
		return models.Contract{}, fmt.Errorf("store: get parties %d: %w", id, err)
	}
	defer rows.Close()

	entitiesByID := map[int64]models.Entity{}
	for rows.Next() {
		var entityID int64
		var role, relDesc, nif, entityDesc string
		if err := rows.Scan(&entityID, &role, &relDesc, &nif, &entityDesc); err != nil {
			return models.Contract{}, fmt.Errorf("store: scan party %d: %w", id, err)
		}
		entitiesByID[entityID] = models.Entity{ID: entityID, NIF: nif, Description: entityDesc}
		party := models.ContractParty{EntityID: entityID, Role: models.Role(role), Description: relDesc}
		switch models.Role(role) {
		case models.RoleContracting:
			c.Contracting = append(c.Contracting, party)
		case models.RoleContracted:
			c.Contracted = append(c.Contracted, party)
		case models.RoleContestant:
			c.Contestants = append(c.Contestants, party)
		case models.RoleInvitee:
			c.Invitees = append(c.Invitees, party)
		}
	}
	for _, e := range entitiesByID {
		c.Entities = append(c.Entities, e)
	}

	cpvRows, err := p.db.Query(ctx, `
		SELECT cv.code, cv.designation FROM contract_cpvs cc
		JOIN cpvs cv ON cv.code = cc.cpv_code WHERE cc.contract_id = $1`, id)
	if err != nil {
		return models.Contract{}, fmt.Errorf("store: get cpvs %d: %w", id, err)
	}
	defer cpvRows.Close()
	for cpvRows.Next() {
		var cpv models.CPV
		if err := cpvRows.Scan(&cpv.Code, &cpv.Designation); err != nil {
			return models.Contract{}, fmt.Errorf("store: scan cpv %d: %w", id, err)
		}
		c.CPVs = append(c.CPVs, cpv)
	}

	docRows, err := p.db.Query(ctx, `
		SELECT d.id, d.description FROM contract_documents cd
		JOIN documents d ON d.id = cd.document_id WHERE cd.contract_id = $1`, id)
	if err != nil {
		return models.Contract{}, fmt.Errorf("store: get documents %d: %w", id, err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var d models.Document
		if err := docRows.Scan(&d.ID, &d.Description); err != nil {
			return models.Contract{}, fmt.Errorf("store: scan document %d: %w", id, err)
		}
		c.Documents = append(c.Documents, d)
	}

	return c, nil
}

// ContractIDsInRange lists every contract id in [minID, maxID], used by
// the admin reindex endpoint to re-derive the search projection for a
// bounded range instead of reloading the whole relational store.
func (p *Postgres) ContractIDsInRange(ctx context.Context, minID, maxID int64) ([]int64, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id FROM contracts WHERE id >= $1 AND id <= $2 ORDER BY id`, minID, maxID)
	if err != nil {
		return nil, fmt.Errorf("store: list contract ids in range: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RefreshDailyAggregates refreshes the materialized daily-spend view.
func (p *Postgres) RefreshDailyAggregates(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, `REFRESH MATERIALIZED VIEW daily_aggregates`); err != nil {
		return fmt.Errorf("store: refresh daily_aggregates: %w", err)
	}
	return nil
}

// WindowStats computes totals and counts for the trailing 365/30/7 day
// windows anchored on "today", in a single aggregate query.
func (p *Postgres) WindowStats(ctx context.Context, today time.Time) (models.StatisticsRollup, error) {
	row := p.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE date >= $1::date - INTERVAL '365 days'), 0),
			COALESCE(SUM(count)        FILTER (WHERE date >= $1::date - INTERVAL '365 days'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE date >= $1::date - INTERVAL '30 days'), 0),
			COALESCE(SUM(count)        FILTER (WHERE date >= $1::date - INTERVAL '30 days'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE date >= $1::date - INTERVAL '7 days'), 0),
			COALESCE(SUM(count)        FILTER (WHERE date >= $1::date - INTERVAL '7 days'), 0)
		FROM daily_aggregates
		WHERE date <= $1::date`, today)

	var r models.StatisticsRollup
	if err := row.Scan(
		&r.TotalSpentLast365Days, &r.ContractsLast365Days,
		&r.TotalSpentLast30Days, &r.ContractsLast30Days,
		&r.TotalSpentLast7Days, &r.ContractsLast7Days,
	); err != nil {
		return models.StatisticsRollup{}, fmt.Errorf("store: window stats: %w", err)
	}
	return r, nil
}

var ErrNotFound = fmt.Errorf("store: not found")

package store

import (
	"context"
	"fmt"

	"github.com/chicoferreira/contratopublico-go/internal/ledger"
	"github.com/chicoferreira/contratopublico-go/internal/models"
)

// DualStore publishes a contract to the relational store and the
// search index, then updates and persists the progress ledger. The
// three writes are not atomic together: a crash between the index
// write and the ledger update leaves the ledger believing the page
// still needs work, so the next scrape run safely re-attempts it.
type DualStore struct {
	relational *Postgres
	search     *Search
	ledger     *ledger.Ledger
}

func NewDualStore(relational *Postgres, search *Search, l *ledger.Ledger) *DualStore {
	return &DualStore{relational: relational, search: search, ledger: l}
}

// SaveContract runs the full publish sequence: commit to the
// relational store, upsert the search-index projection, then update
// and persist the ledger. Ordering is commit-relational ->
// upsert-index -> update-ledger; a failure at any step stops before
// the next one runs.
func (d *DualStore) SaveContract(ctx context.Context, c models.Contract, page, contractsPerPage uint64) error {
	if err := d.relational.SaveContract(ctx, c); err != nil {
		return fmt.Errorf("dualstore: relational write failed for contract %d: %w", c.ID, err)
	}

	if err := d.search.UpsertContract(c); err != nil {
		return fmt.Errorf("dualstore: search-index write failed for contract %d: %w", c.ID, err)
	}

	if err := d.ledger.Update(page, contractsPerPage, uint64(c.ID)); err != nil {
		return fmt.Errorf("dualstore: ledger persistence failed for contract %d: %w", c.ID, err)
	}

	return nil
}

func (d *DualStore) Ledger() *ledger.Ledger { return d.ledger }

func (d *DualStore) Relational() *Postgres { return d.relational }

func (d *DualStore) SearchIndex() *Search { return d.search }

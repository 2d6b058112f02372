package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/chicoferreira/contratopublico-go/internal/models"
	"github.com/chicoferreira/contratopublico-go/internal/store"
)

// searchBatchSize and relationalBatchSize mirror the chunk sizes the
// original migration tool uses: 1000 documents per Meilisearch upsert,
// 10 contracts per relational batch (each saved by its own goroutine
// within the batch).
const (
	searchBatchSize     = 1000
	relationalBatchSize = 10
)

var migrateCmd = &cobra.Command{
	Use:   "migrate-to-postgres <input.json>",
	Short: "Bulk reload the relational store and search index from a JSON array of contracts",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

func init() {
	addPostgresFlags(migrateCmd)
	addSearchFlags(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("migrate-to-postgres: %w", err)
	}

	dbURL := flagOrEnv(cmd, "db-url", cfg.DatabaseURL, "")
	if dbURL == "" {
		return fmt.Errorf("migrate-to-postgres: --db-url, $DATABASE_URL or config database_url is required")
	}
	searchURL := flagOrEnv(cmd, "search-url", cfg.MeilisearchURL, "http://localhost:7700")
	searchKey := flagOrEnv(cmd, "search-key", cfg.MeilisearchKey, "")

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("migrate-to-postgres: read %s: %w", inputPath, err)
	}

	var contracts []models.Contract
	if err := json.Unmarshal(data, &contracts); err != nil {
		return fmt.Errorf("migrate-to-postgres: decode %s: %w", inputPath, err)
	}

	ctx := context.Background()
	log.Printf("migrate-to-postgres: database %s", redactDatabaseURL(dbURL))

	relational, err := store.NewPostgres(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("migrate-to-postgres: connect postgres: %w", err)
	}
	defer relational.Close()
	if err := relational.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate-to-postgres: migrate schema: %w", err)
	}

	search, err := store.NewSearch(searchURL, searchKey)
	if err != nil {
		return fmt.Errorf("migrate-to-postgres: connect search: %w", err)
	}

	if err := search.DeleteAll(); err != nil {
		return fmt.Errorf("migrate-to-postgres: clear search index: %w", err)
	}
	log.Printf("migrate-to-postgres: cleared search index, reloading %d contracts", len(contracts))

	docs := make([]models.SearchProjection, len(contracts))
	for i, c := range contracts {
		docs[i] = c.ToSearchProjection()
	}

	var wg sync.WaitGroup
	var searchErr, relationalErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		searchErr = indexContractsInBatches(search, docs)
	}()
	go func() {
		defer wg.Done()
		relationalErr = saveContractsInBatches(ctx, relational, contracts)
	}()
	wg.Wait()

	if relationalErr != nil {
		return fmt.Errorf("migrate-to-postgres: relational store: %w", relationalErr)
	}
	if searchErr != nil {
		return fmt.Errorf("migrate-to-postgres: search index: %w", searchErr)
	}

	log.Printf("migrate-to-postgres: reloaded %d contracts into both stores", len(contracts))
	return nil
}

// indexContractsInBatches upserts docs into the search index
// searchBatchSize documents at a time, running concurrently with
// saveContractsInBatches.
func indexContractsInBatches(search *store.Search, docs []models.SearchProjection) error {
	for start := 0; start < len(docs); start += searchBatchSize {
		end := start + searchBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := search.UpsertBatch(docs[start:end]); err != nil {
			return fmt.Errorf("index batch [%d:%d): %w", start, end, err)
		}
		log.Printf("migrate-to-postgres: indexed %d/%d contracts", end, len(docs))
	}
	return nil
}

// saveContractsInBatches writes contracts to the relational store
// relationalBatchSize at a time, fanning each batch out across its own
// bounded pool of goroutines (one per contract in the batch) before
// moving to the next batch.
func saveContractsInBatches(ctx context.Context, relational *store.Postgres, contracts []models.Contract) error {
	for start := 0; start < len(contracts); start += relationalBatchSize {
		end := start + relationalBatchSize
		if end > len(contracts) {
			end = len(contracts)
		}
		batch := contracts[start:end]

		var wg sync.WaitGroup
		errs := make([]error, len(batch))
		for i, c := range batch {
			wg.Add(1)
			go func(i int, c models.Contract) {
				defer wg.Done()
				if err := relational.SaveContract(ctx, c); err != nil {
					errs[i] = fmt.Errorf("save contract %d: %w", c.ID, err)
				}
			}(i, c)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		log.Printf("migrate-to-postgres: saved %d/%d contracts", end, len(contracts))
	}
	return nil
}

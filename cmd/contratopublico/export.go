package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/chicoferreira/contratopublico-go/internal/models"
	"github.com/chicoferreira/contratopublico-go/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export-old-format-to-json <out>",
	Short: "Dump every indexed contract projection to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	addSearchFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	outPath := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	searchURL := flagOrEnv(cmd, "search-url", cfg.MeilisearchURL, "http://localhost:7700")
	searchKey := flagOrEnv(cmd, "search-key", cfg.MeilisearchKey, "")

	search, err := store.NewSearch(searchURL, searchKey)
	if err != nil {
		return fmt.Errorf("export: connect search: %w", err)
	}

	docs, err := search.AllDocuments()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	docs = filterEmptyCPV(docs)

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", outPath, err)
	}

	log.Printf("export: wrote %d contracts to %s", len(docs), outPath)
	return nil
}

// filterEmptyCPV drops contracts with no CPV codes, mirroring the
// cleanup pass the original migration tool ran over legacy exports.
func filterEmptyCPV(docs []models.SearchProjection) []models.SearchProjection {
	out := make([]models.SearchProjection, 0, len(docs))
	for _, d := range docs {
		if len(d.CPVCodes) == 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Command contratopublico scrapes base.gov.pt's public contract
// records into a relational store and a full-text search index, and
// exposes the query surface over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "contratopublico",
	Short:   "Scrape and serve Portuguese public-contract records",
	Long:    "contratopublico scrapes base.gov.pt's public contract records into Postgres and Meilisearch, tracks resumable progress in a JSON ledger, and serves a query API over the result.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file providing defaults for the flags below")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

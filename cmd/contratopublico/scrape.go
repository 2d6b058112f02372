package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chicoferreira/contratopublico-go/internal/api"
	"github.com/chicoferreira/contratopublico-go/internal/ledger"
	"github.com/chicoferreira/contratopublico-go/internal/portal"
	"github.com/chicoferreira/contratopublico-go/internal/scrape"
	"github.com/chicoferreira/contratopublico-go/internal/stats"
	"github.com/chicoferreira/contratopublico-go/internal/store"
	"github.com/chicoferreira/contratopublico-go/internal/throttle"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [ledger-path]",
	Short: "Run the fetch pipeline until the producer terminates",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScrape,
}

func init() {
	addPostgresFlags(scrapeCmd)
	addSearchFlags(scrapeCmd)
	addProxyFlag(scrapeCmd)
	scrapeCmd.Flags().Int("concurrency", throttle.DefaultConcurrency, "detail-fetch fan-out width")
	scrapeCmd.Flags().Float64("rate", 5, "requests per second allowed against the portal")
	scrapeCmd.Flags().String("api-addr", "", "bind address for the query API served alongside the scrape (overrides $API_ADDR; default :8080)")
	scrapeCmd.Flags().String("jwt-secret", "", "HMAC secret for the admin reindex endpoint (overrides $JWT_SIGNING_KEY)")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	ledgerPath := cfg.LedgerPath
	if len(args) == 1 {
		ledgerPath = args[0]
	}

	dbURL := flagOrEnv(cmd, "db-url", cfg.DatabaseURL, "")
	if dbURL == "" {
		return fmt.Errorf("scrape: --db-url, $DATABASE_URL or config database_url is required")
	}
	searchURL := flagOrEnv(cmd, "search-url", cfg.MeilisearchURL, "http://localhost:7700")
	searchKey := flagOrEnv(cmd, "search-key", cfg.MeilisearchKey, "")
	apiAddr := flagOrEnv(cmd, "api-addr", cfg.APIAddr, ":8080")
	jwtSecret := flagOrEnv(cmd, "jwt-secret", cfg.JWTSigningKey, "")
	concurrency := flagIntOrConfig(cmd, "concurrency", cfg.ScrapeConcurrency)
	rate := flagFloat64OrConfig(cmd, "rate", cfg.ScrapeRatePerSec)

	proxyURL, err := parseProxyFlag(cmd, cfg.ProxyURL)
	if err != nil {
		return fmt.Errorf("scrape: parse --proxy: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Printf("scrape: database %s", redactDatabaseURL(dbURL))
	log.Printf("scrape: search index %s", searchURL)
	log.Printf("scrape: ledger %s", ledgerPath)

	relational, err := store.NewPostgres(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("scrape: connect postgres: %w", err)
	}
	defer relational.Close()
	if err := relational.Migrate(ctx); err != nil {
		return fmt.Errorf("scrape: migrate: %w", err)
	}

	search, err := store.NewSearch(searchURL, searchKey)
	if err != nil {
		return fmt.Errorf("scrape: connect search: %w", err)
	}

	led, err := ledger.Open(ledgerPath)
	if err != nil {
		return fmt.Errorf("scrape: open ledger: %w", err)
	}

	dual := store.NewDualStore(relational, search, led)

	var portalOpts []portal.Option
	if proxyURL != nil {
		portalOpts = append(portalOpts, portal.WithProxy(proxyURL))
	}
	portalClient := portal.NewClient(portalOpts...)

	th := throttle.New(concurrency, rate)

	aggregator := stats.New(relational)

	apiServer := api.NewServer(apiAddr, search, relational, aggregator, jwtSecret)
	aggregator.OnRefresh(apiServer.BroadcastRollup)

	pipeline := scrape.New(portalClient, th, led, dual, scrape.Config{
		Concurrency: concurrency,
		OnProgress: func(p scrape.Progress) {
			apiServer.BroadcastScrapePage(p.Page, p.SavedIDs, p.LastError)
		},
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		aggregator.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("scrape: api listening on %s", apiAddr)
		if err := apiServer.Start(); err != nil {
			log.Printf("scrape: api server stopped: %v", err)
		}
	}()

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		pipeline.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-pipelineDone:
		log.Println("scrape: pipeline finished, shutting down")
	case <-sigChan:
		log.Println("scrape: signal received, shutting down")
	}

	cancel()
	_ = apiServer.Shutdown(context.Background())
	<-pipelineDone
	wg.Wait()
	return nil
}

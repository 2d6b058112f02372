// Package scrape implements the two-stage producer/consumer pipeline
// that discovers contract IDs by page and fetches their details
// concurrently, with retry, backpressure and a consecutive-failure
// safety bound.
package scrape

import (
	"context"
	"log"
	"sync"

	"github.com/chicoferreira/contratopublico-go/internal/ledger"
	"github.com/chicoferreira/contratopublico-go/internal/models"
	"github.com/chicoferreira/contratopublico-go/internal/portal"
	"github.com/chicoferreira/contratopublico-go/internal/throttle"
)

// MaxConsecutiveFailures bounds the producer once total_pages is still
// unknown: a perpetually failing portal must not spin forever before
// the pipeline gives up and terminates.
const MaxConsecutiveFailures = 10

// item is one discovered contract ID awaiting a detail fetch.
type item struct {
	id   uint64
	page uint64
}

// PortalClient is the subset of *portal.Client the pipeline depends
// on; narrowed to an interface so tests can substitute a fake portal.
type PortalClient interface {
	FetchPage(ctx context.Context, sort portal.Sort, page, size int) (portal.PageResult, error)
	FetchDetail(ctx context.Context, id int64) (models.Contract, error)
}

// ContractStore is the subset of *store.DualStore the pipeline
// depends on.
type ContractStore interface {
	SaveContract(ctx context.Context, c models.Contract, page, contractsPerPage uint64) error
}

// Progress reports the producer's position after each page fetch
// attempt, letting a caller (e.g. the API server's WebSocket hub)
// surface scrape progress without polling the ledger.
type Progress struct {
	Page      uint64
	SavedIDs  int
	LastError string
}

// Pipeline owns the producer and consumer dispatcher tasks and the
// bounded channel between them.
type Pipeline struct {
	portal      PortalClient
	throttler   *throttle.Throttler
	ledger      *ledger.Ledger
	store       ContractStore
	pageSize    int
	concurrency int
	onProgress  func(Progress)
}

// Config holds the tuning knobs for a Pipeline.
type Config struct {
	PageSize    int // MAX_PAGE_SIZE, matches portal behaviour; default portal.MaxPageSize.
	Concurrency int // channel capacity and detail-fetch fan-out width.

	// OnProgress, if set, is called from the producer goroutine after
	// every page fetch attempt. Implementations must not block.
	OnProgress func(Progress)
}

func New(p PortalClient, th *throttle.Throttler, l *ledger.Ledger, s ContractStore, cfg Config) *Pipeline {
	if cfg.PageSize <= 0 {
		cfg.PageSize = portal.MaxPageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = throttle.DefaultConcurrency
	}
	return &Pipeline{
		portal:      p,
		throttler:   th,
		ledger:      l,
		store:       s,
		pageSize:    cfg.PageSize,
		concurrency: cfg.Concurrency,
		onProgress:  cfg.OnProgress,
	}
}

// Run drives the pipeline to completion: the producer discovers IDs
// until its cursor reaches the portal's total page count (or, while
// that count is still unknown, until it exhausts the
// consecutive-failure bound), then the consumer drains and the
// pipeline returns once every outstanding detail fetch has finished.
func (p *Pipeline) Run(ctx context.Context) {
	ch := make(chan item, p.concurrency)

	var producerDone sync.WaitGroup
	producerDone.Add(1)
	go func() {
		defer producerDone.Done()
		p.produce(ctx, ch)
	}()

	p.consume(ctx, ch)
	producerDone.Wait()
}

func ceilDiv(total, size int64) uint64 {
	if size <= 0 {
		return 0
	}
	if total <= 0 {
		return 0
	}
	return uint64((total + size - 1) / size)
}

// produce discovers contract IDs page by page in ascending ID order,
// sending each {id, page} pair on ch (blocking when the consumer falls
// behind, which is the pipeline's backpressure). It closes ch when
// done so the consumer terminates after draining.
func (p *Pipeline) produce(ctx context.Context, ch chan<- item) {
	defer close(ch)

	cursor := uint64(0)
	var totalPages uint64
	totalPagesKnown := false
	consecutiveFailures := 0

	sort := portal.Sort{Field: portal.SortID, Order: portal.Ascending}

	for {
		if totalPagesKnown {
			if cursor >= totalPages {
				return
			}
		} else if consecutiveFailures >= MaxConsecutiveFailures {
			log.Printf("scrape: producer stopping after %d consecutive page failures with total_pages still unknown", consecutiveFailures)
			return
		}

		cursor = p.ledger.NextPageToQuery(cursor)
		if totalPagesKnown && cursor >= totalPages {
			return
		}

		permit, err := p.throttler.Acquire(ctx)
		if err != nil {
			return // context cancelled
		}
		result, err := p.portal.FetchPage(ctx, sort, int(cursor), p.pageSize)
		permit.Release()

		if err != nil {
			log.Printf("scrape: fetch page %d failed: %v", cursor, err)
			consecutiveFailures++
			p.reportProgress(Progress{Page: cursor, LastError: err.Error()})
			continue
		}

		for _, id := range result.IDs {
			select {
			case ch <- item{id: uint64(id), page: cursor}:
			case <-ctx.Done():
				return
			}
		}

		if newTotal := ceilDiv(result.Total, int64(p.pageSize)); !totalPagesKnown || newTotal > totalPages {
			totalPages = newTotal
			totalPagesKnown = true
		}
		consecutiveFailures = 0
		p.reportProgress(Progress{Page: cursor, SavedIDs: len(result.IDs)})
		cursor++
	}
}

func (p *Pipeline) reportProgress(ev Progress) {
	if p.onProgress != nil {
		p.onProgress(ev)
	}
}

// consume receives discovered items, skips ones already persisted,
// and spawns a worker per item (bounded by the throttler's semaphore,
// which also bounds this loop's own rate of dispatch) that fetches the
// detail and saves it. Failed detail fetches are re-enqueued for retry
// on a best-effort basis. Returns once ch is closed and every spawned
// worker has finished.
func (p *Pipeline) consume(ctx context.Context, ch chan item) {
	var workers sync.WaitGroup

	for it := range ch {
		if p.ledger.AlreadySeen(it.page, it.id) {
			continue
		}

		permit, err := p.throttler.Acquire(ctx)
		if err != nil {
			continue
		}

		workers.Add(1)
		go func(it item, permit throttle.Permit) {
			defer workers.Done()
			defer permit.Release()
			p.handle(ctx, ch, it)
		}(it, permit)
	}

	workers.Wait()
}

func (p *Pipeline) handle(ctx context.Context, ch chan item, it item) {
	contract, err := p.portal.FetchDetail(ctx, int64(it.id))
	if err != nil {
		log.Printf("scrape: detail fetch failed for id %d (page %d): %v", it.id, it.page, err)
		retryEnqueue(ch, it)
		return
	}

	if err := p.store.SaveContract(ctx, contract, it.page, uint64(p.pageSize)); err != nil {
		log.Printf("scrape: save failed for contract %d: %v", it.id, err)
	}
}

// retryEnqueue re-sends it on ch on a best-effort, non-blocking basis.
// If the producer has already finished and closed ch, the send panics;
// that is exactly the "channel closed" case the retry is allowed to
// drop (the next scrape run will re-attempt the page since the ledger
// was never updated for it), so the panic is recovered and swallowed.
func retryEnqueue(ch chan item, it item) {
	defer func() { _ = recover() }()
	select {
	case ch <- it:
	default:
	}
}

// Package ledger implements the resumable progress record for the
// scraper: which pages have been fully ingested, and which are still
// partially seen. It is persisted to disk on every update so a
// restarted run never re-fetches completed work and never silently
// loses partial progress.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/chicoferreira/contratopublico-go/internal/intervalset"
)

// document is the on-disk JSON shape, matching the wire contract named
// in the query-surface boundary spec: savedPages as [start,end] pairs,
// pendingPages as a map from page-number string to contract IDs.
type document struct {
	SavedPages   [][2]uint64         `json:"savedPages"`
	PendingPages map[string][]uint64 `json:"pendingPages"`
}

// Ledger is the in-memory, mutex-guarded progress record backed by a
// file at path. All critical sections are short and non-suspending;
// the file write happens after the lock is released by writing a
// snapshot taken under the lock.
type Ledger struct {
	mu   sync.Mutex
	path string

	savedPages   *intervalset.Set[uint64]
	pendingPages map[uint64]map[uint64]struct{}
}

// Open loads a ledger from path if it exists, or starts an empty one.
// A malformed existing file is a fatal error: we refuse to silently
// discard history by starting empty.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:         path,
		savedPages:   intervalset.New[uint64](),
		pendingPages: make(map[uint64]map[uint64]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", path, err)
	}

	l.savedPages = intervalset.FromRanges(doc.SavedPages)
	for pageStr, ids := range doc.PendingPages {
		page, err := strconv.ParseUint(pageStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger: decode %s: bad page key %q: %w", path, pageStr, err)
		}
		set := make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		l.pendingPages[page] = set
	}

	return l, nil
}

// Update records that contract id was seen on page, which holds
// contractsPerPage contracts when complete. Once the page's pending set
// reaches contractsPerPage distinct ids, the page moves from
// pendingPages into savedPages. No-op if the page is already saved.
// Persists the ledger to disk after every update.
func (l *Ledger) Update(page, contractsPerPage uint64, id uint64) error {
	doc := l.apply(page, contractsPerPage, id)
	if doc == nil {
		return nil
	}
	return persist(l.path, *doc)
}

func (l *Ledger) apply(page, contractsPerPage, id uint64) *document {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.savedPages.Contains(page) {
		return nil
	}

	set := l.pendingPages[page]
	if set == nil {
		set = make(map[uint64]struct{})
		l.pendingPages[page] = set
	}
	set[id] = struct{}{}

	if uint64(len(set)) >= contractsPerPage {
		l.savedPages.Insert(page)
		delete(l.pendingPages, page)
	}

	return l.snapshotLocked()
}

// AlreadySeen reports whether id on page has already been persisted or
// is already recorded as partially seen.
func (l *Ledger) AlreadySeen(page, id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.savedPages.Contains(page) {
		return true
	}
	_, ok := l.pendingPages[page][id]
	return ok
}

// NextPageToQuery returns the next page the producer should fetch: the
// lesser of the smallest pending page at or after cursor, and the first
// fully-missing page at or after cursor. This resumes an incomplete
// page before advancing the frontier.
func (l *Ledger) NextPageToQuery(cursor uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	firstMissing := l.savedPages.FirstMissing(cursor)

	havePending := false
	var minPending uint64
	for page := range l.pendingPages {
		if page < cursor {
			continue
		}
		if !havePending || page < minPending {
			minPending = page
			havePending = true
		}
	}

	if !havePending {
		return firstMissing
	}
	if minPending < firstMissing {
		return minPending
	}
	return firstMissing
}

func (l *Ledger) snapshotLocked() *document {
	doc := document{
		SavedPages:   l.savedPages.Ranges(),
		PendingPages: make(map[string][]uint64, len(l.pendingPages)),
	}
	for page, set := range l.pendingPages {
		ids := make([]uint64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		doc.PendingPages[strconv.FormatUint(page, 10)] = ids
	}
	return &doc
}

func persist(path string, doc document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: create dir for %s: %w", path, err)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("ledger: marshal: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s for write: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("ledger: write %s: %w", path, err)
	}
	return nil
}

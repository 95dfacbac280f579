// Package area defines the contract between the search core and the
// systems that own the indexable content: one provider per logical area,
// plus a file store for attached files. Providers are registered in an
// explicit registry at process startup.
package area

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lanternsearch/lantern/internal/document"
)

// AccessDecision is the outcome of rechecking a search result against
// the live source system.
type AccessDecision int

const (
	// AccessDenied means the record exists but the user may not see it.
	AccessDenied AccessDecision = iota
	// AccessGranted means the result can be surfaced.
	AccessGranted
	// AccessDeleted means the source record is gone; the stale index
	// entry should be removed.
	AccessDeleted
)

func (d AccessDecision) String() string {
	switch d {
	case AccessGranted:
		return "granted"
	case AccessDenied:
		return "denied"
	case AccessDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("AccessDecision(%d)", int(d))
	}
}

// Provider supplies documents and access decisions for one content area.
// One implementation exists per indexable content area.
type Provider interface {
	// AreaID returns the area identifier this provider serves.
	AreaID() string

	// CheckAccess rechecks one source record for the current caller.
	// An error here is an access-check failure, distinct from a denial:
	// the result is skipped and processing continues.
	CheckAccess(ctx context.Context, itemID int64) (AccessDecision, error)

	// DocumentForID builds the document directly from the source system,
	// bypassing the index.
	DocumentForID(ctx context.Context, itemID int64) (*document.Document, error)

	// EachDocument yields every document modified at or after since,
	// in ascending modification order, until fn returns an error or the
	// area is exhausted.
	EachDocument(ctx context.Context, since int64, fn func(*document.Document) error) error
}

// FileStore resolves the files currently attached to a document.
type FileStore interface {
	AttachedFiles(ctx context.Context, d *document.Document) ([]document.File, error)
}

// Registry maps area ids to their providers. Registration happens once
// at startup; lookups are concurrency-safe.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Registering the same area twice is a
// programming error and is rejected.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.AreaID()
	if id == "" {
		return fmt.Errorf("provider has empty area id")
	}
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("area %q already registered", id)
	}
	r.providers[id] = p
	return nil
}

// Lookup resolves the provider for an area id. A miss usually means the
// area was uninstalled after its records were indexed.
func (r *Registry) Lookup(areaID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[areaID]
	return p, ok
}

// Areas returns the registered area ids in sorted order.
func (r *Registry) Areas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package core

import (
	"context"
	"fmt"
	"sync"

	"aligncore/pkg/domain"
)

// Catalog is the in-memory view of the record table and the requirements
// table. It is built once at startup and updated in place when annotators
// submit target blocks.
type Catalog struct {
	mu           sync.RWMutex
	records      map[string]domain.Record
	order        []string
	requirements domain.Requirements
}

// Selection is the outcome of picking the next record for a language.
type Selection struct {
	ID              string
	DoneInOtherLang bool
	// Done is set when every relation quota is met and no record is returned.
	Done bool
}

// NewCatalog indexes records and checks that every relation label has a
// requirement entry.
func NewCatalog(records []domain.Record, req domain.Requirements) (*Catalog, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &Catalog{
		records:      make(map[string]domain.Record, len(records)),
		order:        make([]string, 0, len(records)),
		requirements: cloneRequirements(req),
	}
	for _, rec := range records {
		if _, dup := c.records[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate record id %s", domain.ErrIntegrity, rec.ID)
		}
		if rec.Relation == "" {
			return nil, fmt.Errorf("%w: record %s has no relation label", domain.ErrIntegrity, rec.ID)
		}
		if _, ok := req[rec.Relation]; !ok {
			return nil, fmt.Errorf("%w: relation %q of record %s has no requirement", domain.ErrIntegrity, rec.Relation, rec.ID)
		}
		c.records[rec.ID] = rec
		c.order = append(c.order, rec.ID)
	}
	return c, nil
}

// LoadCatalog reads every record from store and builds a catalog.
func LoadCatalog(ctx context.Context, store domain.RecordStore, req domain.Requirements) (*Catalog, error) {
	records, err := store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return NewCatalog(records, req)
}

func cloneRequirements(req domain.Requirements) domain.Requirements {
	out := make(domain.Requirements, len(req))
	for k, v := range req {
		out[k] = v
	}
	return out
}

// Requirements returns a copy of the requirements table.
func (c *Catalog) Requirements() domain.Requirements {
	return cloneRequirements(c.requirements)
}

// IDs returns every record id in storage order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Record returns the cached record for id.
func (c *Catalog) Record(id string) (domain.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

func (c *Catalog) setTarget(id string, lang domain.Language, block string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[id]; ok {
		c.records[id] = rec.WithTarget(lang, block)
	}
}

func (c *Catalog) relation(id string) (string, error) {
	c.mu.RLock()
	rec, ok := c.records[id]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: processed id %s has no known relation", domain.ErrIntegrity, id)
	}
	if _, ok := c.requirements[rec.Relation]; !ok {
		return "", fmt.Errorf("%w: relation %q of record %s has no requirement", domain.ErrIntegrity, rec.Relation, id)
	}
	return rec.Relation, nil
}

// Satisfied counts processed records per bucket and relation. Every relation
// in the requirements table is present, zero when nothing matches.
func (c *Catalog) Satisfied(processed domain.Processed) (domain.SatisfactionCounts, error) {
	counts := domain.NewSatisfactionCounts(c.requirements)
	for _, b := range domain.Buckets {
		for id := range processed[b] {
			rel, err := c.relation(id)
			if err != nil {
				return nil, err
			}
			counts[b][rel]++
		}
	}
	return counts, nil
}

// Complete reports whether the both bucket has reached every relation quota.
func (c *Catalog) Complete(satisfied domain.SatisfactionCounts) bool {
	for rel, required := range c.requirements {
		if satisfied[domain.BucketBoth][rel] < required {
			return false
		}
	}
	return true
}

// Needed reports whether id still requires annotation in lang.
func (c *Catalog) Needed(id string, lang domain.Language, progress domain.Progress) (bool, error) {
	if exempt(id, lang, progress) {
		return false, nil
	}
	satisfied, err := c.Satisfied(progress.Processed)
	if err != nil {
		return false, err
	}
	return c.neededWith(id, lang, progress, satisfied)
}

func exempt(id string, lang domain.Language, progress domain.Progress) bool {
	return progress.Processed.Contains(domain.BucketBoth, id) ||
		progress.Processed.Contains(lang.Bucket(), id) ||
		progress.Discarded.Has(id)
}

// neededWith is Needed with satisfaction counts computed by the caller. The
// both count and the single-language count are compared to the requirement
// separately and never summed.
func (c *Catalog) neededWith(id string, lang domain.Language, progress domain.Progress, satisfied domain.SatisfactionCounts) (bool, error) {
	if exempt(id, lang, progress) {
		return false, nil
	}
	rel, err := c.relation(id)
	if err != nil {
		return false, err
	}
	required := c.requirements[rel]
	if required == satisfied[domain.BucketBoth][rel] || required == satisfied[lang.Bucket()][rel] {
		return false, nil
	}
	return true, nil
}

// Eligible returns the ids that still need annotation in lang, in storage
// order.
func (c *Catalog) Eligible(lang domain.Language, progress domain.Progress, satisfied domain.SatisfactionCounts) ([]string, error) {
	var out []string
	for _, id := range c.IDs() {
		ok, err := c.neededWith(id, lang, progress, satisfied)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Select picks the next record for lang. Records already finished in the
// other language are offered first and stay in their bucket; otherwise a
// record is drawn uniformly from the eligible set.
func (c *Catalog) Select(lang domain.Language, progress domain.Progress, rng Rand) (Selection, error) {
	satisfied, err := c.Satisfied(progress.Processed)
	if err != nil {
		return Selection{}, err
	}
	if c.Complete(satisfied) {
		return Selection{Done: true}, nil
	}
	if pending := progress.Processed[lang.Other().Bucket()]; len(pending) > 0 {
		return Selection{ID: pending.Sorted()[0], DoneInOtherLang: true}, nil
	}
	eligible, err := c.Eligible(lang, progress, satisfied)
	if err != nil {
		return Selection{}, err
	}
	if len(eligible) == 0 {
		return Selection{}, fmt.Errorf("%w for %s", domain.ErrNoEligibleRecord, lang)
	}
	if rng == nil {
		rng = globalRand{}
	}
	return Selection{ID: eligible[rng.IntN(len(eligible))]}, nil
}

package domain

import (
	"fmt"
	"sort"
)

// Requirements maps a relation label to the number of records that must be
// annotated for it. It is loaded once and never mutated.
type Requirements map[string]int

// Relations returns the relation labels in lexical order.
func (r Requirements) Relations() []string {
	out := make([]string, 0, len(r))
	for rel := range r {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Total sums every required count.
func (r Requirements) Total() int {
	total := 0
	for _, n := range r {
		total += n
	}
	return total
}

// Validate rejects negative counts and empty labels.
func (r Requirements) Validate() error {
	for rel, n := range r {
		if rel == "" {
			return fmt.Errorf("requirements: empty relation label")
		}
		if n < 0 {
			return fmt.Errorf("requirements: negative count %d for %s", n, rel)
		}
	}
	return nil
}

// SatisfactionCounts is the derived per-bucket, per-relation count of
// processed records.
type SatisfactionCounts map[Bucket]map[string]int

// NewSatisfactionCounts returns zeroed counts for every bucket and relation.
func NewSatisfactionCounts(req Requirements) SatisfactionCounts {
	out := make(SatisfactionCounts, len(Buckets))
	for _, b := range Buckets {
		m := make(map[string]int, len(req))
		for rel := range req {
			m[rel] = 0
		}
		out[b] = m
	}
	return out
}

// Done returns the number of records annotated in lang for relation,
// counting both its own bucket and the both bucket.
func (s SatisfactionCounts) Done(lang Language, relation string) int {
	return s[lang.Bucket()][relation] + s[BucketBoth][relation]
}

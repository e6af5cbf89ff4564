package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// IDSet is a set of record identifiers. It encodes as a sorted JSON array and
// decodes from arrays of strings or numbers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id string) { s[id] = struct{}{} }

// Remove deletes id; removing an absent id is a no-op.
func (s IDSet) Remove(id string) { delete(s, id) }

// Sorted returns the members in id order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	SortIDs(out)
	return out
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts an array of string or numeric ids.
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(IDSet, len(raw))
	for _, item := range raw {
		id, err := DecodeID(item)
		if err != nil {
			return err
		}
		out[id] = struct{}{}
	}
	*s = out
	return nil
}

// DecodeID reads a record id encoded as a JSON string or number.
func DecodeID(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("%w: id must be a string or number", ErrInvalidPayload)
	}
	return num.String(), nil
}

// SortIDs puts integer ids first in numeric order, then every other id in
// lexical order.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aErr := strconv.ParseInt(ids[i], 10, 64)
		b, bErr := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return ids[i] < ids[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}

// Processed holds the three completion buckets.
type Processed map[Bucket]IDSet

// NewProcessed returns a processed structure with every bucket present and
// empty.
func NewProcessed() Processed {
	return Processed{}.normalize()
}

func (p Processed) normalize() Processed {
	if p == nil {
		p = make(Processed, len(Buckets))
	}
	for _, b := range Buckets {
		if p[b] == nil {
			p[b] = make(IDSet)
		}
	}
	return p
}

// Clone deep-copies every bucket.
func (p Processed) Clone() Processed {
	out := make(Processed, len(p))
	for b, set := range p {
		out[b] = set.Clone()
	}
	return out.normalize()
}

// Contains reports whether id sits in bucket b.
func (p Processed) Contains(b Bucket, id string) bool {
	return p[b].Has(id)
}

// BucketOf returns the bucket holding id, if any.
func (p Processed) BucketOf(id string) (Bucket, bool) {
	for _, b := range Buckets {
		if p[b].Has(id) {
			return b, true
		}
	}
	return "", false
}

// Progress is the working copy of processed and discarded state for a single
// request.
type Progress struct {
	Processed Processed
	Discarded IDSet
}

// NewProgress returns empty progress.
func NewProgress() Progress {
	return Progress{Processed: NewProcessed(), Discarded: make(IDSet)}
}

// Clone deep-copies p.
func (p Progress) Clone() Progress {
	return Progress{Processed: p.Processed.Clone(), Discarded: p.Discarded.Clone()}
}

// Discard excludes id from future selection and removes it from every
// processed bucket. Repeated calls leave the state unchanged.
func (p *Progress) Discard(id string) {
	p.Processed = p.Processed.normalize()
	if p.Discarded == nil {
		p.Discarded = make(IDSet)
	}
	p.Discarded.Add(id)
	for _, b := range Buckets {
		p.Processed[b].Remove(id)
	}
}

// MarkUpdated records that id was annotated in lang. A record already done in
// the other language moves to the both bucket; otherwise it joins the lang
// bucket. A record already in both stays there. The discarded set is not
// consulted, so a discarded record that is updated ends up in both places.
func (p *Progress) MarkUpdated(id string, lang Language) {
	p.Processed = p.Processed.normalize()
	if p.Processed[BucketBoth].Has(id) {
		return
	}
	other := lang.Other().Bucket()
	if p.Processed[other].Has(id) {
		p.Processed[BucketBoth].Add(id)
		p.Processed[other].Remove(id)
		return
	}
	p.Processed[lang.Bucket()].Add(id)
}

package core

import (
	"testing"

	"aligncore/pkg/domain"
)

func TestProgressReport_Text(t *testing.T) {
	req := domain.Requirements{"org:founded": 1, "per:title": 3}
	satisfied := domain.NewSatisfactionCounts(req)
	satisfied[domain.BucketRU]["per:title"] = 2
	satisfied[domain.BucketBoth]["per:title"] = 1
	satisfied[domain.BucketKO]["org:founded"] = 1
	report := NewProgressReport(req, satisfied, false)
	want := "total\n\tru: 3\n\tko: 2\nout of 4\n\n" +
		"per:title\n\tru: 3\n\tko: 1\nout of 3\n\n" +
		"org:founded\n\tru: 0\n\tko: 1\nout of 1\n"
	if got := report.Text(); got != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got, want)
	}
}

func TestProgressReport_TiesKeepLexicalOrder(t *testing.T) {
	req := domain.Requirements{"b": 1, "a": 1, "c": 2}
	report := NewProgressReport(req, domain.NewSatisfactionCounts(req), false)
	var order []string
	for _, rp := range report.Relations {
		order = append(order, rp.Relation)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}

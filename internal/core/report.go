package core

import (
	"fmt"
	"sort"
	"strings"

	"aligncore/pkg/domain"
)

// RelationProgress is the per-language completion of one relation. RU and KO
// include records finished in both languages.
type RelationProgress struct {
	Relation string `json:"relation"`
	Required int    `json:"required"`
	RU       int    `json:"ru"`
	KO       int    `json:"ko"`
}

// ProgressReport summarises satisfaction counts against the requirements.
type ProgressReport struct {
	Requirements domain.Requirements       `json:"requirements"`
	Satisfied    domain.SatisfactionCounts `json:"satisfied"`
	Complete     bool                      `json:"complete"`
	Relations    []RelationProgress        `json:"relations"`
	Total        RelationProgress          `json:"total"`
}

// NewProgressReport builds a report with relations ordered by requirement,
// largest first.
func NewProgressReport(req domain.Requirements, satisfied domain.SatisfactionCounts, complete bool) ProgressReport {
	report := ProgressReport{
		Requirements: cloneRequirements(req),
		Satisfied:    satisfied,
		Complete:     complete,
		Total:        RelationProgress{Relation: "total"},
	}
	for _, rel := range req.Relations() {
		rp := RelationProgress{
			Relation: rel,
			Required: req[rel],
			RU:       satisfied.Done(domain.LanguageRU, rel),
			KO:       satisfied.Done(domain.LanguageKO, rel),
		}
		report.Relations = append(report.Relations, rp)
		report.Total.Required += rp.Required
		report.Total.RU += rp.RU
		report.Total.KO += rp.KO
	}
	sort.SliceStable(report.Relations, func(i, j int) bool {
		return report.Relations[i].Required > report.Relations[j].Required
	})
	return report
}

// Text renders the report in the plain-text layout served at /stats.
func (r ProgressReport) Text() string {
	var b strings.Builder
	writeBlock := func(rp RelationProgress) {
		fmt.Fprintf(&b, "%s\n\tru: %d\n\tko: %d\nout of %d\n\n", rp.Relation, rp.RU, rp.KO, rp.Required)
	}
	writeBlock(r.Total)
	for _, rp := range r.Relations {
		writeBlock(rp)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

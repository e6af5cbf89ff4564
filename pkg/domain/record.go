package domain

import (
	"strings"
	"unicode"
)

const relationPrefix = "# relation = "

// TargetBlock holds the annotation block for one language. Original is fixed
// at import time; Current is replaced by annotator updates.
type TargetBlock struct {
	Original string `json:"original"`
	Current  string `json:"current"`
}

// Record is one source sentence plus its two language-specific targets.
type Record struct {
	ID       string                   `json:"id"`
	Source   string                   `json:"source"`
	Relation string                   `json:"relation"`
	Targets  map[Language]TargetBlock `json:"targets"`
}

// NewRecord builds a record and derives its relation label from the source
// block.
func NewRecord(id, source string, targets map[Language]TargetBlock) Record {
	if targets == nil {
		targets = make(map[Language]TargetBlock, len(Languages))
	}
	return Record{
		ID:       id,
		Source:   source,
		Relation: RelationFromBlock(source),
		Targets:  targets,
	}
}

// Target returns the current annotation block for lang.
func (r Record) Target(lang Language) string {
	return r.Targets[lang].Current
}

// WithTarget returns a copy of r whose current block for lang is block.
func (r Record) WithTarget(lang Language, block string) Record {
	targets := make(map[Language]TargetBlock, len(r.Targets)+1)
	for k, v := range r.Targets {
		targets[k] = v
	}
	t := targets[lang]
	t.Current = block
	targets[lang] = t
	r.Targets = targets
	return r
}

// RelationFromBlock returns the value of the first "# relation = " comment
// line in a CoNLL-U style block, or "" when none is present.
func RelationFromBlock(block string) string {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, relationPrefix) {
			return strings.TrimRightFunc(line[len(relationPrefix):], unicode.IsSpace)
		}
	}
	return ""
}

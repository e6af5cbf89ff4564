package domain

import (
	"errors"
	"testing"
)

func TestRelationFromBlock(t *testing.T) {
	cases := []struct {
		name  string
		block string
		want  string
	}{
		{name: "present", block: "# sent_id = 1\n# relation = org:founded \n1\tApple", want: "org:founded"},
		{name: "crlf", block: "# relation = per:title\r\n1\tx", want: "per:title"},
		{name: "first wins", block: "# relation = a\n# relation = b", want: "a"},
		{name: "missing", block: "# text = hi\n1\thi", want: ""},
		{name: "leading space kept", block: "# relation =  per:title\t\n", want: " per:title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RelationFromBlock(tc.block); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestRecordWithTargetCopies(t *testing.T) {
	rec := NewRecord("1", "# relation = org:founded", map[Language]TargetBlock{
		LanguageRU: {Original: "ru", Current: "ru"},
	})
	updated := rec.WithTarget(LanguageRU, "ru2")
	if rec.Target(LanguageRU) != "ru" {
		t.Fatalf("original record mutated")
	}
	if updated.Target(LanguageRU) != "ru2" || updated.Targets[LanguageRU].Original != "ru" {
		t.Fatalf("unexpected target: %#v", updated.Targets[LanguageRU])
	}
	if rec.Relation != "org:founded" {
		t.Fatalf("relation not derived: %q", rec.Relation)
	}
}

func TestParseLanguage(t *testing.T) {
	for _, raw := range []string{"ru", "ko"} {
		lang, err := ParseLanguage(raw)
		if err != nil || string(lang) != raw {
			t.Fatalf("parse %s: %v", raw, err)
		}
	}
	if _, err := ParseLanguage("en"); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
	if LanguageRU.Other() != LanguageKO || LanguageKO.Other() != LanguageRU {
		t.Fatalf("other language mismatch")
	}
}

func TestRequirementsValidate(t *testing.T) {
	if err := (Requirements{"a": 1, "b": 0}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Requirements{"a": -1}).Validate(); err == nil {
		t.Fatalf("expected negative count rejected")
	}
	counts := NewSatisfactionCounts(Requirements{"a": 2})
	counts[BucketRU]["a"] = 1
	counts[BucketBoth]["a"] = 1
	if got := counts.Done(LanguageRU, "a"); got != 2 {
		t.Fatalf("done = %d", got)
	}
}

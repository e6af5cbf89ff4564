package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred ImportPredicate
		in   string
		want bool
	}{
		{InternalImportForbidden, "aligncore/internal/core", true},
		{InternalImportForbidden, "aligncore/internal", true},
		{InternalImportForbidden, "aligncore/pkg/domain", false},
		{PrefixForbidden("aligncore/internal/infra"), "aligncore/internal/infra/records/sqlite", true},
		{PrefixForbidden("aligncore/internal/infra"), "aligncore/internal/infra", true},
		{PrefixForbidden("aligncore/internal/infra"), "aligncore/internal/infrastructure", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("predicate(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.go", "package x\n\nimport (\n\t\"fmt\"\n\t\"aligncore/internal/core\"\n)\n\nvar _ = fmt.Sprint\nvar _ = core.Classify\n")
	write("a_test.go", "package x\n\nimport \"aligncore/internal/infra/blob/fs\"\n\nvar _ = fs.New\n")
	write("notes.txt", "import \"aligncore/internal/app\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := DirectImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "aligncore/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	if _, err := DirectImportViolations(filepath.Join(dir, "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}

	write("broken.go", "package x\nimport (")
	if _, err := DirectImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

type recordingTB struct {
	testing.TB
	failed string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, _ ...any) { r.failed = format }

func TestAssertNoDirectImportsReports(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package x\n\nimport _ \"aligncore/internal/app\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := &recordingTB{TB: t}
	AssertNoDirectImports(rec, dir, InternalImportForbidden, "test")
	if rec.failed == "" {
		t.Fatalf("expected a failure to be reported")
	}
	clean := &recordingTB{TB: t}
	AssertNoDirectImports(clean, dir, PrefixForbidden("aligncore/pkg"), "test")
	if clean.failed != "" {
		t.Fatalf("unexpected failure %q", clean.failed)
	}
}

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, _ ...any) { r.msg = format }

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package x\n\nimport (\n\t\"database/sql\"\n\t\"fmt\"\n)\n\nvar _ = sql.ErrNoRows\nvar _ = fmt.Sprint\n")
	writeFile(t, dir, "a_test.go", "package x\n\nimport \"net/http\"\n\nvar _ = http.MethodGet\n")
	writeFile(t, dir, "notes.txt", "ignored")

	viols, err := directImportViolations(dir, StorageImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "database/sql") {
		t.Fatalf("unexpected violations: %v", viols)
	}

	viols, err = directImportViolations(dir, TransportImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("test files must be skipped, got %v", viols)
	}
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		path string
		want bool
	}{
		{InternalImportForbidden, "speciesdesk/internal/core", true},
		{InternalImportForbidden, "speciesdesk/pkg/domain", false},
		{StorageImportForbidden, "github.com/jackc/pgx/v5/stdlib", true},
		{StorageImportForbidden, "modernc.org/sqlite", true},
		{StorageImportForbidden, "speciesdesk/internal/infra/persistence/memory", true},
		{StorageImportForbidden, "context", false},
		{TransportImportForbidden, "github.com/gorilla/mux", true},
		{TransportImportForbidden, "net/url", false},
		{AnyOf(StorageImportForbidden, TransportImportForbidden), "net/http", true},
		{AnyOf(), "net/http", false},
	}
	for _, tc := range cases {
		if got := tc.pred(tc.path); got != tc.want {
			t.Errorf("predicate(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestFailIfDirectViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "reason", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfDirectViolations(rec, "reason", []string{"x"})
	if rec.msg == "" {
		t.Fatalf("expected failure to be reported")
	}
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLintFlagsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package q\n\nconst QOne = `--sql 11111111-2222-3333-4444-555555555555\nselect 1;\n`\n\nconst QBad = `\nselect *\nfrom jobs;\n`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QTwo = `--sql 11111111-2222-3333-4444-555555555555\ndelete from jobs;\n`\n\nconst Note = \"select a style\"\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("violations = %v, want 2", violations)
	}
	var sawMissing, sawDup bool
	for _, v := range violations {
		switch {
		case v.name == "QBad" && strings.Contains(v.message, "missing"):
			sawMissing = true
		case v.name == "QTwo" && strings.Contains(v.message, "already used by QOne"):
			sawDup = true
		}
	}
	if !sawMissing || !sawDup {
		t.Fatalf("unexpected violations: %v", violations)
	}
}

func TestLintAcceptsRepositoryQueries(t *testing.T) {
	violations, err := lint([]string{filepath.Join("..", "..", "sqlinline")})
	if err != nil {
		t.Fatalf("lint error: %v", err)
	}
	if len(violations) > 0 {
		t.Fatalf("sqlinline has marker problems: %v", violations)
	}
}

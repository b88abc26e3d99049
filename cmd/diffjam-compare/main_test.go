package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/diffjam/internal/diff"
	"github.com/dgnsrekt/diffjam/internal/normalize"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCompareIgnoresFormatting(t *testing.T) {
	prev := []byte("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n{\"a\":1,\"b\":[1,2]}")
	curr := []byte("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n{\n  \"a\": 1,\n  \"b\": [1, 2]\n}\n")

	report, warnings := compare(prev, curr, options{format: diff.FormatGrouped})
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if report != diff.NoChanges {
		t.Fatalf("report = %q; want %q", report, diff.NoChanges)
	}
}

func TestCompareReportsParseProblems(t *testing.T) {
	_, warnings := compare([]byte(`{"a":`), []byte(`{"a":1}`), options{format: diff.FormatGrouped, rawBody: true})
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v; want one", warnings)
	}
	var parseErr *normalize.ParseError
	if !errors.As(warnings[0], &parseErr) || !strings.HasPrefix(warnings[0].Error(), "previous:") {
		t.Fatalf("warning = %v; want previous parse error", warnings[0])
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	prev := writeFile(t, dir, "prev.json", `{"status":"open"}`)
	curr := writeFile(t, dir, "curr.json", `{"status":"closed"}`)

	t.Run("grouped", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"--raw-body", prev, curr}, &out); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if want := "- \"status\": \"open\"\n+ \"status\": \"closed\"\n\n"; out.String() != want {
			t.Fatalf("output = %q; want %q", out.String(), want)
		}
	})

	t.Run("unified", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"--raw-body", "--format", "unified", prev, curr}, &out); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if !strings.Contains(out.String(), "@@") || !strings.Contains(out.String(), `+    "status": "closed"`) {
			t.Fatalf("output = %q", out.String())
		}
	})

	t.Run("exit_code_on_change", func(t *testing.T) {
		var out bytes.Buffer
		err := run([]string{"--raw-body", "--exit-code", prev, curr}, &out)
		var coder interface{ ExitCode() int }
		if !errors.As(err, &coder) || coder.ExitCode() != 1 {
			t.Fatalf("run() error = %v; want exit code 1", err)
		}
	})

	t.Run("no_change_exit_zero", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{"--raw-body", "--exit-code", "--color", prev, prev}, &out); err != nil {
			t.Fatalf("run() error = %v", err)
		}
		if !strings.Contains(out.String(), diff.NoChanges) {
			t.Fatalf("output = %q", out.String())
		}
	})

	t.Run("bad_args", func(t *testing.T) {
		var out bytes.Buffer
		if err := run([]string{prev}, &out); err == nil {
			t.Fatalf("run() with one file should fail")
		}
		if err := run([]string{"--format", "side", prev, curr}, &out); err == nil {
			t.Fatalf("run() with unknown format should fail")
		}
	})
}

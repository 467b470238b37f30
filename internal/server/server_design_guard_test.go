package server

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDesignGuardStatusVocabularyStaysInStatusPackage(t *testing.T) {
	root := repoRootFromServerTests(t)
	files := []string{
		"internal/server/server_columns.go",
		"internal/server/server_api.go",
		"internal/server/ui_pages.go",
		"internal/table/column.go",
		"internal/tree/tree.go",
	}
	forbidden := []string{
		`"success text-success"`,
		`"danger text-danger"`,
		`"warning text-warning"`,
		`"info text-info"`,
		`"indirect-failed"`,
		`"indirect-prefailed"`,
		`"prefailed"`,
	}

	for _, rel := range files {
		source := mustReadRepoFile(t, root, rel)
		for _, literal := range forbidden {
			if lines := literalLineNumbers(source, literal); len(lines) > 0 {
				t.Errorf("%s contains raw status literal %s at lines %v; use the status package", rel, literal, lines)
			}
		}
	}
}

func TestDesignGuardUpstreamPathsComeFromClient(t *testing.T) {
	root := repoRootFromServerTests(t)
	files := []string{
		"internal/server/server_pages.go",
		"internal/server/server_api.go",
		"internal/server/server_navigation.go",
		"internal/tree/tree.go",
		"internal/selector/selector.go",
	}
	for _, rel := range files {
		source := mustReadRepoFile(t, root, rel)
		if lines := literalLineNumbers(source, `"json/`); len(lines) > 0 {
			t.Errorf("%s builds upstream paths by hand at lines %v; use btclient path helpers", rel, lines)
		}
	}
}

func TestDesignGuardHandlersAvoidUntypedJSONMaps(t *testing.T) {
	root := repoRootFromServerTests(t)
	files := []string{
		"internal/server/server_api.go",
		"internal/server/server_info.go",
		"internal/server/server_navigation.go",
	}
	for _, rel := range files {
		source := mustReadRepoFile(t, root, rel)
		if lines := literalLineNumbers(source, "map[string]any{"); len(lines) > 0 {
			t.Errorf("%s contains untyped map JSON response literals at lines %v; use typed response DTOs", rel, lines)
		}
	}
}

func TestDesignGuardPagesRenderThroughTemplates(t *testing.T) {
	root := repoRootFromServerTests(t)
	for _, rel := range []string{"internal/server/server_pages.go", "internal/server/server_navigation.go"} {
		source := mustReadRepoFile(t, root, rel)
		if lines := literalLineNumbers(source, "fmt.Fprint"); len(lines) > 0 {
			t.Errorf("%s writes markup directly at lines %v; render through html/template", rel, lines)
		}
	}
}

func repoRootFromServerTests(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("resolve current test file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func mustReadRepoFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func literalLineNumbers(source, literal string) []int {
	var out []int
	for i, line := range strings.Split(source, "\n") {
		if strings.Contains(line, literal) {
			out = append(out, i+1)
		}
	}
	return out
}

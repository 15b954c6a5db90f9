package loader

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/nbimport/internal/metrics"
	"github.com/kingrea/nbimport/internal/runtime"
	"github.com/kingrea/nbimport/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

type testCell struct {
	Type   string
	Source string
	Tags   []string
}

func code(src string, tags ...string) testCell {
	return testCell{Type: "code", Source: src, Tags: tags}
}

func markdown(src string) testCell {
	return testCell{Type: "markdown", Source: src}
}

func writeNotebook(t *testing.T, dir, name string, cells ...testCell) string {
	t.Helper()
	raw := make([]map[string]any, 0, len(cells))
	for _, c := range cells {
		meta := map[string]any{}
		if len(c.Tags) > 0 {
			meta["tags"] = c.Tags
		}
		entry := map[string]any{
			"cell_type": c.Type,
			"metadata":  meta,
			"source":    strings.SplitAfter(c.Source, "\n"),
		}
		if c.Type == "code" {
			entry["outputs"] = []any{}
			entry["execution_count"] = nil
		}
		raw = append(raw, entry)
	}
	doc := map[string]any{
		"nbformat":       4,
		"nbformat_minor": 5,
		"metadata":       map[string]any{},
		"cells":          raw,
	}
	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		t.Fatalf("marshal notebook: %v", err)
	}
	path := filepath.Join(dir, name+".ipynb")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write notebook: %v", err)
	}
	return path
}

func newRuntime(f *Finder) *runtime.Runtime {
	rt := runtime.New(runtime.WithNamespaceOptions(runtime.NamespaceOptions{Stdout: io.Discard, Stderr: io.Discard}))
	rt.Chain().Append(f)
	return rt
}

func mustLookup(t *testing.T, m *runtime.Module, name string) any {
	t.Helper()
	v, ok := m.Namespace.Lookup(name)
	if !ok {
		t.Fatalf("expected %s in namespace of %s", name, m.Name)
	}
	return v.Interface()
}

func TestImportUtilScenario(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "util",
		code("x := 1"),
		code("%timeit x"),
		code("y := x + 1", "noimport"),
		code("z := x + 100"),
	)
	rt := newRuntime(New(WithDir(dir), WithSession(session.None)))

	m, err := rt.Import("util")
	if err != nil {
		t.Fatalf("import util: %v", err)
	}
	if got := mustLookup(t, m, "x"); got != 1 {
		t.Fatalf("expected x=1, got %v", got)
	}
	if got := mustLookup(t, m, "z"); got != 101 {
		t.Fatalf("expected z=101, got %v", got)
	}
	if _, ok := m.Namespace.Lookup("y"); ok {
		t.Fatalf("noimport cell must not bind y")
	}
	if m.Executed() != 2 {
		t.Fatalf("expected 2 executed cells, got %d", m.Executed())
	}
}

func TestFindSpecMissingNotebookIsNoMatch(t *testing.T) {
	f := New(WithDir(t.TempDir()))
	spec, err := f.FindSpec("nothing_here", nil)
	if err != nil || spec != nil {
		t.Fatalf("expected no match, got spec=%v err=%v", spec, err)
	}
}

func TestFindSpecUnreadableNotebookIsNoMatch(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses read permission checks")
	}
	dir := t.TempDir()
	path := writeNotebook(t, dir, "secret", code("s := 1"))
	if err := os.Chmod(path, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	spec, err := New(WithDir(dir)).FindSpec("secret", nil)
	if err != nil || spec != nil {
		t.Fatalf("expected no match for unreadable notebook, got spec=%v err=%v", spec, err)
	}
}

func TestFindSpecOriginIsCanonical(t *testing.T) {
	dir := t.TempDir()
	target := writeNotebook(t, dir, "real", code("r := 1"))
	if err := os.Symlink(target, filepath.Join(dir, "alias.ipynb")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	f := New(WithDir(dir))
	spec, err := f.FindSpec("alias", nil)
	if err != nil || spec == nil {
		t.Fatalf("expected spec, got %v %v", spec, err)
	}
	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if spec.Origin != want {
		t.Fatalf("expected origin %s, got %s", want, spec.Origin)
	}
	if spec.Name != "alias" || spec.Loader != f {
		t.Fatalf("unexpected spec %+v", spec)
	}
	if m, err := f.CreateModule(spec); m != nil || err != nil {
		t.Fatalf("expected default module allocation")
	}
}

func TestImportNonCodeOnlyNotebook(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "notes", markdown("# Notes\n"), markdown("nothing to run"))
	rt := newRuntime(New(WithDir(dir)))
	m, err := rt.Import("notes")
	if err != nil {
		t.Fatalf("import notes: %v", err)
	}
	if m.Executed() != 0 {
		t.Fatalf("expected no executed cells, got %d", m.Executed())
	}
	if m.State() != runtime.StateLoaded {
		t.Fatalf("expected loaded state, got %s", m.State())
	}
}

func TestDirectiveCellIsNeverCompiled(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "magic",
		code("  %%bash\nthis is not go at all {{{"),
		code("ok := true"),
	)
	m, err := newRuntime(New(WithDir(dir))).Import("magic")
	if err != nil {
		t.Fatalf("directive cell should be skipped: %v", err)
	}
	if got := mustLookup(t, m, "ok"); got != true {
		t.Fatalf("expected ok=true, got %v", got)
	}
}

func TestNoImportCellIsNeverCompiled(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "tagged",
		code("this does not parse (", "scratch", "noimport"),
		code("n := 3"),
	)
	m, err := newRuntime(New(WithDir(dir))).Import("tagged")
	if err != nil {
		t.Fatalf("noimport cell should be skipped: %v", err)
	}
	if got := mustLookup(t, m, "n"); got != 3 {
		t.Fatalf("expected n=3, got %v", got)
	}
}

func TestCrossCellDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "shapes",
		code("import \"strings\""),
		code("func shout(s string) string { return strings.ToUpper(s) + \"!\" }"),
		markdown("between code cells"),
		code("greeting := shout(\"hi\")"),
	)
	m, err := newRuntime(New(WithDir(dir))).Import("shapes")
	if err != nil {
		t.Fatalf("import shapes: %v", err)
	}
	if got := mustLookup(t, m, "greeting"); got != "HI!" {
		t.Fatalf("expected greeting=HI!, got %v", got)
	}
}

func TestExecutionFailureLeavesPartialModule(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "flaky",
		code("a := 1"),
		markdown("prose does not count"),
		code("b := a + 1"),
		code("panic(\"cell three\")"),
		code("c := 3"),
	)
	rt := newRuntime(New(WithDir(dir)))

	_, err := rt.Import("flaky")
	var cellErr *CellError
	if !errors.As(err, &cellErr) {
		t.Fatalf("expected CellError, got %v", err)
	}
	if cellErr.Index != 3 || cellErr.Stage != StageExecute {
		t.Fatalf("expected execute failure at cell 3, got %+v", cellErr)
	}
	if cellErr.Label != Label(path, 3) {
		t.Fatalf("unexpected label %q", cellErr.Label)
	}
	if !strings.Contains(err.Error(), "Cell 3") {
		t.Fatalf("error should carry provenance: %v", err)
	}

	m, ok := rt.Modules().Get("flaky")
	if !ok {
		t.Fatalf("partial module should be reachable through the registry")
	}
	if got := mustLookup(t, m, "b"); got != 2 {
		t.Fatalf("expected b=2, got %v", got)
	}
	if _, ok := m.Namespace.Lookup("c"); ok {
		t.Fatalf("cells after the failure must not run")
	}
}

func TestCompileFailureReportsCell(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "typo",
		code("first := 1"),
		code("second := undefinedName + 1"),
	)
	_, err := newRuntime(New(WithDir(dir))).Import("typo")
	var cellErr *CellError
	if !errors.As(err, &cellErr) {
		t.Fatalf("expected CellError, got %v", err)
	}
	if cellErr.Index != 2 || cellErr.Stage != StageCompile {
		t.Fatalf("expected compile failure at cell 2, got %+v", cellErr)
	}
	if cellErr.Unwrap() == nil {
		t.Fatalf("original error must be preserved")
	}
}

func TestMalformedNotebookFailsLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.ipynb"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := newRuntime(New(WithDir(dir))).Import("bad")
	if err == nil {
		t.Fatalf("expected read failure")
	}
	var cellErr *CellError
	if errors.As(err, &cellErr) {
		t.Fatalf("read failures are not cell failures: %v", err)
	}
}

type recordingSession struct {
	sources []string
}

func (s *recordingSession) Cache(source string) string {
	s.sources = append(s.sources, source)
	return "<recorded>"
}

func TestSessionLabelsReplaceProvenance(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "interactive",
		code("%load_ext gonb"),
		code("v := 1"),
		code("panic(v)"),
	)
	rec := &recordingSession{}
	f := New(WithDir(dir), WithSession(func() (session.Session, bool) { return rec, true }))

	_, err := newRuntime(f).Import("interactive")
	var cellErr *CellError
	if !errors.As(err, &cellErr) {
		t.Fatalf("expected CellError, got %v", err)
	}
	if cellErr.Label != "<recorded>" || cellErr.Index != 3 {
		t.Fatalf("expected session label on cell 3, got %+v", cellErr)
	}
	if len(rec.sources) != 2 {
		t.Fatalf("only runnable cells should be cached, got %v", rec.sources)
	}
}

func TestPlanIndexesAllCodeCells(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "plan",
		markdown("intro"),
		code("%env A=1"),
		code("a := 1", "noimport"),
		code("b := 2"),
	)
	f := New(WithDir(dir))
	nb, err := f.read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	plan := f.Plan(nb, path)
	if len(plan) != 3 {
		t.Fatalf("expected 3 planned code cells, got %d", len(plan))
	}
	wantSkips := []SkipReason{SkipDirective, SkipNoImport, SkipNone}
	for i, cell := range plan {
		if cell.Index != i+1 {
			t.Fatalf("cell %d has index %d", i, cell.Index)
		}
		if cell.Skip != wantSkips[i] {
			t.Fatalf("cell %d: expected skip %q, got %q", cell.Index, wantSkips[i], cell.Skip)
		}
	}
	if plan[2].Label != path+" Cell 3" {
		t.Fatalf("unexpected label %q", plan[2].Label)
	}
}

func TestCustomFilters(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "custom",
		code("!ls"),
		code("skipme := 1", "draft"),
		code("kept := 2", "noimport"),
	)
	f := New(WithDir(dir), WithDirectivePrefixes("%", "!"), WithExcludeTag("draft"))
	m, err := newRuntime(f).Import("custom")
	if err != nil {
		t.Fatalf("import custom: %v", err)
	}
	if _, ok := m.Namespace.Lookup("skipme"); ok {
		t.Fatalf("draft-tagged cell should be skipped")
	}
	if got := mustLookup(t, m, "kept"); got != 2 {
		t.Fatalf("expected kept=2 when noimport is not the exclude tag, got %v", got)
	}
}

func TestLoaderMetrics(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "counted", code("%time"), code("q := 1"))
	reg := prometheus.NewRegistry()
	f := New(WithDir(dir), WithMetrics(metrics.NewWithRegistry(reg)))
	rt := newRuntime(f)
	if _, err := rt.Import("counted"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := rt.Import("absent"); !errors.Is(err, runtime.ErrModuleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, fam := range families {
		seen[fam.GetName()] = true
	}
	for _, name := range []string{"nbimport_lookups_total", "nbimport_loads_total", "nbimport_cells_total", "nbimport_load_duration_seconds"} {
		if !seen[name] {
			t.Fatalf("expected metric %s to be gathered", name)
		}
	}
}

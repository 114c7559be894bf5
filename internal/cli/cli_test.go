package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/routegraph/pkg/config"
	"github.com/matzehuels/routegraph/pkg/errors"
	docio "github.com/matzehuels/routegraph/pkg/io"
	"github.com/matzehuels/routegraph/pkg/order"
	"github.com/matzehuels/routegraph/pkg/routing"
	"github.com/matzehuels/routegraph/pkg/store"
)

const testDoc = `{
  "order": "MO-1",
  "operations": [
    {"id": "10", "timing": {"start": "2024-03-04T08:00:00Z", "end": "2024-03-04T10:00:00Z"}},
    {"id": "20"},
    {"id": "30"},
    {"id": "40"}
  ],
  "routings": [{
    "id": "standard",
    "default": true,
    "nodes": [
      {"operation": "10", "successors": [{"to": "20", "auto_finish": "successor-run-start"}, {"to": "30"}]},
      {"operation": "20", "successors": [{"to": "40"}]},
      {"operation": "30", "successors": [{"to": "40"}]},
      {"operation": "40"}
    ]
  }]
}`

// testDocWithout30 drops operation 30 from the routing; 10 loses a
// successor while scheduled.
const testDocWithout30 = `{
  "order": "MO-1",
  "operations": [
    {"id": "10", "timing": {"start": "2024-03-04T08:00:00Z", "end": "2024-03-04T10:00:00Z"}},
    {"id": "20"},
    {"id": "30"},
    {"id": "40"}
  ],
  "routings": [{
    "id": "standard",
    "default": true,
    "nodes": [
      {"operation": "10", "successors": [{"to": "20"}]},
      {"operation": "20", "successors": [{"to": "40"}]},
      {"operation": "40"}
    ]
  }]
}`

type testEnv struct {
	dir      string
	storeDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvPath, filepath.Join(dir, "config.toml"))
	return testEnv{dir: dir, storeDir: filepath.Join(dir, "store")}
}

func (e testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func (e testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append([]string{"--store", "file", "--store-path", e.storeDir}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func (e testEnv) snapshots(t *testing.T) int {
	t.Helper()
	fs, err := store.NewFileStore(e.storeDir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	n, err := fs.Entries()
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	return n
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	var got []string
	for _, cmd := range root.Commands() {
		got = append(got, cmd.Name())
	}
	slices.Sort(got)
	want := []string{"cascade", "completion", "convert", "diff", "import", "levels", "render", "serve", "store", "watch"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCommand(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "MO-1.json", testDoc)

	if err := env.run(t, "import", "--dry-run", path); err != nil {
		t.Fatalf("import --dry-run error: %v", err)
	}
	if n := env.snapshots(t); n != 0 {
		t.Errorf("snapshots after dry run = %d, want 0", n)
	}

	if err := env.run(t, "import", path); err != nil {
		t.Fatalf("import error: %v", err)
	}
	if n := env.snapshots(t); n != 1 {
		t.Errorf("snapshots = %d, want 1", n)
	}

	// A second import of the same document keeps the stored routing.
	if err := env.run(t, "import", path); err != nil {
		t.Fatalf("re-import error: %v", err)
	}
}

func TestImportCommand_InvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "bad.json", `{"order": "MO-1", "operations": [{"id": "10"}], "routings": [{"id": "r", "nodes": [{"operation": "99"}]}]}`)

	err := env.run(t, "import", path)
	if !errors.Is(err, errors.ErrCodeUnknownOperation) {
		t.Errorf("import error = %v, want %s", err, errors.ErrCodeUnknownOperation)
	}
}

func TestLevelsCommand(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "MO-1.json", testDoc)

	if err := env.run(t, "levels", path); err != nil {
		t.Errorf("levels error: %v", err)
	}
	if err := env.run(t, "levels", "--schedulable", "--routing", "standard", path); err != nil {
		t.Errorf("levels --schedulable error: %v", err)
	}

	err := env.run(t, "levels", "--routing", "missing", path)
	if !errors.Is(err, errors.ErrCodeRoutingNotFound) {
		t.Errorf("levels --routing missing error = %v, want %s", err, errors.ErrCodeRoutingNotFound)
	}

	err = env.run(t, "levels", "--stored", path)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("levels --stored before import error = %v, want %s", err, errors.ErrCodeNotFound)
	}
}

func TestConvertCommand(t *testing.T) {
	env := newTestEnv(t)
	in := env.write(t, "MO-1.json", testDoc)
	out := filepath.Join(env.dir, "MO-1.yaml")

	if err := env.run(t, "convert", in, out); err != nil {
		t.Fatalf("convert error: %v", err)
	}

	doc, err := docio.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	o, err := doc.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	ops, err := o.Routings().Default().LevelOrderedOperations(false)
	if err != nil {
		t.Fatalf("LevelOrderedOperations() error: %v", err)
	}
	var got []string
	for _, op := range ops {
		got = append(got, op.ExternalID())
	}
	if diff := cmp.Diff([]string{"10", "20", "30", "40"}, got); diff != "" {
		t.Errorf("level order mismatch (-want +got):\n%s", diff)
	}
}

func TestCascadeCommand(t *testing.T) {
	env := newTestEnv(t)
	in := env.write(t, "MO-1.json", testDoc)
	out := filepath.Join(env.dir, "MO-1.out.json")

	if err := env.run(t, "cascade", in, "20=run-started", "-o", out); err != nil {
		t.Fatalf("cascade error: %v", err)
	}

	doc, err := docio.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	got := map[string]routing.ProductionState{}
	for _, op := range doc.Operations {
		got[op.ID] = op.State
	}
	want := map[string]routing.ProductionState{
		"10": routing.Finished,
		"20": routing.RunStarted,
		"30": routing.Unstarted,
		"40": routing.Unstarted,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestCascadeCommand_BadReport(t *testing.T) {
	env := newTestEnv(t)
	in := env.write(t, "MO-1.json", testDoc)

	tests := []struct {
		name string
		arg  string
		code errors.Code
	}{
		{"missing separator", "20", errors.ErrCodeInvalidInput},
		{"unknown state", "20=idle", errors.ErrCodeInvalidInput},
		{"unknown operation", "99=finished", errors.ErrCodeUnknownOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.run(t, "cascade", in, tt.arg)
			if !errors.Is(err, tt.code) {
				t.Errorf("cascade %s error = %v, want %s", tt.arg, err, tt.code)
			}
		})
	}
}

func TestDiffCommand(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.write(t, "v1.json", testDoc)
	v2 := env.write(t, "v2.json", testDocWithout30)

	if err := env.run(t, "diff", v1, v2); err != nil {
		t.Errorf("diff error: %v", err)
	}
	if err := env.run(t, "diff", v1); err == nil {
		t.Error("diff with one file and no --stored succeeded")
	}
	if err := env.run(t, "diff", "--stored", v2); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("diff --stored before import error = %v, want %s", err, errors.ErrCodeNotFound)
	}

	if err := env.run(t, "import", v1); err != nil {
		t.Fatalf("import error: %v", err)
	}
	if err := env.run(t, "diff", "--stored", v2); err != nil {
		t.Errorf("diff --stored error: %v", err)
	}
	if n := env.snapshots(t); n != 1 {
		t.Errorf("snapshots after diff --stored = %d, want 1", n)
	}
}

func TestPreviewStored_DroppedOperation(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.write(t, "v1.json", testDoc)
	if err := env.run(t, "import", v1); err != nil {
		t.Fatalf("import error: %v", err)
	}

	// 30 is gone from the order; the scheduled 10 loses a successor.
	v2 := env.write(t, "v2.json", strings.Replace(testDocWithout30, `{"id": "30"},`, "", 1))
	c := New(io.Discard, LogInfo)
	c.storePath = env.storeDir
	c.backend = "file"
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	res, err := c.previewStored(context.Background(), v2)
	if err != nil {
		t.Fatalf("previewStored() error: %v", err)
	}
	if got := res.Reconcile.Outcomes[0].Action; got != routing.ActionReplaced {
		t.Errorf("action = %v, want %v", got, routing.ActionReplaced)
	}
	if !res.Reconcile.ScheduleInvalidated {
		t.Error("ScheduleInvalidated = false, want true")
	}
}

func TestPreviewReconcile(t *testing.T) {
	old := testOrder(t)
	doc, err := docio.Read(strings.NewReader(testDocWithout30), docio.JSON)
	if err != nil {
		t.Fatal(err)
	}
	next, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}

	res := previewReconcile(old, next)

	if len(res.Outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(res.Outcomes))
	}
	if got := res.Outcomes[0].Action; got != routing.ActionReplaced {
		t.Errorf("action = %v, want %v", got, routing.ActionReplaced)
	}
	if !res.ScheduleInvalidated {
		t.Error("ScheduleInvalidated = false, want true")
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	in := env.write(t, "MO-1.json", testDoc)
	out := filepath.Join(env.dir, "MO-1.dot")

	if err := env.run(t, "render", in, "-o", out, "--detailed"); err != nil {
		t.Fatalf("render error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("rendered DOT is empty")
	}

	err = env.run(t, "render", in, "-o", filepath.Join(env.dir, "MO-1.pdf"))
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("render .pdf error = %v, want %s", err, errors.ErrCodeInvalidFormat)
	}
}

func TestStoreCommands(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "MO-1.json", testDoc)
	if err := env.run(t, "import", path); err != nil {
		t.Fatalf("import error: %v", err)
	}

	if err := env.run(t, "store", "info"); err != nil {
		t.Errorf("store info error: %v", err)
	}
	if err := env.run(t, "store", "delete", "MO-1"); err != nil {
		t.Errorf("store delete error: %v", err)
	}
	if n := env.snapshots(t); n != 0 {
		t.Errorf("snapshots after delete = %d, want 0", n)
	}

	if err := env.run(t, "import", path); err != nil {
		t.Fatalf("import error: %v", err)
	}
	if err := env.run(t, "store", "clear"); err != nil {
		t.Errorf("store clear error: %v", err)
	}
	if n := env.snapshots(t); n != 0 {
		t.Errorf("snapshots after clear = %d, want 0", n)
	}
}

func TestParseStateReport(t *testing.T) {
	got, err := parseStateReport("OP20=Finished")
	if err != nil {
		t.Fatalf("parseStateReport() error: %v", err)
	}
	want := stateReport{operation: "OP20", state: routing.Finished}
	if got != want {
		t.Errorf("parseStateReport() = %+v, want %+v", got, want)
	}
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"orders/MO-1.json", true},
		{"MO-1.yaml", true},
		{"MO-1.yml", true},
		{"MO-1.toml", true},
		{"MO-1.json.swp", false},
		{"README", false},
	}
	for _, tt := range tests {
		if got := isDocument(tt.path); got != tt.want {
			t.Errorf("isDocument(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	doc, err := docio.Read(strings.NewReader(testDoc), docio.JSON)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	o, err := doc.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return o
}

package output

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xformctl/xformctl/internal/diag"
	"github.com/xformctl/xformctl/internal/uri"
)

func mustFile(t *testing.T, path string) uri.Location {
	t.Helper()
	loc, err := uri.File(path)
	if err != nil {
		t.Fatalf("file location %s: %v", path, err)
	}
	return loc
}

func newTestTransaction(t *testing.T, primary string, base string, sink diag.Sink) *Transaction {
	t.Helper()
	cfg := TransactionConfig{Base: mustFile(t, base), Sink: sink}
	if primary != "" {
		loc := mustFile(t, primary)
		cfg.Primary = &loc
	}
	return NewTransaction(cfg)
}

func stage(t *testing.T, tx *Transaction, identifier, content string) {
	t.Helper()
	w, err := tx.Resolve(identifier, WriterConfig{MediaType: "application/xml"})
	if err != nil {
		t.Fatalf("resolve %s: %v", identifier, err)
	}
	if w == nil {
		t.Fatalf("resolve %s: unexpected rejection", identifier)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write %s: %v", identifier, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer %s: %v", identifier, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCommitFreshDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.xml")

	tx := newTestTransaction(t, dest, dest, diag.Discard)
	defer tx.Close()

	stage(t, tx, "out.xml", "<doc/>")
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got := readFile(t, dest); got != "<doc/>" {
		t.Fatalf("destination content: %q", got)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Fatalf("expected only the destination, got %v", names)
	}
}

func TestAbortRestoresPreExistingDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.xml")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	tx := newTestTransaction(t, dest, dest, diag.Discard)
	stage(t, tx, "out.xml", "new")
	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := readFile(t, dest); got != "old" {
		t.Fatalf("destination changed on abort: %q", got)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Fatalf("leftover files after abort: %v", names)
	}
}

func TestMultiOutputCommitOrderIndependence(t *testing.T) {
	for _, order := range [][2]string{{"a.xml", "b.xml"}, {"b.xml", "a.xml"}} {
		dir := t.TempDir()
		base := filepath.Join(dir, "a.xml")

		tx := newTestTransaction(t, base, base, diag.Discard)
		stage(t, tx, order[0], "content-"+order[0])
		stage(t, tx, order[1], "content-"+order[1])
		if err := tx.Complete(); err != nil {
			t.Fatalf("complete (%v): %v", order, err)
		}
		tx.Close()

		for _, name := range order {
			if got := readFile(t, filepath.Join(dir, name)); got != "content-"+name {
				t.Fatalf("order %v: %s content %q", order, name, got)
			}
		}
	}
}

func TestStagingNameCollisionRetries(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.xml")

	colliding := ".stage-collide.tmp"
	if err := os.WriteFile(filepath.Join(dir, colliding), []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed colliding file: %v", err)
	}

	tx := newTestTransaction(t, dest, dest, diag.Discard)
	defer tx.Close()
	calls := 0
	tx.stagingName = func() string {
		calls++
		if calls == 1 {
			return colliding
		}
		return defaultStagingName()
	}

	stage(t, tx, "out.xml", "fresh")
	if calls < 2 {
		t.Fatalf("expected a retry after collision, got %d name requests", calls)
	}
	if got := readFile(t, filepath.Join(dir, colliding)); got != "keep" {
		t.Fatalf("colliding file overwritten: %q", got)
	}
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := readFile(t, dest); got != "fresh" {
		t.Fatalf("destination content: %q", got)
	}
}

func TestStagingExhaustionSurfacesSentinel(t *testing.T) {
	dir := t.TempDir()
	stuck := ".stage-stuck.tmp"
	if err := os.WriteFile(filepath.Join(dir, stuck), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := createStaging(dir, func() string { return stuck }); !errors.Is(err, ErrStagingExhausted) {
		t.Fatalf("expected ErrStagingExhausted, got %v", err)
	}
}

func TestResolveDefaultWithoutPrimaryDiscards(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out.xml")
	rec := diag.NewRecorder()

	tx := newTestTransaction(t, "", base, rec)
	defer tx.Close()

	w, err := tx.Resolve("out.xml", WriterConfig{})
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if w != nil {
		t.Fatalf("expected discarded primary output")
	}
	if len(rec.Reports()) != 1 {
		t.Fatalf("expected one diagnostic, got %v", rec.Reports())
	}

	stage(t, tx, "report.xml", "report")
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "report.xml")); got != "report" {
		t.Fatalf("secondary content: %q", got)
	}
}

func TestNonFileSchemeRejected(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out.xml")
	rec := diag.NewRecorder()

	tx := newTestTransaction(t, base, base, rec)
	defer tx.Close()

	w, err := tx.Resolve("http://example.com/out.xml", WriterConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w != nil {
		t.Fatalf("expected rejection for non-file scheme")
	}
	if !rec.HasErrors() {
		t.Fatalf("expected an error diagnostic, got %v", rec.Reports())
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("staging files created for rejected resolution: %v", names)
	}
}

func TestUnknownEncodingFailsResolutionWithoutStaging(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out.xml")

	tx := newTestTransaction(t, base, base, diag.Discard)
	defer tx.Close()

	if _, err := tx.Resolve("out.xml", WriterConfig{Encoding: "ebcdic"}); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("staging files created for failed resolution: %v", names)
	}
}

func TestEndToEndCommit(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "out.xml")
	if err := os.WriteFile(primary, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed primary: %v", err)
	}

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	defer tx.Close()

	stage(t, tx, "out.xml", "new")
	stage(t, tx, "report.xml", "report")
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got := readFile(t, primary); got != "new" {
		t.Fatalf("primary content: %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "report.xml")); got != "report" {
		t.Fatalf("secondary content: %q", got)
	}
	outputs := tx.Outputs()
	if len(outputs) != 2 {
		t.Fatalf("expected two descriptors, got %+v", outputs)
	}
	if outputs[0].Path != primary || outputs[0].Encoding != "utf-8" {
		t.Fatalf("unexpected primary descriptor: %+v", outputs[0])
	}
	if names := dirEntries(t, dir); len(names) != 2 {
		t.Fatalf("leftover files after commit: %v", names)
	}
}

func TestEndToEndAbort(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "out.xml")
	if err := os.WriteFile(primary, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed primary: %v", err)
	}

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	stage(t, tx, "out.xml", "new")
	stage(t, tx, "report.xml", "report")
	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := readFile(t, primary); got != "old" {
		t.Fatalf("primary changed on abort: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "report.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("secondary exists after abort: %v", err)
	}
	if names := dirEntries(t, dir); len(names) != 1 {
		t.Fatalf("leftover files after abort: %v", names)
	}
}

func TestCompleteFailureKeepsEarlierCommits(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "a.xml")

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	stage(t, tx, "a.xml", "alpha")
	stage(t, tx, "b.xml", "beta")

	// Blocking b's destination with a directory makes its move fail.
	if err := os.MkdirAll(filepath.Join(dir, "b.xml"), 0o755); err != nil {
		t.Fatalf("block destination: %v", err)
	}

	err := tx.Complete()
	if err == nil {
		t.Fatalf("expected commit failure for blocked destination")
	}
	if !strings.Contains(err.Error(), "b.xml") {
		t.Fatalf("error does not name the failing destination: %v", err)
	}
	if got := readFile(t, primary); got != "alpha" {
		t.Fatalf("earlier commit lost: %q", got)
	}

	// Abort after the failed finalize cleans up b's staging file only.
	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := readFile(t, primary); got != "alpha" {
		t.Fatalf("committed output undone by abort: %q", got)
	}
	names := dirEntries(t, dir)
	if len(names) != 2 {
		t.Fatalf("expected committed output and blocked directory only, got %v", names)
	}
}

func TestCloseAfterFailedCompleteCountsOnlyUncommitted(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "a.xml")

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	stage(t, tx, "a.xml", "alpha")
	stage(t, tx, "b.xml", "beta")
	stage(t, tx, "c.xml", "gamma")

	if err := os.MkdirAll(filepath.Join(dir, "b.xml"), 0o755); err != nil {
		t.Fatalf("block destination: %v", err)
	}

	if err := tx.Complete(); err == nil {
		t.Fatalf("expected commit failure for blocked destination")
	}
	if got := len(tx.commitLog); got != 2 {
		t.Fatalf("expected only the uncommitted entries to stay pending, got %d", got)
	}

	if err := tx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := readFile(t, primary); got != "alpha" {
		t.Fatalf("committed output undone by abort: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("uncommitted output left behind: %v", err)
	}
	names := dirEntries(t, dir)
	if len(names) != 2 {
		t.Fatalf("expected committed output and blocked directory only, got %v", names)
	}
}

func TestResolveAfterCompletePanics(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "out.xml")

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	stage(t, tx, "out.xml", "x")
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on Resolve after Complete")
		}
	}()
	tx.Resolve("late.xml", WriterConfig{})
}

func TestCloseAfterCompleteIsNoOp(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "out.xml")

	tx := newTestTransaction(t, primary, primary, diag.Discard)
	stage(t, tx, "out.xml", "kept")
	if err := tx.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("close after complete: %v", err)
	}
	if got := readFile(t, primary); got != "kept" {
		t.Fatalf("close after complete disturbed the output: %q", got)
	}
}

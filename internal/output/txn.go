package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xformctl/xformctl/internal/diag"
	"github.com/xformctl/xformctl/internal/observability"
	"github.com/xformctl/xformctl/internal/uri"
)

type txState int

const (
	stateOpen txState = iota
	stateCommitted
	stateAborted
)

// TransactionConfig configures one output transaction.
type TransactionConfig struct {
	// Base resolves relative output identifiers, conventionally the location
	// associated with the run's default output.
	Base uri.Location
	// Primary is the designated destination for the run's main result.
	// Nil when the run produces only secondary outputs.
	Primary *uri.Location
	// Sink receives diagnostics. Defaults to diag.Discard.
	Sink diag.Sink
}

// Transaction owns the staged writes of one production run. Every successful
// Resolve stages one write; Complete publishes all of them and Close without
// a prior Complete undoes all of them. A transaction is finalized exactly
// once and never reused. Not safe for concurrent use.
//
// Duplicate resolutions of the same destination are not deduplicated: they
// stage independent writes whose commit actions race, last one winning.
// Avoiding that is the producer's responsibility.
type Transaction struct {
	base    uri.Location
	primary *uri.Location
	sink    diag.Sink

	commitLog []commitAction
	undoLog   []undoAction
	outputs   []Descriptor

	stagingName func() string
	state       txState
}

func NewTransaction(cfg TransactionConfig) *Transaction {
	sink := cfg.Sink
	if sink == nil {
		sink = diag.Discard
	}
	return &Transaction{
		base:        cfg.Base,
		primary:     cfg.Primary,
		sink:        sink,
		stagingName: defaultStagingName,
	}
}

// Resolve maps an output identifier to a staging writer for its destination.
// A nil writer with a nil error means the resolution was rejected without
// staging anything (unsupported scheme, or the default output of a run with
// no designated primary destination); the rejection is reported through the
// diagnostics sink and the run may continue.
func (t *Transaction) Resolve(identifier string, cfg WriterConfig) (*Writer, error) {
	t.mustBeOpen("Resolve")

	loc, err := uri.Resolve(t.base, identifier)
	if err != nil {
		return nil, err
	}
	if loc.Scheme() != uri.SchemeFile {
		t.sink.Report(diag.Error,
			fmt.Sprintf("cannot write %s: only file destinations are supported", loc), identifier)
		observability.RecordResolveRejected("scheme")
		return nil, nil
	}

	kind := "secondary"
	if t.primary != nil {
		if loc.SameFile(*t.primary) {
			kind = "primary"
		}
	} else if loc.SameFile(t.base) {
		t.sink.Report(diag.Warning, "no destination designated for the primary output; discarding", identifier)
		observability.RecordResolveRejected("discarded")
		return nil, nil
	}

	if _, err := encoderFor(cfg.Encoding); err != nil {
		return nil, err
	}

	dest := loc.Path()
	existed := false
	if _, err := os.Lstat(dest); err == nil {
		existed = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("output: inspect destination %s: %w", dest, err)
	}

	file, err := createStaging(filepath.Dir(dest), t.stagingName)
	if err != nil {
		return nil, err
	}
	staging := file.Name()

	t.undoLog = append(t.undoLog, undoAction{kind: undoDeleteStaging, staging: staging, dest: dest})
	if existed {
		t.undoLog = append(t.undoLog, undoAction{kind: undoRestoreBackup, staging: staging, dest: dest})
		t.commitLog = append(t.commitLog, commitAction{kind: commitReplaceWithBackup, staging: staging, dest: dest})
	} else {
		t.commitLog = append(t.commitLog, commitAction{kind: commitMove, staging: staging, dest: dest})
	}
	t.outputs = append(t.outputs, Descriptor{
		Path:      dest,
		MediaType: cfg.MediaType,
		Encoding:  normalizeEncoding(cfg.Encoding),
	})

	w, err := newWriter(file, cfg)
	if err != nil {
		return nil, err
	}
	observability.RecordStaged(kind)
	return w, nil
}

// Complete runs every commit action in staging order. Commit is best-effort
// across outputs: if an action fails, earlier outputs stay committed and the
// error surfaces to the caller; the staging phase alone is rollback-protected.
func (t *Transaction) Complete() error {
	t.mustBeOpen("Complete")
	// Committed entries leave the log immediately so that an abort after a
	// partial Complete only counts and cleans the writes that never landed.
	for len(t.commitLog) > 0 {
		if err := t.commitLog[0].run(); err != nil {
			return err
		}
		t.commitLog = t.commitLog[1:]
	}
	t.undoLog = nil
	t.state = stateCommitted
	observability.RecordCommitted(len(t.outputs))
	return nil
}

// Outputs lists the produced result documents. Meaningful after Complete.
func (t *Transaction) Outputs() []Descriptor {
	out := make([]Descriptor, len(t.outputs))
	copy(out, t.outputs)
	return out
}

// Close aborts the transaction if Complete never succeeded, running every
// undo action best-effort: a failed undo is reported to the diagnostics sink
// and does not stop the remaining cleanup. Close after a successful Complete
// is a no-op, so it can sit in a defer on every exit path.
func (t *Transaction) Close() error {
	if t.state != stateOpen {
		return nil
	}
	for _, a := range t.undoLog {
		if err := a.run(); err != nil {
			t.sink.Report(diag.Error, fmt.Sprintf("abort cleanup failed: %v", err), "")
		}
	}
	staged := len(t.commitLog)
	t.commitLog = nil
	t.undoLog = nil
	t.state = stateAborted
	observability.RecordAborted(staged)
	return nil
}

func (t *Transaction) mustBeOpen(op string) {
	if t.state != stateOpen {
		panic("output: " + op + " on a finalized transaction")
	}
}

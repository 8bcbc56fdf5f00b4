package task

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xformctl/xformctl/internal/diag"
	"github.com/xformctl/xformctl/internal/output"
	"github.com/xformctl/xformctl/internal/uri"
)

// Runner executes tasks against the output transaction manager.
type Runner struct {
	log zerolog.Logger
}

func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{log: log}
}

// Report summarizes one finished run.
type Report struct {
	Task        string
	RunID       string
	Outputs     []output.Descriptor
	Diagnostics []diag.Report
}

// Run renders and stages every declared output, then commits them as a unit.
// Any render or staging failure aborts the transaction: destinations that
// existed before the run are left untouched and no staging files remain.
func (r *Runner) Run(t Task) (Report, error) {
	if err := t.Validate(); err != nil {
		return Report{}, err
	}

	runID := uuid.NewString()
	log := r.log.With().Str("task", t.Name).Str("run_id", runID).Logger()
	rec := diag.NewRecorder()
	sink := diag.Multi(diag.NewLogger(log), rec)

	report := Report{Task: t.Name, RunID: runID}

	cfg := output.TransactionConfig{Sink: sink}
	if t.Primary != "" {
		primary, err := uri.File(t.path(t.Primary))
		if err != nil {
			return report, err
		}
		cfg.Primary = &primary
		cfg.Base = primary
	} else {
		base, err := uri.Dir(t.baseDir())
		if err != nil {
			return report, err
		}
		cfg.Base = base
	}

	tx := output.NewTransaction(cfg)
	defer tx.Close()

	for _, out := range t.Outputs {
		w, err := tx.Resolve(out.Identifier, output.WriterConfig{
			MediaType: out.MediaType,
			Encoding:  out.Encoding,
			Indent:    out.Indent,
		})
		if err != nil {
			report.Diagnostics = rec.Reports()
			return report, fmt.Errorf("task %q: resolve %s: %w", t.Name, out.Identifier, err)
		}
		if w == nil {
			continue
		}
		if err := render(w, out, t.baseDir()); err != nil {
			w.Close()
			report.Diagnostics = rec.Reports()
			return report, fmt.Errorf("task %q: render %s: %w", t.Name, out.Identifier, err)
		}
		if err := w.Close(); err != nil {
			report.Diagnostics = rec.Reports()
			return report, fmt.Errorf("task %q: finish %s: %w", t.Name, out.Identifier, err)
		}
		log.Debug().Str("identifier", out.Identifier).Msg("output staged")
	}

	if err := tx.Complete(); err != nil {
		report.Diagnostics = rec.Reports()
		return report, fmt.Errorf("task %q: commit outputs: %w", t.Name, err)
	}

	report.Outputs = tx.Outputs()
	report.Diagnostics = rec.Reports()
	log.Info().Int("outputs", len(report.Outputs)).Msg("task committed")
	return report, nil
}

func (t Task) baseDir() string {
	if t.BaseDir == "" {
		return "."
	}
	return t.BaseDir
}

// path anchors a declared path at the task's base directory.
func (t Task) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(t.baseDir(), p)
}

package diag

import (
	"sync"

	"github.com/rs/zerolog"
)

// Severity ranks a diagnostic report.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Report is one collected diagnostic.
type Report struct {
	Severity Severity
	Message  string
	Location string
}

// Sink receives diagnostics from the output manager and its callers.
type Sink interface {
	Report(severity Severity, message, location string)
}

// Logger forwards diagnostics to a zerolog logger.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Report(severity Severity, message, location string) {
	var ev *zerolog.Event
	switch severity {
	case Info:
		ev = l.log.Info()
	case Warning:
		ev = l.log.Warn()
	case Fatal:
		ev = l.log.Error().Bool("fatal", true)
	default:
		ev = l.log.Error()
	}
	if location != "" {
		ev = ev.Str("location", location)
	}
	ev.Msg(message)
}

// Recorder collects diagnostics for later inspection.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Report(severity Severity, message, location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Severity: severity, Message: message, Location: location})
}

// Reports returns a copy of everything collected so far.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// HasErrors reports whether any Error or Fatal diagnostic was collected.
func (r *Recorder) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.Severity >= Error {
			return true
		}
	}
	return false
}

// Multi fans reports out to every sink.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Report(severity Severity, message, location string) {
	for _, s := range m {
		s.Report(severity, message, location)
	}
}

// Discard drops every report.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Report(Severity, string, string) {}

package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/xformctl/xformctl/internal/observability"
)

var ErrUnknownEncoding = errors.New("output: unknown character encoding")

// WriterConfig carries the serialization settings for one result document.
type WriterConfig struct {
	MediaType string
	Encoding  string
	Indent    bool
}

// Descriptor identifies one produced result document.
type Descriptor struct {
	Path      string
	MediaType string
	Encoding  string
}

// Writer is the staging stream handed to the producer. The producer must
// close it before the transaction commits or aborts.
type Writer struct {
	file   *os.File
	enc    io.Writer
	flush  func() error
	config WriterConfig
	bytes  int64
	closed bool
}

func newWriter(file *os.File, cfg WriterConfig) (*Writer, error) {
	w := &Writer{file: file, enc: file, config: cfg}
	enc, err := encoderFor(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		tw := transform.NewWriter(file, enc.NewEncoder())
		w.enc = tw
		w.flush = tw.Close
	}
	return w, nil
}

// Config returns the serialization settings the writer was opened with.
func (w *Writer) Config() WriterConfig { return w.config }

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("output: write to closed writer for %s", w.file.Name())
	}
	n, err := w.enc.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Close flushes the encoder and closes the staging file. Safe to call twice.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	observability.RecordBytesWritten(w.bytes)
	var ferr error
	if w.flush != nil {
		ferr = w.flush()
	}
	if err := w.file.Close(); err != nil {
		return err
	}
	return ferr
}

// encoderFor maps an encoding name to an encoder. nil means the stream is
// passed through unencoded (utf-8).
func encoderFor(name string) (encoding.Encoding, error) {
	switch normalizeEncoding(name) {
	case "utf-8":
		return nil, nil
	case "utf-16", "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

func normalizeEncoding(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf8", "utf-8":
		return "utf-8"
	case "utf16", "utf-16":
		return "utf-16"
	default:
		return n
	}
}

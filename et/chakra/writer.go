package chakra

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/inference-sim/etgen/et"
)

// Writer writes records, each prefixed by its encoded length as a varint.
type Writer struct {
	w       *bufio.Writer
	prefix  []byte
	written int64
	records int
}

// NewWriter returns a buffered record writer. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes and writes one record.
func (w *Writer) Write(rec et.Record) error {
	body, err := Marshal(rec)
	if err != nil {
		return err
	}
	w.prefix = protowire.AppendVarint(w.prefix[:0], uint64(len(body)))
	if _, err := w.w.Write(w.prefix); err != nil {
		return err
	}
	if _, err := w.w.Write(body); err != nil {
		return err
	}
	w.written += int64(len(w.prefix) + len(body))
	w.records++
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// BytesWritten is the number of bytes accepted so far, prefixes included.
func (w *Writer) BytesWritten() int64 { return w.written }

// Records is the number of records written so far.
func (w *Writer) Records() int { return w.records }

// TracePath is the trace file of a device: base.<device>.et.
func TracePath(base string, device int) string {
	return fmt.Sprintf("%s.%d.et", base, device)
}

// FileSink is an et.Sink backed by one trace file.
type FileSink struct {
	path   string
	file   *os.File
	w      *Writer
	closed bool
}

// OpenFileSink creates (or truncates) the trace file of a device, creating
// the parent directory if needed.
func OpenFileSink(base string, device int) (*FileSink, error) {
	path := TracePath(base, device)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating trace directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	return &FileSink{path: path, file: file, w: NewWriter(file)}, nil
}

// Opener returns an et.SinkOpener writing base.<device>.et files.
func Opener(base string) et.SinkOpener {
	return func(device int) (et.Sink, error) {
		return OpenFileSink(base, device)
	}
}

// Path is the file the sink writes to.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(rec et.Record) error {
	if s.closed {
		return fmt.Errorf("write to closed trace %s", s.path)
	}
	return s.w.Write(rec)
}

// Close flushes and closes the file. Calling it again is a no-op.
func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := multierr.Append(s.w.Flush(), s.file.Close())
	if err != nil {
		return fmt.Errorf("closing trace %s: %w", s.path, err)
	}
	logrus.Infof("wrote %s: %d records, %s", s.path, s.w.Records(), humanize.Bytes(uint64(s.w.BytesWritten())))
	return nil
}

package codec

import (
	"bufio"
	"io"
	"iter"

	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

// maxLineSize bounds a single record line; wide feature vectors with long
// descriptions easily exceed bufio's 64KiB default.
const maxLineSize = 16 << 20

// Reader is a forward-only, single-pass record reader over a line source.
// It stops at the first malformed line.
type Reader struct {
	scanner *bufio.Scanner
	source  string
	line    int
	err     error
}

// NewReader creates a Reader. source is only used to annotate errors.
func NewReader(r io.Reader, source string) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner, source: source}
}

// Read returns the next record, or io.EOF once the source is exhausted.
// Blank and comment-only lines are skipped. After the first error every
// subsequent call returns the same error.
func (r *Reader) Read() (model.Record, error) {
	if r.err != nil {
		return model.Record{}, r.err
	}
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if IsSkippable(text) {
			continue
		}
		rec, err := Parse(text)
		if err != nil {
			if fe, ok := err.(*errors.FormatError); ok {
				err = fe.At(r.source, r.line)
			}
			r.err = err
			return model.Record{}, err
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
		return model.Record{}, err
	}
	r.err = io.EOF
	return model.Record{}, io.EOF
}

// Line returns the number of physical lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// All returns the remaining records as a sequence. Iteration ends after
// the last record, or after yielding the first error.
func (r *Reader) All() iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		for {
			rec, err := r.Read()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll parses every record from r.
func ReadAll(r io.Reader, source string) ([]model.Record, error) {
	reader := NewReader(r, source)
	var records []model.Record
	for rec, err := range reader.All() {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Writer serializes records to an underlying writer through a buffer.
// Callers must Flush before closing the destination.
type Writer struct {
	w     *bufio.Writer
	buf   []byte
	count int
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record line.
func (w *Writer) Write(r model.Record) error {
	w.buf = AppendRecord(w.buf[:0], r)
	if _, err := w.w.Write(w.buf); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteAll writes records in order.
func (w *Writer) WriteAll(records []model.Record) error {
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

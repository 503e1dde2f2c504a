package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrNoHeader is returned for input without a header line.
var ErrNoHeader = errors.New("table has no header line")

// DecodeError reports a malformed line.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Row is one data line keyed by the header's column names.
type Row struct {
	header *Header
	values []string
	// Number is the 1-based data row number, the header not counted.
	Number int
	// Line is the 1-based line in the source text.
	Line int
}

// Get returns the value of column name and whether the column exists.
func (r Row) Get(name string) (string, bool) {
	if r.header == nil {
		return "", false
	}
	i, ok := r.header.index[name]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Map returns a copy of the row as a column name to value map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	if r.header == nil {
		return m
	}
	for i, name := range r.header.names {
		if _, seen := m[name]; seen || i >= len(r.values) {
			continue
		}
		m[name] = r.values[i]
	}
	return m
}

// Values returns the row values in header order.
func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// Header is the column list of a table. The first of duplicate names wins.
type Header struct {
	names []string
	index map[string]int
}

func newHeader(names []string) *Header {
	h := &Header{names: names, index: make(map[string]int, len(names))}
	for i, name := range names {
		if _, ok := h.index[name]; !ok {
			h.index[name] = i
		}
	}
	return h
}

// Names returns the column names in file order.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Has reports whether the header contains name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Decoder reads rows from a delimited table one at a time.
// Every line must have as many fields as the header.
// A Decoder is consumed once and stops at the first error.
type Decoder struct {
	reader *csv.Reader
	header *Header
	count  int
	err    error
}

// NewDecoder reads the header line from r.
func NewDecoder(r io.Reader, delim rune) (*Decoder, error) {
	reader := csv.NewReader(newBOMSkipper(r))
	reader.Comma = delim

	names, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, &DecodeError{Line: parseErrLine(err), Err: err}
	}

	return &Decoder{reader: reader, header: newHeader(names)}, nil
}

// Header returns the table header.
func (d *Decoder) Header() *Header { return d.header }

// Next returns the next row, or io.EOF after the last one.
func (d *Decoder) Next() (Row, error) {
	if d.err != nil {
		return Row{}, d.err
	}

	values, err := d.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.err = io.EOF
		} else {
			d.err = &DecodeError{Line: parseErrLine(err), Err: err}
		}
		return Row{}, d.err
	}

	d.count++
	line, _ := d.reader.FieldPos(0)

	return Row{header: d.header, values: values, Number: d.count, Line: line}, nil
}

// All yields the remaining rows. Iteration stops after the first error,
// which is yielded with a zero Row. io.EOF is not yielded.
func (d *Decoder) All() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

func parseErrLine(err error) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Line
	}
	return 0
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newBOMSkipper drops a leading UTF-8 byte order mark.
func newBOMSkipper(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

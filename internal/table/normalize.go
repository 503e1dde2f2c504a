// Package table reads delimited text tables and rewrites their field separator.
package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// NormalizeString replaces every from rune in s with to.
//
// The replacement runs over the whole content in a single pass and does not
// know about quoting: a from rune inside a quoted field is replaced as well.
// Use Transcode when fields may contain either delimiter.
func NormalizeString(s string, from, to rune) string {
	return strings.ReplaceAll(s, string(from), string(to))
}

// NormalizeFile rewrites the file at path, replacing every from rune with to,
// and writes the result back to the same path. A failed write is not rolled back.
func NormalizeFile(path string, from, to rune) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(NormalizeString(string(data), from, to)), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// ContextCheckInterval is how often, in records, Transcode checks for cancellation.
const ContextCheckInterval = 100

// Transcode re-encodes a from-delimited table as a to-delimited one.
// Quoted fields are honored on input and fields that contain to,
// a quote or a line break are quoted on output.
// It stops with the context error once ctx is done.
func Transcode(ctx context.Context, r io.Reader, w io.Writer, from, to rune) error {
	if from == to {
		_, err := io.Copy(w, r)
		return err
	}

	reader := csv.NewReader(newBOMSkipper(r))
	reader.Comma = from
	reader.FieldsPerRecord = -1

	writer := csv.NewWriter(w)
	writer.Comma = to

	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &DecodeError{Line: parseErrLine(err), Err: err}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// TranscodeFile applies Transcode to the file at path in place.
// The result is written to a sibling temporary file and renamed over path.
func TranscodeFile(ctx context.Context, path string, from, to rune) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Transcode(ctx, src, tmp, from, to); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	_ = src.Close()

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

// Package spreadsheet exports the first sheet of a workbook as a delimited text table.
package spreadsheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ContextCheckInterval is how often, in rows, the export checks for cancellation.
const ContextCheckInterval = 100

var (
	// ErrUnsupportedFormat is returned for inputs that are neither workbooks nor delimited text.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrNoSheet is returned for workbooks without any sheet.
	ErrNoSheet = errors.New("workbook has no sheets")
	// ErrCorrupt is returned when the workbook cannot be opened or read.
	ErrCorrupt = errors.New("workbook cannot be read")
)

// IsWorkbook reports whether path names an OOXML workbook.
func IsWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// IsDelimited reports whether path names a delimited text table.
func IsDelimited(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return true
	}
	return false
}

// ToDelimited writes the table in src to dst separated by delim and
// returns the number of data rows written.
//
// Workbooks are read from their first sheet with raw, unformatted cell
// values; rows are padded or cut to the header width and blank rows dropped.
// Delimited inputs are copied unchanged and are expected to use delim already.
func ToDelimited(ctx context.Context, src, dst string, delim rune) (int, error) {
	switch {
	case IsWorkbook(src):
		return exportWorkbook(ctx, src, dst, delim)
	case IsDelimited(src):
		return copyDelimited(ctx, src, dst)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(src))
	}
}

func exportWorkbook(ctx context.Context, src, dst string, delim rune) (rows int, err error) {
	book, err := excelize.OpenFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() {
		if closeErr := book.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", src).Msg("Failed to close workbook")
		}
	}()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return 0, ErrNoSheet
	}
	sheet := sheets[0]

	iter, err := book.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("%w: sheet %q: %v", ErrCorrupt, sheet, err)
	}
	defer func() { _ = iter.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	writer := csv.NewWriter(out)
	writer.Comma = delim

	width := -1
	for i := 0; iter.Next(); i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
		}

		cells, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return rows, fmt.Errorf("%w: sheet %q row %d: %v", ErrCorrupt, sheet, i+1, err)
		}

		if width < 0 {
			// header
			if blank(cells) {
				continue
			}
			width = len(cells)
		} else {
			if blank(cells) {
				continue
			}
			if len(cells) > width && !blank(cells[width:]) {
				log.Debug().
					Str("sheet", sheet).
					Int("row", i+1).
					Strs("dropped", cells[width:]).
					Msg("Cells beyond header ignored")
			}
			cells = fit(cells, width)
			rows++
		}

		if err := writer.Write(cells); err != nil {
			return rows, err
		}
	}
	if err := iter.Error(); err != nil {
		return rows, fmt.Errorf("%w: sheet %q: %v", ErrCorrupt, sheet, err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}

	log.Debug().
		Str("sheet", sheet).
		Int("columns", max(width, 0)).
		Int("rows", rows).
		Msg("Workbook exported")

	return rows, nil
}

// fit pads cells to width and cuts any cells beyond it.
func fit(cells []string, width int) []string {
	if len(cells) > width {
		return cells[:width]
	}
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// copyDelimited copies src to dst; the row count is not known without decoding, so -1 is returned.
func copyDelimited(ctx context.Context, src, dst string) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return 0, err
	}

	return -1, nil
}

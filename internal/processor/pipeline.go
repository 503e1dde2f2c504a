package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/woozymasta/geosites/internal/geo"
	"github.com/woozymasta/geosites/internal/spreadsheet"
	"github.com/woozymasta/geosites/internal/table"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContextCheckInterval is how often, in rows, the row loop checks for expiry.
const ContextCheckInterval = 100

// Options configures a Pipeline.
type Options struct {
	// WorkDir receives the intermediate table and the output artifact.
	WorkDir string
	// SourceDelimiter separates fields in exported and uploaded tables.
	SourceDelimiter rune
	// TargetDelimiter is the separator the table is normalized to before decoding.
	TargetDelimiter rune
	// QuoteAware re-encodes the table honoring quoted fields instead of
	// replacing every source delimiter in the raw text.
	QuoteAware bool
	// SkipInvalidRows drops rows with missing or bad values instead of failing.
	SkipInvalidRows bool
	// KeepIntermediate leaves the normalized table in WorkDir.
	KeepIntermediate bool
	// Timeout bounds one conversion; zero disables it.
	Timeout time.Duration
	// Indent is the JSON indentation of the output artifact.
	Indent      string
	Columns     Columns
	Reprojector *geo.Reprojector
}

// DefaultOptions mirrors the site register export: semicolon separated input,
// comma separated normalized table, UTM zone 33N coordinates.
func DefaultOptions() Options {
	return Options{
		WorkDir:         "output",
		SourceDelimiter: ';',
		TargetDelimiter: ',',
		QuoteAware:      true,
		Timeout:         30 * time.Second,
		Indent:          "  ",
		Columns:         DefaultColumns(),
	}
}

// Request is one conversion input.
type Request struct {
	// ID keys the artifact names. A new UUID is assigned when empty.
	ID string
	// InputPath is the uploaded workbook or table. It is never deleted.
	InputPath string
}

// Result describes a successful conversion.
type Result struct {
	ID          string        `json:"id"`
	OutputPath  string        `json:"output_path"`
	Features    int           `json:"features"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
	Transitions []Transition  `json:"transitions"`
}

// Pipeline converts site registers into GeoJSON artifacts.
// It keeps no per-conversion state and may serve concurrent requests.
type Pipeline struct {
	opts    Options
	builder *Builder
	now     func() time.Time
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.WorkDir == "" {
		return nil, errors.New("work dir is required")
	}
	if opts.SourceDelimiter == 0 || opts.TargetDelimiter == 0 {
		return nil, errors.New("source and target delimiters are required")
	}
	for _, d := range []rune{opts.SourceDelimiter, opts.TargetDelimiter} {
		if d == '"' || d == '\r' || d == '\n' {
			return nil, fmt.Errorf("invalid delimiter %q", d)
		}
	}

	return &Pipeline{
		opts:    opts,
		builder: NewBuilder(opts.Columns, opts.Reprojector),
		now:     time.Now,
	}, nil
}

// Options returns the pipeline configuration.
func (p *Pipeline) Options() Options { return p.opts }

// Convert runs one conversion. On failure it returns an *Error and no result;
// the output artifact is only ever present complete.
func (p *Pipeline) Convert(ctx context.Context, req Request) (*Result, error) {
	start := p.now()

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, &Error{Kind: KindInputMissing, Err: fmt.Errorf("invalid conversion id %q", id)}
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	m := newMachine(id, p.now)
	paths := ArtifactPaths(p.opts.WorkDir, id)
	logger := log.With().Str("conversion_id", id).Logger()

	if !p.opts.KeepIntermediate {
		defer func() {
			if err := os.Remove(paths.Intermediate); err != nil && !os.IsNotExist(err) {
				logger.Debug().Err(err).Str("path", paths.Intermediate).Msg("Failed to remove intermediate table")
			}
		}()
	}

	fail := func(err error) (*Result, error) {
		var ce *Error
		if !errors.As(err, &ce) {
			ce = &Error{Kind: KindIOFailure, Err: err}
		}
		ce.State = m.state
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			ce.Kind = KindTimeout
		}
		m.to(StateFailed)

		logger.Error().
			Err(ce.Err).
			Str("kind", string(ce.Kind)).
			Stringer("stage", ce.State).
			Int("row", ce.Row).
			Str("column", ce.Column).
			Dur("duration", p.now().Sub(start)).
			Msg("Conversion failed")

		return nil, ce
	}

	// Received
	if req.InputPath == "" {
		return fail(&Error{Kind: KindInputMissing, Err: errors.New("no input file")})
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return fail(err)
	}
	if err := os.MkdirAll(p.opts.WorkDir, 0755); err != nil {
		return fail(err)
	}

	logger.Info().
		Str("input", req.InputPath).
		Str("work_dir", p.opts.WorkDir).
		Msg("Conversion started")

	m.to(StateDecoding)
	err := runStage(ctx, func(ctx context.Context) error {
		_, err := spreadsheet.ToDelimited(ctx, req.InputPath, paths.Intermediate, p.opts.SourceDelimiter)
		return err
	})
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) ||
			errors.Is(err, spreadsheet.ErrCorrupt) ||
			errors.Is(err, spreadsheet.ErrNoSheet) {
			err = &Error{Kind: KindDecodeFailure, Err: err}
		}
		return fail(err)
	}

	m.to(StateNormalizing)
	err = runStage(ctx, func(ctx context.Context) error {
		if p.opts.QuoteAware {
			return table.TranscodeFile(ctx, paths.Intermediate, p.opts.SourceDelimiter, p.opts.TargetDelimiter)
		}
		return table.NormalizeFile(paths.Intermediate, p.opts.SourceDelimiter, p.opts.TargetDelimiter)
	})
	if err != nil {
		return fail(classifyTableError(err))
	}

	m.to(StateTabulating)
	f, err := os.Open(paths.Intermediate)
	if err != nil {
		return fail(err)
	}
	defer func() { _ = f.Close() }()

	var dec *table.Decoder
	err = runStage(ctx, func(context.Context) error {
		var err error
		if dec, err = table.NewDecoder(f, p.opts.TargetDelimiter); err != nil {
			return classifyTableError(err)
		}
		return p.builder.CheckHeader(dec.Header())
	})
	if err != nil {
		return fail(err)
	}

	m.to(StateReprojecting)
	var fc geo.GeoJSONFeatureCollection
	var skipped int
	err = runStage(ctx, func(ctx context.Context) error {
		var err error
		fc, skipped, err = p.collect(ctx, dec, logger)
		return err
	})
	if err != nil {
		return fail(err)
	}

	m.to(StateSerialized)
	err = runStage(ctx, func(context.Context) error {
		return saveGeoJSON(paths.Output, fc, p.opts.Indent)
	})
	if err != nil {
		return fail(err)
	}
	m.to(StateSucceeded)

	res := &Result{
		ID:          id,
		OutputPath:  paths.Output,
		Features:    len(fc.Features),
		Skipped:     skipped,
		Duration:    p.now().Sub(start),
		Transitions: m.history(),
	}

	logger.Info().
		Str("output", res.OutputPath).
		Int("features", res.Features).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("Conversion succeeded")

	return res, nil
}

// collect builds one feature per row, failing on the first bad row
// unless SkipInvalidRows is set. Decode errors always fail.
func (p *Pipeline) collect(ctx context.Context, dec *table.Decoder, logger zerolog.Logger) (geo.GeoJSONFeatureCollection, int, error) {
	fc := geo.NewFeatureCollection(0)
	skipped := 0

	for {
		row, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return fc, skipped, nil
		}
		if err != nil {
			return geo.GeoJSONFeatureCollection{}, skipped, classifyTableError(err)
		}

		if row.Number%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return geo.GeoJSONFeatureCollection{}, skipped, err
			}
		}

		feature, err := p.builder.Build(row)
		if err != nil {
			if p.opts.SkipInvalidRows && KindOf(err).rowError() {
				skipped++
				logger.Warn().Err(err).Int("row", row.Number).Int("line", row.Line).Msg("Row skipped")
				continue
			}
			return geo.GeoJSONFeatureCollection{}, skipped, err
		}

		fc.Features = append(fc.Features, feature)
	}
}

func classifyTableError(err error) error {
	var de *table.DecodeError
	if errors.As(err, &de) || errors.Is(err, table.ErrNoHeader) {
		return &Error{Kind: KindDecodeFailure, Err: err}
	}
	return err
}

// runStage runs fn unless ctx is already done. A failure after ctx expired
// is reported as the context error. fn is expected to return promptly once
// ctx is done, so no stage outlives the conversion that started it.
func runStage(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

package main

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/woozymasta/geosites/internal/config"
	"github.com/woozymasta/geosites/internal/logger"
	"github.com/woozymasta/geosites/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	jsonmin "github.com/tdewolff/minify/v2/json"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Input       string `short:"i" long:"in"           description:"Input file path (.xlsx, .xlsm, .csv)" required:"true"`
	Output      string `short:"o" long:"out"          description:"Output file path. Writes to stdout if empty"`
	Format      string `short:"f" long:"format"       description:"Output format" choice:"json" choice:"yaml" default:"json"`
	ConfigFile  string `short:"c" long:"config"       env:"CONFIG_FILE" description:"Path to configuration file, built-in defaults if empty"`
	SkipInvalid bool   `short:"s" long:"skip-invalid" description:"Skip invalid rows instead of failing"`
	Minify      bool   `short:"m" long:"minify"       description:"Write JSON without whitespace"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.SkipInvalid {
		cfg.SkipInvalidRows = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := run(ctx, opts, cfg)
	if err != nil {
		msg := processor.MapError(err)
		log.Error().Err(err).Str("code", msg.Code).Msg(msg.Message)
		stop()
		os.Exit(1)
	}

	log.Info().
		Str("out", cmp.Or(opts.Output, "stdout")).
		Str("format", opts.Format).
		Int("features", res.Features).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("Successfully converted sites")
}

// run converts opts.Input inside a temporary work directory that is removed
// before it returns, and writes the rendered result to opts.Output or stdout.
func run(ctx context.Context, opts Options, cfg *config.Config) (*processor.Result, error) {
	workDir, err := os.MkdirTemp("", "geosites-*")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()
	cfg.WorkDir = workDir

	pipelineOpts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	pipeline, err := processor.New(pipelineOpts)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	res, err := pipeline.Convert(ctx, processor.Request{InputPath: opts.Input})
	if err != nil {
		return nil, err
	}

	data, err := render(res.OutputPath, opts.Format, opts.Minify)
	if err != nil {
		return nil, fmt.Errorf("render output: %w", err)
	}

	if opts.Output == "" {
		_, err = os.Stdout.Write(data)
		return res, err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return nil, fmt.Errorf("write output file: %w", err)
	}

	return res, nil
}

// render turns the artifact at path into the requested output format.
func render(path, format string, compact bool) ([]byte, error) {
	if format == "yaml" {
		fc, err := processor.LoadGeoJSON(path)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(fc)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !compact {
		return data, nil
	}

	m := minify.New()
	m.AddFunc("application/json", jsonmin.Minify)

	var buf bytes.Buffer
	if err := m.Minify("application/json", &buf, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("minify: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

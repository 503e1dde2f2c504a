package server

import (
	"net/http"
	"os"

	"github.com/woozymasta/geosites/internal/config"
	"github.com/woozymasta/geosites/internal/processor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	jsonmin "github.com/tdewolff/minify/v2/json"
)

const mimeJSON = "application/json"

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Pipeline *processor.Pipeline
	minifier *minify.M
}

// NewServerContext builds the conversion pipeline from cfg and prepares
// the upload and work directories.
func NewServerContext(cfg *config.Config) (*ServerContext, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}

	pipeline, err := processor.New(opts)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.UploadDir, cfg.WorkDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	m := minify.New()
	m.AddFunc(mimeJSON, jsonmin.Minify)

	log.Info().
		Str("upload_dir", cfg.UploadDir).
		Str("work_dir", cfg.WorkDir).
		Str("source_crs", opts.Reprojector.Source().String()).
		Str("target_crs", opts.Reprojector.Target().String()).
		Bool("skip_invalid_rows", opts.SkipInvalidRows).
		Dur("timeout", opts.Timeout).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:   cfg,
		Pipeline: pipeline,
		minifier: m,
	}, nil
}

// Router returns the HTTP handler with all routes and middleware.
func (s *ServerContext) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/healthz", s.HandleHealth)
	r.Post("/convert", s.HandleConvert)

	return r
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/geosites/internal/config"
	"github.com/woozymasta/geosites/internal/logger"
	"github.com/woozymasta/geosites/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"       env:"CONFIG_FILE"       description:"Path to configuration file, built-in defaults if empty"`
	Addr        string        `short:"a" long:"addr"         env:"LISTEN_ADDRESS"    description:"Address to listen on"                  default:"0.0.0.0"`
	Port        int           `short:"p" long:"port"         env:"LISTEN_PORT"       description:"Port to listen on"                     default:"3000"`
	WorkDir     string        `short:"w" long:"work-dir"     env:"WORK_DIR"          description:"Directory for conversion artifacts"`
	UploadDir   string        `short:"u" long:"upload-dir"   env:"UPLOAD_DIR"        description:"Directory for uploaded files"`
	Timeout     time.Duration `short:"t" long:"timeout"      env:"CONVERT_TIMEOUT"   description:"Timeout for a single conversion"`
	SkipInvalid bool          `short:"s" long:"skip-invalid" env:"SKIP_INVALID_ROWS" description:"Skip invalid rows instead of failing the conversion"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.WorkDir != "" {
		cfg.WorkDir = opts.WorkDir
	}
	if opts.UploadDir != "" {
		cfg.UploadDir = opts.UploadDir
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.SkipInvalid {
		cfg.SkipInvalidRows = true
	}

	srvCtx, err := server.NewServerContext(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Int64("max_upload_size", cfg.MaxUploadSize).
		Msg("Web server started")

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

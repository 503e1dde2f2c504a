// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geosites/internal/processor"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// multipart parts above this size are spooled to disk
const formMemory = 8 << 20

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleConvert accepts a spreadsheet upload in the "file" form field and
// responds with the converted feature collection.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxUploadSize)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:  "File too large.",
				Code:   "CONV008",
				Action: "Split the file into smaller parts",
			})
			return
		}
		s.respondError(w, r, &processor.Error{Kind: processor.KindInputMissing, Err: err})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, &processor.Error{Kind: processor.KindInputMissing, Err: err})
		return
	}
	defer func() { _ = file.Close() }()

	id := uuid.NewString()
	input, err := s.storeUpload(id, header.Filename, file)
	if err != nil {
		s.respondError(w, r, &processor.Error{Kind: processor.KindIOFailure, Err: err})
		return
	}

	log.Debug().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("conversion_id", id).
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Msg("Upload stored")

	res, err := s.Pipeline.Convert(r.Context(), processor.Request{ID: id, InputPath: input})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.serveArtifact(w, r, res)
}

// storeUpload writes the upload under a name derived from the conversion id,
// keeping only the extension of the client supplied name.
func (s *ServerContext) storeUpload(id, filename string, src multipart.File) (path string, err error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	path = filepath.Join(s.Config.UploadDir, id+ext)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return path, nil
}

// serveArtifact streams the output artifact without indentation.
func (s *ServerContext) serveArtifact(w http.ResponseWriter, r *http.Request, res *processor.Result) {
	f, err := os.Open(res.OutputPath)
	if err != nil {
		s.respondError(w, r, &processor.Error{Kind: processor.KindIOFailure, State: processor.StateSucceeded, Err: err})
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", mimeJSON)
	w.Header().Set("X-Conversion-Id", res.ID)
	w.WriteHeader(http.StatusOK)

	// Ignoring error as we cannot handle client disconnects
	if err := s.minifier.Minify(mimeJSON, w, f); err != nil {
		log.Warn().Err(err).Str("conversion_id", res.ID).Msg("Failed to write response")
	}
}

// respondError logs the technical error and writes the client-safe message.
func (s *ServerContext) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := processor.MapError(err)
	status := StatusFor(processor.KindOf(err))

	log.Error().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("code", msg.Code).
		Msg("Request failed")

	writeJSON(w, status, ErrorResponse{Error: msg.Message, Code: msg.Code, Action: msg.Action})
}

// StatusFor maps a failure kind to an HTTP status.
func StatusFor(kind processor.Kind) int {
	switch kind {
	case processor.KindInputMissing:
		return http.StatusBadRequest
	case processor.KindDecodeFailure,
		processor.KindFieldMissing,
		processor.KindFieldUnparsable,
		processor.KindReprojectionFailure:
		return http.StatusUnprocessableEntity
	case processor.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", mimeJSON)
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

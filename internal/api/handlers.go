package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkravets/reelid/internal/identify"
	"github.com/dkravets/reelid/internal/media"
	"github.com/dkravets/reelid/internal/metadata"
	"github.com/dkravets/reelid/internal/pipeline"
	"github.com/dkravets/reelid/internal/storage"
)

const uploadFolder = "film_uploads"

// Identifier is the pipeline surface the handlers call.
type Identifier interface {
	Identify(ctx context.Context, refs []media.Reference) (*metadata.FilmRecord, error)
	IdentifyFromURL(ctx context.Context, pageURL string) (*metadata.FilmRecord, error)
}

type App struct {
	Pipeline      Identifier
	Storage       storage.Storage
	UploadsDir    string
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type uploaded struct {
	handle string
	kind   string
}

// AnalyzeHandler accepts a non-empty multipart set of media files, stores
// them, and runs the identification pipeline over their URLs. Uploads are
// reclaimed in the background whatever the outcome.
func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "bad_input", "invalid multipart upload")
		return
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["files"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "bad_input", "at least one media file is required")
		return
	}

	refs := make([]media.Reference, 0, len(files))
	uploads := make([]uploaded, 0, len(files))
	defer func() { app.cleanupUploads(uploads) }()

	for _, header := range files {
		data, err := readUpload(header)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_input", "failed to read uploaded file")
			return
		}

		kind := uploadKind(header)
		up, err := app.Storage.Upload(r.Context(), data, uploadFolder, kind)
		if err != nil {
			log.Printf("[API] storing upload: %v", err)
			writeError(w, http.StatusInternalServerError, "storage_failure", "failed to store upload")
			return
		}

		refs = append(refs, media.Reference(up.URL))
		uploads = append(uploads, uploaded{handle: up.Handle, kind: kind})
	}

	record, err := app.Pipeline.Identify(r.Context(), refs)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// AnalyzeURLHandler accepts a social-media page URL and runs the same
// pipeline over the media the extractor recovers from it.
func (app *App) AnalyzeURLHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_input", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "bad_input", "url is required")
		return
	}

	record, err := app.Pipeline.IdentifyFromURL(r.Context(), req.URL)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func uploadKind(header *multipart.FileHeader) string {
	if strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
		return "video"
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".mp4", ".webm":
		return "video"
	}
	return "image"
}

// cleanupUploads reclaims stored media in a detached goroutine. Failures are
// logged and never reach the caller-facing pipeline.
func (app *App) cleanupUploads(uploads []uploaded) {
	if len(uploads) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, up := range uploads {
			if err := app.Storage.Delete(ctx, up.handle, up.kind); err != nil {
				log.Printf("[CLEANUP] deleting upload %s: %v", up.handle, err)
			}
		}
	}()
}

// writePipelineError maps each failure kind to its own status and code so
// callers can tell bad input, unknown subjects, and upstream outages apart.
func writePipelineError(w http.ResponseWriter, err error) {
	var decodeErr *media.DecodeError
	var fetchErr *media.FetchError
	var modelErr *identify.ModelCallError
	var upstreamErr *metadata.UpstreamError

	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "bad_input", err.Error())
	case errors.As(err, &decodeErr):
		writeError(w, http.StatusBadRequest, "bad_media", err.Error())
	case errors.Is(err, pipeline.ErrUnknownSubject):
		writeError(w, http.StatusNotFound, "unknown_subject", err.Error())
	case errors.Is(err, metadata.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, pipeline.ErrNoExtractor):
		writeError(w, http.StatusNotImplemented, "extractor_unconfigured", err.Error())
	case errors.As(err, &fetchErr):
		writeError(w, http.StatusBadGateway, "media_unreachable", err.Error())
	case errors.As(err, &modelErr):
		writeError(w, http.StatusBadGateway, "model_unavailable", err.Error())
	case errors.As(err, &upstreamErr):
		writeError(w, http.StatusBadGateway, "metadata_unavailable", err.Error())
	default:
		log.Printf("[API] unhandled pipeline error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encoding response: %v", err)
	}
}

package asset

import (
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"

	_ "github.com/ftrvxmtrx/tga"
)

const maxUploadSize = 10 << 20 // 10MB

// accepted lists the decoded formats an upload may be in.
var accepted = map[string]bool{
	"png":  true,
	"jpeg": true,
	"tga":  true,
	"webp": true,
}

// UploadResponse is returned from the upload endpoint. URL is the source ref
// to pass to image.add.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler creates an asset handler backed by store.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !accepted[format] {
		http.Error(w, "only PNG, JPEG, TGA and WebP images are supported", http.StatusBadRequest)
		return
	}

	id, ref, err := h.store.Save(img)
	if err != nil {
		h.logger.Error("save asset", "error", err)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	bounds := img.Bounds()
	resp := UploadResponse{
		ID:     id,
		URL:    ref,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "webp",
		Name:   header.Filename,
	}
	h.logger.Info("asset uploaded", "id", id, "format", format, "width", resp.Width, "height", resp.Height)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.store.Dir()))
	return http.StripPrefix(URLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

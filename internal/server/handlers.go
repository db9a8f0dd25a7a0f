// Package server serves the raw datasets and the generated heightmap over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/hmapgen/internal/geo"
	"github.com/woozymasta/hmapgen/internal/processor"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	etagCap            = 64
	defaultPreviewSize = 128
	minPreviewSize     = 16
	maxPreviewSize     = 1024
)

// Routes returns the request multiplexer of the server.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/api/regions", s.HandleRegions)
	mux.HandleFunc("/api/neighborhoods", s.HandleRegions)
	mux.HandleFunc("/api/parcels", s.HandleParcels)
	mux.HandleFunc("/api/lots", s.HandleParcels)
	mux.HandleFunc("/api/parcels/", s.HandleParcel)
	mux.HandleFunc("/api/lot/", s.HandleParcel)
	mux.HandleFunc("/api/heightmap", s.HandleRegenerate)
	mux.HandleFunc("/heightmap", s.HandleHeightmap)
	mux.HandleFunc("/heightmap/meta", s.HandleHeightmapMeta)
	mux.HandleFunc("/heightmap/preview", s.HandleHeightmapPreview)
	mux.HandleFunc("/ws", s.HandleWebSocket)
	return mux
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRegions serves the regions dataset.
func (s *ServerContext) HandleRegions(w http.ResponseWriter, r *http.Request) {
	s.serveDataset(w, r, "regions", s.Config().Datasets.Regions)
}

// HandleParcels serves the parcels dataset.
func (s *ServerContext) HandleParcels(w http.ResponseWriter, r *http.Request) {
	s.serveDataset(w, r, "parcels", s.Config().Datasets.Parcels)
}

// HandleParcel serves a single parcel by its id property.
func (s *ServerContext) HandleParcel(w http.ResponseWriter, r *http.Request) {
	// Path: /api/parcels/{id} or /api/lot/{id}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] == "" {
		writeError(w, http.StatusNotFound, "Lot not found")
		return
	}
	id := parts[2]

	data, err := os.ReadFile(s.Config().Datasets.Parcels)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read parcels dataset")
		writeError(w, http.StatusInternalServerError, "Failed to load lot")
		return
	}

	feature, ok, err := geo.FindRawFeature(data, id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse parcels dataset")
		writeError(w, http.StatusInternalServerError, "Failed to load lot")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Lot not found")
		return
	}

	out, err := s.minifier.Bytes("application/json", feature)
	if err != nil {
		out = feature
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(out)
}

// HandleHeightmap serves the generated raster.
func (s *ServerContext) HandleHeightmap(w http.ResponseWriter, r *http.Request) {
	out := s.Config().Output
	if !s.serveFile(w, r, out.Path, processor.ContentType(out.Format)) {
		writeError(w, http.StatusNotFound, "Heightmap not generated yet")
	}
}

// HandleHeightmapMeta serves the metadata sidecar of the raster.
func (s *ServerContext) HandleHeightmapMeta(w http.ResponseWriter, r *http.Request) {
	path := processor.MetadataPath(s.Config().Output.Path)
	if !s.serveFile(w, r, path, "application/json") {
		writeError(w, http.StatusNotFound, "Heightmap not generated yet")
	}
}

// HandleHeightmapPreview serves a downscaled PNG of the raster.
// The size query parameter bounds the longer side.
func (s *ServerContext) HandleHeightmapPreview(w http.ResponseWriter, r *http.Request) {
	size := defaultPreviewSize
	if q := r.URL.Query().Get("size"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < minPreviewSize || n > maxPreviewSize {
			writeError(w, http.StatusBadRequest, "size must be an integer between 16 and 1024")
			return
		}
		size = n
	}

	f, err := os.Open(s.Config().Output.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Heightmap not generated yet")
		return
	}
	src, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode heightmap")
		writeError(w, http.StatusInternalServerError, "Failed to decode heightmap")
		return
	}

	dst := image.NewNRGBA(previewRect(src.Bounds(), size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, dst); err != nil {
		log.Debug().Err(err).Msg("Failed to write preview")
	}
}

// HandleRegenerate reloads the configuration and regenerates the heightmap.
// Progress is broadcast to websocket subscribers.
func (s *ServerContext) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Use POST to regenerate the heightmap")
		return
	}

	if !s.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "Generation already in progress")
		return
	}
	defer s.running.Store(false)

	cfg, err := s.Reload()
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload configuration")
		writeError(w, http.StatusInternalServerError, "Failed to reload configuration: "+err.Error())
		return
	}

	runID := uuid.NewString()
	s.hub.Broadcast(ProgressEvent{Run: runID, State: StateStarted, Total: cfg.Output.Height})

	res, err := processor.ProcessHeightmap(cfg, processor.RunOptions{
		RunID: runID,
		Progress: func(done, total int) {
			s.hub.Broadcast(ProgressEvent{Run: runID, State: StateRunning, Done: done, Total: total})
		},
	})
	if err != nil {
		log.Error().Err(err).Str("run", runID).Msg("Heightmap generation failed")
		s.hub.Broadcast(ProgressEvent{Run: runID, State: StateFailed, Error: err.Error(), Total: cfg.Output.Height})

		status := http.StatusInternalServerError
		if errors.Is(err, geo.ErrMissingInputFile) || errors.Is(err, geo.ErrInvalidDataset) ||
			errors.Is(err, geo.ErrDegenerateBoundingBox) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	s.hub.Broadcast(ProgressEvent{Run: runID, State: StateDone, Done: cfg.Output.Height, Total: cfg.Output.Height})
	writeJSON(w, http.StatusOK, res.Metadata)
}

// serveDataset serves a GeoJSON file minified, with a file based ETag.
func (s *ServerContext) serveDataset(w http.ResponseWriter, r *http.Request, name, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		log.Error().Err(err).Str("dataset", name).Str("path", path).Msg("Failed to load dataset")
		writeError(w, http.StatusInternalServerError, "Failed to load "+name)
		return
	}

	etag := fileETag(info)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("dataset", name).Msg("Failed to read dataset")
		writeError(w, http.StatusInternalServerError, "Failed to load "+name)
		return
	}

	out, err := s.minifier.Bytes("application/json", data)
	if err != nil {
		log.Error().Err(err).Str("dataset", name).Msg("Dataset is not valid JSON")
		writeError(w, http.StatusInternalServerError, "Failed to load "+name)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(out)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to stat file")
		}
		return false
	}
	if info.IsDir() {
		return false
	}

	etag := fileETag(info)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func fileETag(info fs.FileInfo) string {
	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	return string(buf)
}

// previewRect fits src into a size x size square keeping its aspect ratio.
func previewRect(src image.Rectangle, size int) image.Rectangle {
	w, h := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 {
		return image.Rect(0, 0, size, size)
	}
	if w >= h {
		return image.Rect(0, 0, size, max(1, h*size/w))
	}
	return image.Rect(0, 0, max(1, w*size/h), size)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/services"
	"tilepacks.dev/internal/submission"
)

// maxTilesBody caps the body of a tile validation request
const maxTilesBody = 1 << 20

// APIHandler serves the JSON API
type APIHandler struct {
	tilePacks     *services.TilePackService
	tags          *services.TagService
	uploads       *services.UploadService
	maxImageBytes int64
	pageSize      int
	log           *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(tps *services.TilePackService, ts *services.TagService, us *services.UploadService, maxImageBytes int64, pageSize int, log *zap.Logger) *APIHandler {
	return &APIHandler{
		tilePacks:     tps,
		tags:          ts,
		uploads:       us,
		maxImageBytes: maxImageBytes,
		pageSize:      pageSize,
		log:           log,
	}
}

// apiTilePack is a tile pack with its resolved image URL
type apiTilePack struct {
	models.TilePackWithTags
	ImageURL string `json:"image_url"`
}

// ListTags handles GET /api/tags
func (h *APIHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.log.Error("listing tags", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Tags are unavailable")
		return
	}
	respondJSON(w, http.StatusOK, models.TagList{Tags: tags})
}

// ListTilePacks handles GET /api/tilepacks
func (h *APIHandler) ListTilePacks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order := backend.OrderNewest
	if q.Get("order") == string(backend.OrderPopular) {
		order = backend.OrderPopular
	}

	packs, err := h.tilePacks.List(r.Context(), backend.Query{
		Search:  strings.TrimSpace(q.Get("q")),
		TagSlug: q.Get("tag"),
		Order:   order,
		Limit:   clamp(parseIntParam(r, "limit", h.pageSize), 1, maxListLimit),
	})
	if err != nil {
		h.log.Error("listing tilepacks", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Tile packs are unavailable")
		return
	}

	out := make([]apiTilePack, 0, len(packs))
	for _, p := range packs {
		out = append(out, h.withImage(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetTilePack handles GET /api/tilepacks/{publicID}
func (h *APIHandler) GetTilePack(w http.ResponseWriter, r *http.Request) {
	pack, err := h.tilePacks.GetByID(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			respondError(w, status, "Tile pack not found")
			return
		}
		h.log.Error("getting tilepack", zap.Error(err))
		respondError(w, status, "Tile packs are unavailable")
		return
	}
	respondJSON(w, http.StatusOK, h.withImage(*pack))
}

// CreateTilePack handles POST /api/tilepacks
func (h *APIHandler) CreateTilePack(w http.ResponseWriter, r *http.Request) {
	in, err := readUploadForm(w, r, h.maxImageBytes)
	if errors.Is(err, errBodyTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, imageTooLarge(h.maxImageBytes))
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	err = h.uploads.Submit(r.Context(), in.form)

	var (
		verr *submission.ValidationError
		terr *submission.TagResolutionError
		serr *services.UploadSinkError
	)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	case errors.As(err, &verr):
		in.applyOversize(verr, h.maxImageBytes)
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "Validation failed",
			"fields": verr.Fields,
		})
	case errors.As(err, &terr):
		respondError(w, http.StatusUnprocessableEntity, terr.Error())
	case errors.As(err, &serr):
		h.log.Error("upload sink failed", zap.Error(serr.Err))
		respondError(w, http.StatusBadGateway, "Upload failed")
	default:
		h.log.Error("upload failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Upload failed")
	}
}

// ValidateTiles handles POST /api/tiles/validate
func (h *APIHandler) ValidateTiles(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTilesBody))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "Tile data too large")
		return
	}

	tiles, err := submission.ValidateTiles(string(body))
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":  false,
			"error":  submission.TilesMessage(err),
			"detail": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"count": len(tiles),
	})
}

func (h *APIHandler) withImage(p models.TilePackWithTags) apiTilePack {
	return apiTilePack{TilePackWithTags: p, ImageURL: h.tilePacks.ImageURL(p.TilePack)}
}

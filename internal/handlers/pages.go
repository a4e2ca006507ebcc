package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/config"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/render"
	"tilepacks.dev/internal/services"
)

const maxListLimit = 100

// PageHandler serves the browsing pages
type PageHandler struct {
	tilePacks *services.TilePackService
	tags      *services.TagService
	renderer  *render.Renderer
	site      *config.SiteConfig
	log       *zap.Logger
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(tps *services.TilePackService, ts *services.TagService, renderer *render.Renderer, site *config.SiteConfig, log *zap.Logger) *PageHandler {
	return &PageHandler{tilePacks: tps, tags: ts, renderer: renderer, site: site, log: log}
}

// Home handles GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	var (
		popular []models.TilePackWithTags
		tags    []models.Tag
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		popular, err = h.tilePacks.Popular(ctx, h.site.PopularCount)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = h.tags.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.log.Error("loading home page", zap.Error(err))
		h.renderError(w, r, http.StatusBadGateway, "Tile packs are unavailable right now")
		return
	}

	h.html(w, r, http.StatusOK, render.PageHome, "", render.HomeView{
		Popular: h.cards(popular, render.Vertical),
		Tags:    tags,
	})
}

// ListTilePacks handles GET /tilepacks
func (h *PageHandler) ListTilePacks(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := clamp(parseIntParam(r, "limit", h.site.PageSize), 1, maxListLimit)

	packs, err := h.tilePacks.List(r.Context(), backend.Query{
		Search: search,
		Order:  backend.OrderNewest,
		Limit:  limit,
	})
	if err != nil {
		h.log.Error("listing tilepacks", zap.String("query", search), zap.Error(err))
		h.renderError(w, r, http.StatusBadGateway, "Tile packs are unavailable right now")
		return
	}

	heading := "Tile Packs"
	if search != "" {
		heading = "Results for \"" + search + "\""
	}
	h.html(w, r, http.StatusOK, render.PageTilePacks, heading, render.ListView{
		Heading: heading,
		Query:   search,
		Cards:   h.cards(packs, render.Horizontal),
	})
}

// TilePack handles GET /tilepacks/{publicID}/{slug}
func (h *PageHandler) TilePack(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicID")

	pack, err := h.tilePacks.GetByID(r.Context(), publicID)
	if err != nil {
		h.backendError(w, r, err, "Tile pack not found")
		return
	}

	// Redirect stale or missing slugs to the canonical path
	if chi.URLParam(r, "slug") != pack.Slug {
		http.Redirect(w, r, pack.Path(), http.StatusMovedPermanently)
		return
	}

	var tiles []json.RawMessage
	count := 0
	if err := json.Unmarshal([]byte(pack.Tiles), &tiles); err == nil {
		count = len(tiles)
	}
	pretty := pack.Tiles
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(pack.Tiles), "", "  "); err == nil {
		pretty = buf.String()
	}

	h.html(w, r, http.StatusOK, render.PageTilePack, pack.Name, render.DetailView{
		Card:      h.card(*pack, render.Horizontal),
		TileCount: count,
		TilesJSON: pretty,
	})
}

// Tiles handles GET /tilepacks/{publicID}/{slug}/tiles.json
func (h *PageHandler) Tiles(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicID")

	pack, err := h.tilePacks.Install(r.Context(), publicID)
	if pack == nil {
		h.backendError(w, r, err, "Tile pack not found")
		return
	}
	if err != nil {
		h.log.Warn("recording install", zap.String("tilepack", publicID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pack.Slug+`.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(pack.Tiles)); err != nil {
		h.log.Debug("writing tiles", zap.Error(err))
	}
}

// Tag handles GET /tags/{slug}
func (h *PageHandler) Tag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tags.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.backendError(w, r, err, "Tag not found")
		return
	}

	packs, err := h.tilePacks.List(r.Context(), backend.Query{
		TagSlug: tag.Slug,
		Order:   backend.OrderPopular,
		Limit:   clamp(parseIntParam(r, "limit", h.site.PageSize), 1, maxListLimit),
	})
	if err != nil {
		h.log.Error("listing tilepacks for tag", zap.String("tag", tag.Slug), zap.Error(err))
		h.renderError(w, r, http.StatusBadGateway, "Tile packs are unavailable right now")
		return
	}

	h.html(w, r, http.StatusOK, render.PageTag, tag.Name, render.TagView{
		Tag:   *tag,
		Cards: h.cards(packs, render.Vertical),
	})
}

func (h *PageHandler) card(pack models.TilePackWithTags, o render.Orientation) render.Card {
	return render.Card{
		Pack:        pack,
		ImageURL:    h.tilePacks.ImageURL(pack.TilePack),
		Orientation: o,
	}
}

func (h *PageHandler) cards(packs []models.TilePackWithTags, o render.Orientation) []render.Card {
	cards := make([]render.Card, 0, len(packs))
	for _, p := range packs {
		cards = append(cards, h.card(p, o))
	}
	return cards
}

// backendError renders 404 for missing records and 502 for anything else
func (h *PageHandler) backendError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, backend.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, notFound)
		return
	}
	h.log.Error("backend request failed", zap.String("path", r.URL.Path), zap.Error(err))
	h.renderError(w, r, http.StatusBadGateway, "Tile packs are unavailable right now")
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.html(w, r, status, render.PageError, http.StatusText(status), render.ErrorView{
		Status:  status,
		Message: message,
	})
}

func (h *PageHandler) html(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	renderHTML(h.renderer, h.log, w, r, status, page, title, data)
}

// renderHTML writes a page, falling back to plain text if the template fails
func renderHTML(renderer *render.Renderer, log *zap.Logger, w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	if err := renderer.HTML(w, status, page, title, data); err != nil {
		log.Error("rendering page", zap.String("page", page), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// parseIntParam parses an integer query parameter with a default value
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// clamp limits a value to a range
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

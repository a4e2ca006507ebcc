package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/render"
	"tilepacks.dev/internal/services"
	"tilepacks.dev/internal/submission"
	"tilepacks.dev/internal/tagpicker"
)

const uploadTitle = "Upload Tilepack"

// UploadHandler serves the upload form and its tag picker
type UploadHandler struct {
	uploads       *services.UploadService
	tags          *services.TagService
	renderer      *render.Renderer
	maxImageBytes int64
	log           *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(us *services.UploadService, ts *services.TagService, renderer *render.Renderer, maxImageBytes int64, log *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: us, tags: ts, renderer: renderer, maxImageBytes: maxImageBytes, log: log}
}

// Form handles GET /tilepacks/upload
func (h *UploadHandler) Form(w http.ResponseWriter, r *http.Request) {
	catalog, ok := h.catalog(r)
	if !ok {
		h.render(w, r, http.StatusOK, render.UploadView{CatalogEmpty: true})
		return
	}
	h.render(w, r, http.StatusOK, h.view(tagpicker.New(catalog, submission.MaxTags), submission.Form{}))
}

// Submit handles POST /tilepacks/upload
func (h *UploadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readForm(w, r)
	if !ok {
		return
	}

	err := h.uploads.Submit(r.Context(), in.form)
	if err == nil {
		h.log.Info("tilepack uploaded", zap.String("name", in.form.Name))
		http.Redirect(w, r, "/tilepacks", http.StatusSeeOther)
		return
	}

	status, view := h.failure(r, in, err)
	h.render(w, r, status, view)
}

// EditTags handles POST /tilepacks/upload/tags. The form posts back to
// itself with an op of select:<name> or deselect:<index> and the page is
// rendered again with the typed values kept.
func (h *UploadHandler) EditTags(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readForm(w, r)
	if !ok {
		return
	}
	catalog, ok := h.catalog(r)
	if !ok {
		h.render(w, r, http.StatusOK, render.UploadView{CatalogEmpty: true})
		return
	}

	picker := tagpicker.Restore(catalog, in.form.Tags, in.pool, submission.MaxTags)
	next, err := applyOp(picker, r.PostFormValue("op"))
	if err != nil {
		h.log.Debug("tag picker op ignored", zap.String("op", r.PostFormValue("op")), zap.Error(err))
		next = picker
	}
	h.render(w, r, http.StatusOK, h.view(next, in.form))
}

// applyOp applies one picker operation encoded as select:<name> or deselect:<index>
func applyOp(p tagpicker.Picker, op string) (tagpicker.Picker, error) {
	kind, arg, ok := strings.Cut(op, ":")
	if !ok {
		return p, errors.New("malformed op")
	}
	switch kind {
	case "select":
		return p.Select(arg)
	case "deselect":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return p, tagpicker.ErrIndex
		}
		return p.Deselect(i)
	default:
		return p, errors.New("unknown op " + kind)
	}
}

// failure maps an upload error to a status and the form to show again
func (h *UploadHandler) failure(r *http.Request, in *uploadForm, err error) (int, render.UploadView) {
	catalog, ok := h.catalog(r)
	if !ok {
		return http.StatusBadGateway, render.UploadView{CatalogEmpty: true}
	}
	view := h.view(tagpicker.Restore(catalog, in.form.Tags, in.pool, submission.MaxTags), in.form)

	var (
		verr *submission.ValidationError
		terr *submission.TagResolutionError
		serr *services.UploadSinkError
	)
	switch {
	case errors.As(err, &verr):
		in.applyOversize(verr, h.maxImageBytes)
		view.Errors = verr
		return http.StatusUnprocessableEntity, view
	case errors.As(err, &terr):
		view.Message = "The tag \"" + terr.Name + "\" is no longer available. Please review your tags."
		return http.StatusUnprocessableEntity, view
	case errors.As(err, &serr):
		h.log.Error("upload sink failed", zap.Error(serr.Err))
		view.Message = "Upload failed. Please try again."
		return http.StatusBadGateway, view
	default:
		h.log.Error("upload failed", zap.Error(err))
		view.Message = "Upload failed. Please try again."
		return http.StatusBadGateway, view
	}
}

func (h *UploadHandler) readForm(w http.ResponseWriter, r *http.Request) (*uploadForm, bool) {
	in, err := readUploadForm(w, r, h.maxImageBytes)
	if errors.Is(err, errBodyTooLarge) {
		h.renderError(w, r, http.StatusRequestEntityTooLarge, imageTooLarge(h.maxImageBytes))
		return nil, false
	}
	if err != nil {
		h.log.Debug("reading upload form", zap.Error(err))
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read")
		return nil, false
	}
	return in, true
}

// catalog returns the tag catalog, or false when it is unavailable or empty
func (h *UploadHandler) catalog(r *http.Request) ([]models.Tag, bool) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.log.Error("loading tag catalog", zap.Error(err))
		return nil, false
	}
	return tags, len(tags) > 0
}

func (h *UploadHandler) view(p tagpicker.Picker, form submission.Form) render.UploadView {
	return render.UploadView{
		Values: render.UploadValues{
			Name:          form.Name,
			Description:   form.Description,
			Tiles:         form.Tiles,
			HumanVerified: form.HumanVerified,
		},
		Selected:      p.Selected(),
		Available:     p.Available(),
		Remaining:     p.RemainingNames(),
		Full:          p.Full(),
		MaxTags:       submission.MaxTags,
		MaxImageBytes: h.maxImageBytes,
	}
}

func (h *UploadHandler) render(w http.ResponseWriter, r *http.Request, status int, view render.UploadView) {
	renderHTML(h.renderer, h.log, w, r, status, render.PageUpload, uploadTitle, view)
}

func (h *UploadHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderHTML(h.renderer, h.log, w, r, status, render.PageError, http.StatusText(status), render.ErrorView{
		Status:  status,
		Message: message,
	})
}

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/findingservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *findingservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *findingservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListFindings handles GET /api/findings.
//
//	@Summary	List every cached finding in discovery order
//	@Tags		findings
//	@Produce	json
//	@Success	200	{object}	FindingListResponse
//	@Security	BearerAuth
//	@Router		/findings [get]
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	items := h.svc.List(r.Context())
	writeJSON(w, http.StatusOK, FindingListResponse{
		Findings: items,
		Total:    len(items),
	})
}

// GetFinding handles GET /api/findings/{ref}.
//
//	@Summary	Look up a finding by ref
//	@Tags		findings
//	@Produce	json
//	@Param		ref	path		string	true	"Finding ref"
//	@Success	200	{object}	Finding
//	@Failure	404	{object}	errResponse
//	@Failure	409	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/findings/{ref} [get]
func (h *Handler) GetFinding(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	f, err := h.svc.Resolve(r.Context(), ref)
	if err != nil {
		writeResolveError(w, ref, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// GetFindingImage handles GET /api/findings/{ref}/image. The converted PNG
// is removed once served.
//
//	@Summary	Render a finding's capture as PNG
//	@Tags		findings
//	@Produce	png
//	@Param		ref	path	string	true	"Finding ref"
//	@Success	200
//	@Failure	404	{object}	errResponse
//	@Failure	409	{object}	errResponse
//	@Failure	422	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/findings/{ref}/image [get]
func (h *Handler) GetFindingImage(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	png, err := h.svc.Image(r.Context(), ref)
	if err != nil {
		if errors.Is(err, apperr.ErrUnreadableImage) {
			slog.Warn("convert image failed", slog.String("ref", ref), slog.String("error", err.Error()))
			writeError(w, http.StatusUnprocessableEntity, "unreadable image", ref)
			return
		}
		writeResolveError(w, ref, err)
		return
	}
	defer os.Remove(png)
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, png)
}

func writeResolveError(w http.ResponseWriter, ref string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", ref)
	case errors.Is(err, apperr.ErrAmbiguous):
		writeError(w, http.StatusConflict, "ambiguous ref", ref)
	default:
		slog.Error("resolve finding failed", slog.String("ref", ref), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error", ref)
	}
}

package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
)

type Handler struct {
	svc      *mapping.Service
	accounts middleware.Accounts
}

func NewHandler(svc *mapping.Service, accounts middleware.Accounts) *Handler {
	return &Handler{svc: svc, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type profileRequest struct {
	Name             string                `json:"name"`
	FileType         string                `json:"file_type"`
	Mapping          mapping.ColumnMapping `json:"mapping"`
	DateFormat       string                `json:"date_format"`
	DefaultAccountID *uuid.UUID            `json:"default_account_id"`
	Headers          []string              `json:"headers"`
}

type profileResponse struct {
	ID               uuid.UUID             `json:"id"`
	Name             string                `json:"name"`
	FileType         importer.FileType     `json:"file_type"`
	Mapping          mapping.ColumnMapping `json:"mapping"`
	DateFormat       string                `json:"date_format,omitempty"`
	DefaultAccountID *uuid.UUID            `json:"default_account_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        *time.Time            `json:"updated_at,omitempty"`
}

func toResponse(p *mapping.Profile) profileResponse {
	return profileResponse{
		ID:               p.ID,
		Name:             p.Name,
		FileType:         p.FileType,
		Mapping:          p.Mapping,
		DateFormat:       p.DateFormat,
		DefaultAccountID: p.DefaultAccountID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (mapping.ProfileParams, bool) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return mapping.ProfileParams{}, false
	}

	fileType, err := importer.ParseFileType(req.FileType)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return mapping.ProfileParams{}, false
	}

	if req.DefaultAccountID != nil && !middleware.OwnsAccount(w, r, h.accounts, *req.DefaultAccountID) {
		return mapping.ProfileParams{}, false
	}

	return mapping.ProfileParams{
		Name:             req.Name,
		FileType:         fileType,
		Mapping:          req.Mapping,
		DateFormat:       req.DateFormat,
		DefaultAccountID: req.DefaultAccountID,
		Headers:          req.Headers,
	}, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decode(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Create(r.Context(), middleware.OwnerID(r.Context()), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusCreated, toResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	fileType, err := importer.ParseFileType(r.URL.Query().Get("file_type"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	profiles, err := h.svc.List(r.Context(), middleware.OwnerID(r.Context()), fileType)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	resp := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		resp[i] = toResponse(p)
	}

	middleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	p, err := h.svc.Get(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	params, ok := h.decode(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Update(r.Context(), middleware.OwnerID(r.Context()), id, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mapping.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "import profile not found")
	case errors.Is(err, mapping.ErrInvalidProfile):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		middleware.Internal(w, r, err)
	}
}

package merchant

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/merchant"
)

type Handler struct {
	svc *merchant.Service
}

func NewHandler(svc *merchant.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	RawDescription string `json:"raw_description"`
	MerchantName   string `json:"merchant_name"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	rawDesc := r.URL.Query().Get("raw_description")
	if rawDesc == "" {
		middleware.WriteError(w, http.StatusBadRequest, "raw_description query parameter is required")
		return
	}

	name, err := h.svc.Suggest(r.Context(), middleware.OwnerID(r.Context()), rawDesc)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, suggestResponse{RawDescription: rawDesc, MerchantName: name})
}

type learnRequest struct {
	RawPattern   string `json:"raw_pattern"`
	MerchantName string `json:"merchant_name"`
}

type aliasResponse struct {
	ID           uuid.UUID `json:"id"`
	RawPattern   string    `json:"raw_pattern"`
	MerchantName string    `json:"merchant_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Learn(r.Context(), middleware.OwnerID(r.Context()), req.RawPattern, req.MerchantName)
	if err != nil {
		if errors.Is(err, merchant.ErrInvalidAlias) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		middleware.Internal(w, r, err)

		return
	}

	middleware.WriteJSON(w, r, http.StatusCreated, aliasResponse{
		ID:           a.ID,
		RawPattern:   a.RawPattern,
		MerchantName: a.MerchantName,
		CreatedAt:    a.CreatedAt,
	})
}

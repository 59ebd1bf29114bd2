package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/account"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/imports"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

// Linker records transactions delivered by the bank-link collaborator.
type Linker interface {
	ImportLinked(ctx context.Context, ownerID string, accountID uuid.UUID, txs []*transaction.Transaction) (*ingest.Result, error)
}

type Handler struct {
	svc    *account.Service
	linker Linker
}

func NewHandler(svc *account.Service, linker Linker) *Handler {
	return &Handler{svc: svc, linker: linker}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/linked-transactions", h.linked)
}

type accountResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Institution string    `json:"institution,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toResponse(a *account.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Institution: a.Institution, CreatedAt: a.CreatedAt}
}

type createAccountRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Create(r.Context(), middleware.OwnerID(r.Context()), req.Name, req.Institution)
	if err != nil {
		if errors.Is(err, account.ErrInvalidName) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		middleware.Internal(w, r, err)

		return
	}

	middleware.WriteJSON(w, r, http.StatusCreated, toResponse(a))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toResponse(a)
	}

	middleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.svc.Get(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "account not found")
			return
		}

		middleware.Internal(w, r, err)

		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(a))
}

type linkedTransaction struct {
	Date         string          `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchant_name"`
	Memo         string          `json:"memo"`
	CheckNumber  string          `json:"check_number"`
	ExternalID   string          `json:"external_id"`
}

type linkedRequest struct {
	Transactions []linkedTransaction `json:"transactions"`
}

// linked accepts already-normalized transactions: amounts are signed and
// dates are YYYY-MM-DD.
func (h *Handler) linked(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if !middleware.OwnsAccount(w, r, h.svc, id) {
		return
	}

	var req linkedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs := make([]*transaction.Transaction, len(req.Transactions))

	for i, lt := range req.Transactions {
		date, err := time.Parse(time.DateOnly, lt.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("transactions[%d].date must be YYYY-MM-DD", i))
			return
		}

		txs[i] = &transaction.Transaction{
			Date:         date,
			Amount:       lt.Amount,
			Description:  lt.Description,
			MerchantName: lt.MerchantName,
			Memo:         lt.Memo,
			CheckNumber:  lt.CheckNumber,
			ExternalID:   lt.ExternalID,
		}
	}

	res, err := h.linker.ImportLinked(r.Context(), middleware.OwnerID(r.Context()), id, txs)
	if err != nil {
		if res == nil {
			middleware.Internal(w, r, err)
			return
		}

		middleware.WriteJSON(w, r, http.StatusServiceUnavailable, imports.ToSessionResponse(res.Session))

		return
	}

	middleware.WriteJSON(w, r, http.StatusCreated, imports.ToSessionResponse(res.Session))
}

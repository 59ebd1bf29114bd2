package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type Handler struct {
	svc      *transaction.Service
	accounts middleware.Accounts
}

func NewHandler(svc *transaction.Service, accounts middleware.Accounts) *Handler {
	return &Handler{svc: svc, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	if !middleware.OwnsAccount(w, r, h.accounts, accountID) {
		return
	}

	filter := transaction.ListFilter{AccountID: &accountID}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, ToResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, ToResponse(tx))
}

// Amount, date and source identifiers are not editable.
type updateTransactionRequest struct {
	Description  *string `json:"description,omitempty"`
	MerchantName *string `json:"merchant_name,omitempty"`
	Category     *string `json:"category,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.svc.Update(r.Context(), tx.ID, transaction.UpdateParams{
		Description:  req.Description,
		MerchantName: req.MerchantName,
		Category:     req.Category,
		Notes:        req.Notes,
	})
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, ToResponse(tx))
}

// load fetches the transaction in the URL and checks the caller owns its account.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*transaction.Transaction, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "transaction not found")
			return nil, false
		}

		middleware.Internal(w, r, err)

		return nil, false
	}

	if !middleware.OwnsAccount(w, r, h.accounts, tx.AccountID) {
		return nil, false
	}

	return tx, true
}

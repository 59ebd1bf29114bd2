package check

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	txhttp "github.com/MrJamesThe3rd/bankfeed/internal/http/transaction"
	"github.com/MrJamesThe3rd/bankfeed/internal/reconcile"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type Handler struct {
	svc      *reconcile.Service
	accounts middleware.Accounts
}

func NewHandler(svc *reconcile.Service, accounts middleware.Accounts) *Handler {
	return &Handler{svc: svc, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/auto-match", h.autoMatch)
	r.Get("/{id}", h.get)
	r.Get("/{id}/candidates", h.candidates)
	r.Post("/{id}/match", h.match)
	r.Post("/{id}/void", h.void)
}

type checkResponse struct {
	ID                   uuid.UUID        `json:"id"`
	AccountID            uuid.UUID        `json:"account_id"`
	CheckNumber          string           `json:"check_number"`
	Payee                string           `json:"payee,omitempty"`
	Amount               decimal.Decimal  `json:"amount"`
	DateWritten          string           `json:"date_written"`
	Status               reconcile.Status `json:"status"`
	MatchedTransactionID *uuid.UUID       `json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(c *reconcile.Check) checkResponse {
	return checkResponse{
		ID:                   c.ID,
		AccountID:            c.AccountID,
		CheckNumber:          c.CheckNumber,
		Payee:                c.Payee,
		Amount:               c.Amount,
		DateWritten:          c.DateWritten.Format(time.DateOnly),
		Status:               c.Status,
		MatchedTransactionID: c.MatchedTransactionID,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func toResponseList(checks []*reconcile.Check) []checkResponse {
	resp := make([]checkResponse, len(checks))
	for i, c := range checks {
		resp[i] = toResponse(c)
	}

	return resp
}

type createCheckRequest struct {
	AccountID   uuid.UUID       `json:"account_id"`
	CheckNumber string          `json:"check_number"`
	Payee       string          `json:"payee"`
	Amount      decimal.Decimal `json:"amount"`
	DateWritten string          `json:"date_written"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	written, err := time.Parse(time.DateOnly, req.DateWritten)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date_written must be YYYY-MM-DD")
		return
	}

	if !middleware.OwnsAccount(w, r, h.accounts, req.AccountID) {
		return
	}

	c, err := h.svc.Create(r.Context(), reconcile.CreateParams{
		AccountID:   req.AccountID,
		CheckNumber: req.CheckNumber,
		Payee:       req.Payee,
		Amount:      req.Amount,
		DateWritten: written,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusCreated, toResponse(c))
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

	checks, err := h.svc.List(r.Context(), reconcile.ListFilter{
		AccountID: &accountID,
		Status:    reconcile.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponseList(checks))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(c))
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	txs, err := h.svc.Candidates(r.Context(), c.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, txhttp.ToResponseList(txs))
}

type matchRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	matched, err := h.svc.Match(r.Context(), c.ID, req.TransactionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(matched))
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	voided, err := h.svc.Void(r.Context(), c.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponse(voided))
}

type autoMatchResponse struct {
	Matched   []checkResponse `json:"matched"`
	Ambiguous int             `json:"ambiguous"`
	Failed    int             `json:"failed"`
}

func (h *Handler) autoMatch(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	if !middleware.OwnsAccount(w, r, h.accounts, accountID) {
		return
	}

	res, err := h.svc.AutoMatch(r.Context(), accountID)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, autoMatchResponse{
		Matched:   toResponseList(res.Matched),
		Ambiguous: res.Ambiguous,
		Failed:    res.Failed,
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*reconcile.Check, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}

	if !middleware.OwnsAccount(w, r, h.accounts, c.AccountID) {
		return nil, false
	}

	return c, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "check not found")
	case errors.Is(err, transaction.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, reconcile.ErrInvalidCheck):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, reconcile.ErrCheckNotPending),
		errors.Is(err, reconcile.ErrTransactionAlreadyMatched),
		errors.Is(err, reconcile.ErrAccountMismatch):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		middleware.Internal(w, r, err)
	}
}

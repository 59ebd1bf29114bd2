package subscription

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/recurring"
)

type Handler struct {
	svc      *recurring.Service
	accounts middleware.Accounts
}

func NewHandler(svc *recurring.Service, accounts middleware.Accounts) *Handler {
	return &Handler{svc: svc, accounts: accounts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/detect", h.detect)
}

type subscriptionResponse struct {
	ID                uuid.UUID           `json:"id"`
	AccountID         uuid.UUID           `json:"account_id"`
	MerchantName      string              `json:"merchant_name"`
	Amount            decimal.Decimal     `json:"amount"`
	Frequency         recurring.Frequency `json:"frequency"`
	Confidence        float64             `json:"confidence"`
	IsEssential       bool                `json:"is_essential"`
	LastDate          string              `json:"last_date"`
	TransactionCount  int                 `json:"transaction_count"`
	MonthlyEquivalent decimal.Decimal     `json:"monthly_equivalent"`
	DetectedAt        time.Time           `json:"detected_at"`
}

func toResponseList(subs []*recurring.Subscription) []subscriptionResponse {
	resp := make([]subscriptionResponse, len(subs))
	for i, s := range subs {
		resp[i] = subscriptionResponse{
			ID:                s.ID,
			AccountID:         s.AccountID,
			MerchantName:      s.MerchantName,
			Amount:            s.Amount,
			Frequency:         s.Frequency,
			Confidence:        s.Confidence,
			IsEssential:       s.IsEssential,
			LastDate:          s.LastDate.Format(time.DateOnly),
			TransactionCount:  s.TransactionCount,
			MonthlyEquivalent: s.MonthlyEquivalent,
			DetectedAt:        s.DetectedAt,
		}
	}

	return resp
}

type detectResponse struct {
	Subscriptions    []subscriptionResponse `json:"subscriptions"`
	TotalMonthlyCost decimal.Decimal        `json:"total_monthly_cost"`
	Summary          string                 `json:"summary,omitempty"`
	ClassifierUsed   bool                   `json:"classifier_used"`
	Note             string                 `json:"note,omitempty"`
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return uuid.Nil, false
	}

	return id, middleware.OwnsAccount(w, r, h.accounts, id)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	subs, err := h.svc.List(r.Context(), &id)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, toResponseList(subs))
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Detect(r.Context(), id)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, detectResponse{
		Subscriptions:    toResponseList(res.Subscriptions),
		TotalMonthlyCost: res.TotalMonthlyCost,
		Summary:          res.Summary,
		ClassifierUsed:   res.ClassifierUsed,
		Note:             res.Note,
	})
}

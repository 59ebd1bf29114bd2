package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/account"
	"github.com/MrJamesThe3rd/bankfeed/internal/logger"
)

type contextKey string

const ownerKey contextKey = "owner"

// OwnerHeader carries the authenticated owner, set by the gateway in front
// of the API.
const OwnerHeader = "X-Owner-ID"

// Owner rejects requests without an owner and stores it in the context.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" {
			WriteError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func OwnerID(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// Internal logs err and answers with a generic 500.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	WriteError(w, http.StatusInternalServerError, "internal error")
}

type Accounts interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*account.Account, error)
}

// OwnsAccount answers 404 unless the caller owns the account and reports
// whether the handler may go on.
func OwnsAccount(w http.ResponseWriter, r *http.Request, accounts Accounts, accountID uuid.UUID) bool {
	if _, err := accounts.Get(r.Context(), OwnerID(r.Context()), accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "account not found")
			return false
		}

		Internal(w, r, err)

		return false
	}

	return true
}

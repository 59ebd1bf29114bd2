package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/account"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/check"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/imports"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/merchant"
	apimw "github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/profile"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/subscription"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/transaction"
	"github.com/MrJamesThe3rd/bankfeed/internal/logger"
)

type Handlers struct {
	Accounts      *account.Handler
	Imports       *imports.Handler
	Profiles      *profile.Handler
	Transactions  *transaction.Handler
	Checks        *check.Handler
	Subscriptions *subscription.Handler
	Merchants     *merchant.Handler
}

func New(h Handlers, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(logger.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", apimw.OwnerHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.Owner)

		r.Route("/accounts", h.Accounts.Routes)
		r.Route("/imports", h.Imports.Routes)

		r.Route("/profiles", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Profiles.Routes(r)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Transactions.Routes(r)
		})

		r.Route("/checks", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Checks.Routes(r)
		})

		r.Route("/subscriptions", h.Subscriptions.Routes)
		r.Route("/merchants", h.Merchants.Routes)
	})

	return router
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/bankfeed/internal/app"
	"github.com/MrJamesThe3rd/bankfeed/internal/config"
	bankfeedHttp "github.com/MrJamesThe3rd/bankfeed/internal/http"
	accountHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/account"
	checkHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/check"
	importHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/imports"
	merchantHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/merchant"
	profileHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/profile"
	subscriptionHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/subscription"
	txHandler "github.com/MrJamesThe3rd/bankfeed/internal/http/transaction"
	"github.com/MrJamesThe3rd/bankfeed/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	router := bankfeedHttp.New(bankfeedHttp.Handlers{
		Accounts:      accountHandler.NewHandler(a.Accounts, a.Imports),
		Imports:       importHandler.NewHandler(a.Imports, a.Accounts, cfg.Import.MaxUploadSize),
		Profiles:      profileHandler.NewHandler(a.Profiles, a.Accounts),
		Transactions:  txHandler.NewHandler(a.Transactions, a.Accounts),
		Checks:        checkHandler.NewHandler(a.Checks, a.Accounts),
		Subscriptions: subscriptionHandler.NewHandler(a.Recurring, a.Accounts),
		Merchants:     merchantHandler.NewHandler(a.Merchants),
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("starting server", "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

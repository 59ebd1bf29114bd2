// Package app wires stores and services from the configuration. The API
// server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/account"
	accountStore "github.com/MrJamesThe3rd/bankfeed/internal/account/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/categorize"
	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
	"github.com/MrJamesThe3rd/bankfeed/internal/classifier/gemini"
	"github.com/MrJamesThe3rd/bankfeed/internal/config"
	"github.com/MrJamesThe3rd/bankfeed/internal/database"
	"github.com/MrJamesThe3rd/bankfeed/internal/dedupe"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	ingestStore "github.com/MrJamesThe3rd/bankfeed/internal/ingest/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
	mappingStore "github.com/MrJamesThe3rd/bankfeed/internal/mapping/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/merchant"
	merchantStore "github.com/MrJamesThe3rd/bankfeed/internal/merchant/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/normalize"
	"github.com/MrJamesThe3rd/bankfeed/internal/reconcile"
	reconcileStore "github.com/MrJamesThe3rd/bankfeed/internal/reconcile/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/recurring"
	recurringStore "github.com/MrJamesThe3rd/bankfeed/internal/recurring/store"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
	txStore "github.com/MrJamesThe3rd/bankfeed/internal/transaction/store"
)

type App struct {
	DB *sql.DB

	Accounts     *account.Service
	Profiles     *mapping.Service
	Transactions *transaction.Service
	Merchants    *merchant.Service
	Checks       *reconcile.Service
	Recurring    *recurring.Service
	Categorizer  *categorize.Categorizer
	Imports      *ingest.Orchestrator
}

// New connects to the database, applies the schema when configured and
// builds every service. Close releases the connection.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	c, err := newClassifier(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{DB: db}

	a.Accounts = account.NewService(accountStore.New(db))
	a.Profiles = mapping.NewService(mappingStore.New(db))
	a.Transactions = transaction.NewService(txStore.New(db))
	a.Merchants = merchant.NewService(merchantStore.New(db))
	a.Checks = reconcile.NewService(reconcileStore.New(db), a.Transactions, logger)
	a.Recurring = recurring.NewService(recurringStore.New(db), a.Transactions,
		recurring.NewDetector(c, cfg.Classifier.BatchSize, cfg.Classifier.Timeout, logger))
	a.Categorizer = categorize.New(c, a.Transactions, nil, cfg.Classifier.BatchSize, cfg.Classifier.Timeout, logger)

	a.Imports = ingest.NewOrchestrator(ingest.Deps{
		Sessions:     ingestStore.New(db),
		Parser:       importer.NewService(),
		Resolver:     mapping.NewResolver(c, cfg.Classifier.Timeout, logger),
		Profiles:     a.Profiles,
		Normalizer:   normalize.New(),
		Merchants:    a.Merchants,
		Transactions: a.Transactions,
		Deduper:      dedupe.New(cfg.Import.DedupeToleranceDays, cfg.Import.DedupeSimilarity),
		Hooks:        a.hooks(),
		StepTimeout:  cfg.Import.StepTimeout,
		Logger:       logger,
	})

	logger.InfoContext(ctx, "services ready", "classifier", cfg.Classifier.Provider)

	return a, nil
}

func (a *App) hooks() []ingest.Hook {
	return []ingest.Hook{
		ingest.NewHook("categorize", func(ctx context.Context, _ *ingest.Session, inserted []*transaction.Transaction) error {
			_, err := a.Categorizer.Categorize(ctx, inserted)
			return err
		}),
		ingest.AccountHook("check-auto-match", func(ctx context.Context, accountID uuid.UUID) error {
			_, err := a.Checks.AutoMatch(ctx, accountID)
			return err
		}),
		ingest.AccountHook("recurring-detect", func(ctx context.Context, accountID uuid.UUID) error {
			_, err := a.Recurring.Detect(ctx, accountID)
			return err
		}),
	}
}

func (a *App) Close() error {
	return a.DB.Close()
}

func newClassifier(ctx context.Context, cfg *config.Config) (classifier.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "gemini":
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.Classifier.APIKey, Model: cfg.Classifier.Model})
		if err != nil {
			return nil, fmt.Errorf("create classifier: %w", err)
		}

		return c, nil
	default:
		return classifier.None{}, nil
	}
}

package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bankfeed/internal/dedupe"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
	"github.com/MrJamesThe3rd/bankfeed/internal/normalize"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memSessions keeps sessions in memory with the store's terminal guard.
type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]ingest.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[uuid.UUID]ingest.Session{}}
}

func (m *memSessions) CreateSession(_ context.Context, s *ingest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = *s

	return nil
}

func (m *memSessions) UpdateSession(_ context.Context, s *ingest.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.ID]
	if !ok {
		return ingest.ErrNotFound
	}

	if stored.Status.Terminal() {
		return ingest.ErrSessionFinished
	}

	m.sessions[s.ID] = *s

	return nil
}

func (m *memSessions) GetSession(_ context.Context, ownerID string, id uuid.UUID) (*ingest.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, ingest.ErrNotFound
	}

	return &s, nil
}

func (m *memSessions) ListSessions(_ context.Context, ownerID string, _ *uuid.UUID) ([]*ingest.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*ingest.Session

	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, &s)
		}
	}

	return out, nil
}

// memTransactions is a transaction.Repository whose import transaction
// stages inserts until Commit and enforces (account, external id) uniqueness.
type memTransactions struct {
	mu       sync.Mutex
	txs      []*transaction.Transaction
	beginErr error
}

func (m *memTransactions) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.txs {
		if t.ID == id {
			return t, nil
		}
	}

	return nil, transaction.ErrNotFound
}

func (m *memTransactions) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*transaction.Transaction

	for _, t := range m.txs {
		if filter.AccountID == nil || t.AccountID == *filter.AccountID {
			out = append(out, t)
		}
	}

	return out, nil
}

func (m *memTransactions) UpdateTransaction(context.Context, *transaction.Transaction) error {
	return nil
}

func (m *memTransactions) BeginImport(_ context.Context, _ uuid.UUID) (transaction.ImportTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}

	return &memImportTx{repo: m}, nil
}

func (m *memTransactions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.txs)
}

type memImportTx struct {
	repo   *memTransactions
	staged []*transaction.Transaction
}

func (tx *memImportTx) ListExisting(_ context.Context, accountID uuid.UUID, from, to time.Time, externalIDs []string) ([]*transaction.Transaction, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()

	ids := map[string]bool{}
	for _, id := range externalIDs {
		ids[id] = true
	}

	var out []*transaction.Transaction

	for _, t := range tx.repo.txs {
		if t.AccountID != accountID {
			continue
		}

		inRange := !t.Date.Before(from) && !t.Date.After(to)
		if inRange || ids[t.ExternalID] {
			out = append(out, t)
		}
	}

	return out, nil
}

func (tx *memImportTx) InsertTransactions(_ context.Context, txs []*transaction.Transaction) ([]*transaction.Transaction, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()

	taken := map[string]bool{}
	for _, t := range tx.repo.txs {
		if t.ExternalID != "" {
			taken[t.AccountID.String()+t.ExternalID] = true
		}
	}

	var conflicts []*transaction.Transaction

	for _, t := range txs {
		key := t.AccountID.String() + t.ExternalID
		if t.ExternalID != "" && taken[key] {
			conflicts = append(conflicts, t)
			continue
		}

		taken[key] = t.ExternalID != ""
		t.ID = uuid.New()
		t.CreatedAt = time.Now()
		tx.staged = append(tx.staged, t)
	}

	return conflicts, nil
}

func (tx *memImportTx) Commit() error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()

	tx.repo.txs = append(tx.repo.txs, tx.staged...)
	tx.staged = nil

	return nil
}

func (tx *memImportTx) Rollback() error {
	tx.staged = nil
	return nil
}

type staticProfiles []*mapping.Profile

func (p staticProfiles) List(context.Context, string, importer.FileType) ([]*mapping.Profile, error) {
	return p, nil
}

type env struct {
	orch     *ingest.Orchestrator
	sessions *memSessions
	txs      *memTransactions
}

func newEnv(profiles staticProfiles, hooks ...ingest.Hook) *env {
	sessions := newMemSessions()
	txs := &memTransactions{}

	orch := ingest.NewOrchestrator(ingest.Deps{
		Sessions:     sessions,
		Parser:       importer.NewService(),
		Resolver:     mapping.NewResolver(nil, time.Second, discard),
		Profiles:     profiles,
		Normalizer:   normalize.New(),
		Transactions: transaction.NewService(txs),
		Deduper:      dedupe.New(dedupe.DefaultToleranceDays, dedupe.DefaultThreshold),
		Hooks:        hooks,
		StepTimeout:  time.Second,
		Logger:       discard,
	})

	return &env{orch: orch, sessions: sessions, txs: txs}
}

var csvMapping = mapping.ColumnMapping{
	"Date":        mapping.FieldDate,
	"Description": mapping.FieldDescription,
	"Amount":      mapping.FieldAmount,
}

func assertBalanced(t *testing.T, s *ingest.Session) {
	t.Helper()
	assert.Equal(t, s.TotalRows, s.TransactionsCreated+s.DuplicatesSkipped+s.ErrorsCount)
}

func TestImport_CSV(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	result, err := e.orch.Import(context.Background(), ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "statement.csv",
		Data:      []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
		Mapping:   csvMapping,
	})
	require.NoError(t, err)

	sess := result.Session
	assert.Equal(t, ingest.StatusCompleted, sess.Status)
	assert.Equal(t, "csv", sess.FileType)
	assert.Equal(t, mapping.Fingerprint([]string{"Date", "Description", "Amount"}), sess.HeaderFingerprint)
	assert.Equal(t, 1, sess.TransactionsCreated)
	assert.NotNil(t, sess.CompletedAt)
	assertBalanced(t, sess)

	stored, err := e.orch.Get(context.Background(), "owner", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusCompleted, stored.Status)

	require.Equal(t, 1, e.txs.count())

	tx := e.txs.txs[0]
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.True(t, decimal.RequireFromString("-15.99").Equal(tx.Amount))
	assert.Equal(t, "Netflix", tx.Description)
	assert.Equal(t, accountID, tx.AccountID)
	require.NotNil(t, tx.ImportSessionID)
	assert.Equal(t, sess.ID, *tx.ImportSessionID)
}

func TestImport_StructuredDuplicateExternalID(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	e.txs.txs = append(e.txs.txs, &transaction.Transaction{
		ID:         uuid.New(),
		AccountID:  accountID,
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("-15.99"),
		ExternalID: "F1",
		CreatedAt:  time.Now(),
	})

	ofx := `<OFX><BANKTRANLIST>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240115<TRNAMT>-15.99<FITID>F1<NAME>NETFLIX</STMTTRN>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240116<TRNAMT>-15.99<FITID>F1<NAME>NETFLIX</STMTTRN>
</BANKTRANLIST></OFX>`

	result, err := e.orch.Import(context.Background(), ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "export.ofx",
		Data:      []byte(ofx),
	})
	require.NoError(t, err)

	sess := result.Session
	assert.Equal(t, ingest.StatusCompleted, sess.Status)
	assert.Equal(t, 0, sess.TransactionsCreated)
	assert.Equal(t, 2, sess.DuplicatesSkipped)
	assert.Equal(t, mapping.SourceStructured, result.Resolution.Source)
	assertBalanced(t, sess)
	assert.Equal(t, 1, e.txs.count())
}

func TestImport_Idempotent(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	req := ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "statement.csv",
		Data: []byte("Date,Description,Amount\n" +
			"01/15/2024,Netflix,-15.99\n" +
			"01/16/2024,Coffee Shop,-4.50\n" +
			"01/31/2024,Salary,2500.00\n"),
		Mapping: csvMapping,
	}

	first, err := e.orch.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Session.TransactionsCreated)

	second, err := e.orch.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Session.TransactionsCreated)
	assert.Equal(t, 3, second.Session.DuplicatesSkipped)
	assertBalanced(t, second.Session)

	assert.Equal(t, 3, e.txs.count())
}

func TestImport_RowErrorsAreCounted(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	result, err := e.orch.Import(context.Background(), ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "statement.csv",
		Data: []byte("Date,Description,Amount\n" +
			"01/15/2024,Netflix,-15.99\n" +
			"not a date,Broken,-1.00\n" +
			"01/17/2024,Refund,abc\n" +
			"01/18/2024,Bakery,-3.20\n"),
		Mapping: csvMapping,
	})
	require.NoError(t, err)

	sess := result.Session
	assert.Equal(t, ingest.StatusCompleted, sess.Status)
	assert.Equal(t, 4, sess.TotalRows)
	assert.Equal(t, 2, sess.TransactionsCreated)
	assert.Equal(t, 2, sess.ErrorsCount)
	assertBalanced(t, sess)

	require.Len(t, result.RowErrors, 2)
	assert.Equal(t, normalize.KindInvalidDate, result.RowErrors[0].Err.Kind)
	assert.Equal(t, normalize.KindInvalidAmount, result.RowErrors[1].Err.Kind)
}

func TestImport_Failures(t *testing.T) {
	accountID := uuid.New()

	type testCase struct {
		name     string
		req      ingest.Request
		beginErr error
		check    func(t *testing.T, err error, result *ingest.Result)
	}

	tests := []testCase{
		{
			name: "EmptyFile",
			req:  ingest.Request{OwnerID: "owner", AccountID: &accountID, FileName: "a.csv", Data: []byte("\n")},
			check: func(t *testing.T, err error, _ *ingest.Result) {
				assert.True(t, importer.IsFormatError(err, importer.KindEmpty))
			},
		},
		{
			name: "NoMappingAvailable",
			req: ingest.Request{
				OwnerID: "owner", AccountID: &accountID, FileName: "a.csv",
				Data: []byte("Posted,Details,Value\n01/15/2024,Netflix,-15.99\n"),
			},
			check: func(t *testing.T, err error, result *ingest.Result) {
				var me *mapping.MappingError
				require.ErrorAs(t, err, &me)
				assert.True(t, result.Resolution.ManualRequired)
				assert.NotEmpty(t, result.Suggested)
			},
		},
		{
			name: "IncompleteRequestMapping",
			req: ingest.Request{
				OwnerID: "owner", AccountID: &accountID, FileName: "a.csv",
				Data:    []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
				Mapping: mapping.ColumnMapping{"Date": mapping.FieldDate},
			},
			check: func(t *testing.T, err error, _ *ingest.Result) {
				var me *mapping.MappingError
				require.ErrorAs(t, err, &me)
				assert.Contains(t, me.Missing, mapping.FieldAmount)
			},
		},
		{
			name: "NoAccount",
			req: ingest.Request{
				OwnerID: "owner", FileName: "a.csv",
				Data:    []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
				Mapping: csvMapping,
			},
			check: func(t *testing.T, err error, _ *ingest.Result) {
				assert.ErrorIs(t, err, ingest.ErrAccountRequired)
			},
		},
		{
			name: "StoreUnavailable",
			req: ingest.Request{
				OwnerID: "owner", AccountID: &accountID, FileName: "a.csv",
				Data:    []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
				Mapping: csvMapping,
			},
			beginErr: errors.New("connection refused"),
			check: func(t *testing.T, err error, result *ingest.Result) {
				var pe *ingest.PersistenceError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, 1, result.Session.TotalRows)
				assert.Equal(t, 0, result.Session.TransactionsCreated)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(nil)
			e.txs.beginErr = tt.beginErr

			result, err := e.orch.Import(context.Background(), tt.req)
			require.Error(t, err)
			require.NotNil(t, result)

			sess := result.Session
			assert.Equal(t, ingest.StatusFailed, sess.Status)
			assert.NotEmpty(t, sess.Error)
			assert.NotEmpty(t, sess.Hint)
			assert.NotNil(t, sess.CompletedAt)

			stored, getErr := e.orch.Get(context.Background(), "owner", sess.ID)
			require.NoError(t, getErr)
			assert.Equal(t, ingest.StatusFailed, stored.Status)

			assert.Equal(t, 0, e.txs.count())

			tt.check(t, err, result)
		})
	}
}

func TestImport_ProfileSuppliesMappingAndAccount(t *testing.T) {
	accountID := uuid.New()
	profileID := uuid.New()

	e := newEnv(staticProfiles{{
		ID:       profileID,
		OwnerID:  "owner",
		FileType: importer.FileTypeCSV,
		Mapping: mapping.ColumnMapping{
			"date":        mapping.FieldDate,
			"description": mapping.FieldDescription,
			"amount":      mapping.FieldAmount,
		},
		DateFormat:       "DD/MM/YYYY",
		DefaultAccountID: &accountID,
	}})

	result, err := e.orch.Import(context.Background(), ingest.Request{
		OwnerID:  "owner",
		FileName: "statement.csv",
		Data:     []byte("Date,Description,Amount\n15/01/2024,Netflix,-15.99\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, mapping.SourceProfile, result.Resolution.Source)
	assert.Equal(t, profileID, *result.Resolution.ProfileID)
	require.NotNil(t, result.Session.AccountID)
	assert.Equal(t, accountID, *result.Session.AccountID)
	assert.Equal(t, 1, result.Session.TransactionsCreated)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), e.txs.txs[0].Date)
}

func TestImport_Hooks(t *testing.T) {
	var calls []string

	ok := ingest.NewHook("ok", func(_ context.Context, s *ingest.Session, inserted []*transaction.Transaction) error {
		calls = append(calls, "ok")
		assert.Len(t, inserted, 1)
		return nil
	})
	failing := ingest.AccountHook("failing", func(context.Context, uuid.UUID) error {
		calls = append(calls, "failing")
		return errors.New("classifier down")
	})
	after := ingest.AccountHook("after", func(context.Context, uuid.UUID) error {
		calls = append(calls, "after")
		return nil
	})

	e := newEnv(nil, ok, failing, after)
	accountID := uuid.New()

	req := ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "statement.csv",
		Data:      []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
		Mapping:   csvMapping,
	}

	result, err := e.orch.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusCompleted, result.Session.Status)
	assert.Equal(t, []string{"ok", "failing", "after"}, calls)

	// Nothing new on the second run, so no hooks.
	_, err = e.orch.Import(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, calls, 3)
}

func TestImportLinked(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	e.txs.txs = append(e.txs.txs, &transaction.Transaction{
		ID:         uuid.New(),
		AccountID:  accountID,
		Date:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("-15.99"),
		ExternalID: "link-1",
		CreatedAt:  time.Now(),
	})

	linked := []*transaction.Transaction{
		{
			Date:        time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("-15.99"),
			Description: "NETFLIX.COM",
			ExternalID:  "link-1",
		},
		{
			Date:        time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("-4.50"),
			Description: "  Coffee   Shop ",
			ExternalID:  "link-2",
		},
	}

	result, err := e.orch.ImportLinked(context.Background(), "owner", accountID, linked)
	require.NoError(t, err)

	sess := result.Session
	assert.Equal(t, ingest.FileTypeBankLink, sess.FileType)
	assert.Equal(t, ingest.StatusCompleted, sess.Status)
	assert.Equal(t, 1, sess.TransactionsCreated)
	assert.Equal(t, 1, sess.DuplicatesSkipped)
	assertBalanced(t, sess)

	require.Equal(t, 2, e.txs.count())

	tx := e.txs.txs[1]
	assert.Equal(t, transaction.SourceBankLink, tx.Source)
	assert.Equal(t, "Coffee Shop", tx.Description)
	assert.Equal(t, "Coffee Shop", tx.MerchantName)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), tx.Date)
}

func TestImport_CreateSessionFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := ingest.NewMockSessionRepository(ctrl)
	sessions.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		Return(errors.New("connection refused"))

	orch := ingest.NewOrchestrator(ingest.Deps{Sessions: sessions, Logger: discard})

	result, err := orch.Import(context.Background(), ingest.Request{OwnerID: "owner", FileName: "a.csv", Data: []byte("x")})
	assert.Nil(t, result)

	var pe *ingest.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create session", pe.Op)
}

func TestImport_FinishedSessionIsNotRewritten(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountID := uuid.New()
	sessions := ingest.NewMockSessionRepository(ctrl)

	gomock.InOrder(
		sessions.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(nil),
		sessions.EXPECT().UpdateSession(gomock.Any(), gomock.Any()).Return(ingest.ErrSessionFinished),
		// The failure is still attempted once and its error only logged.
		sessions.EXPECT().UpdateSession(gomock.Any(), gomock.Any()).Return(ingest.ErrSessionFinished),
	)

	orch := ingest.NewOrchestrator(ingest.Deps{
		Sessions:   sessions,
		Parser:     importer.NewService(),
		Resolver:   mapping.NewResolver(nil, time.Second, discard),
		Normalizer: normalize.New(),
		Logger:     discard,
	})

	_, err := orch.Import(context.Background(), ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "a.csv",
		Data:      []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
		Mapping:   csvMapping,
	})
	assert.ErrorIs(t, err, ingest.ErrSessionFinished)
}

func TestImport_ConcurrentImportsIntoOneAccount(t *testing.T) {
	e := newEnv(nil)
	accountID := uuid.New()

	const workers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			result, err := e.orch.Import(context.Background(), ingest.Request{
				OwnerID:   "owner",
				AccountID: &accountID,
				FileName:  "statement.csv",
				Data: []byte("Date,Description,Amount\n" +
					"01/15/2024,Netflix,-15.99\n" +
					"01/16/2024,Coffee Shop,-4.50\n"),
				Mapping: csvMapping,
			})
			if !assert.NoError(t, err) {
				return
			}

			assertBalanced(t, result.Session)

			mu.Lock()
			created += result.Session.TransactionsCreated
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 2, e.txs.count())
	assert.Equal(t, 2, created)
}

// completionFails refuses the write that marks a session completed.
type completionFails struct {
	*memSessions
}

func (c completionFails) UpdateSession(ctx context.Context, s *ingest.Session) error {
	if s.Status == ingest.StatusCompleted {
		return errors.New("connection reset")
	}

	return c.memSessions.UpdateSession(ctx, s)
}

func TestImport_CompletionWriteFails(t *testing.T) {
	sessions := completionFails{newMemSessions()}
	txs := &memTransactions{}
	hookRan := false

	orch := ingest.NewOrchestrator(ingest.Deps{
		Sessions:     sessions,
		Parser:       importer.NewService(),
		Resolver:     mapping.NewResolver(nil, time.Second, discard),
		Normalizer:   normalize.New(),
		Transactions: transaction.NewService(txs),
		Deduper:      dedupe.New(dedupe.DefaultToleranceDays, dedupe.DefaultThreshold),
		Hooks: []ingest.Hook{ingest.AccountHook("never", func(context.Context, uuid.UUID) error {
			hookRan = true
			return nil
		})},
		StepTimeout: time.Second,
		Logger:      discard,
	})

	accountID := uuid.New()

	result, err := orch.Import(context.Background(), ingest.Request{
		OwnerID:   "owner",
		AccountID: &accountID,
		FileName:  "statement.csv",
		Data:      []byte("Date,Description,Amount\n01/15/2024,Netflix,-15.99\n"),
		Mapping:   csvMapping,
	})

	var pe *ingest.PersistenceError
	require.ErrorAs(t, err, &pe)

	stored, err := sessions.GetSession(context.Background(), "owner", result.Session.ID)
	require.NoError(t, err)

	assert.Equal(t, ingest.StatusFailed, stored.Status)
	assert.Contains(t, stored.Hint, "saved")
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 1, stored.TransactionsCreated)
	assertBalanced(t, stored)

	assert.Equal(t, 1, txs.count())
	assert.False(t, hookRan)
}

package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bankfeed/internal/reconcile"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func pendingCheck(accountID uuid.UUID, number, amount string) *reconcile.Check {
	return &reconcile.Check{
		ID:          uuid.New(),
		AccountID:   accountID,
		CheckNumber: number,
		Payee:       "Landlord",
		Amount:      decimal.RequireFromString(amount),
		DateWritten: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:      reconcile.StatusPending,
	}
}

func clearedTx(accountID uuid.UUID, number, amount string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: "CHECK " + number,
		CheckNumber: number,
	}
}

func TestFindCandidates(t *testing.T) {
	accountID := uuid.New()
	check := pendingCheck(accountID, "#1042", "250.00")

	exact := clearedTx(accountID, "1042", "-250.00")
	padded := clearedTx(accountID, "001042", "-250")
	wrongAmount := clearedTx(accountID, "1042", "-25.00")
	wrongNumber := clearedTx(accountID, "1043", "-250.00")
	otherAccount := clearedTx(uuid.New(), "1042", "-250.00")
	takenByOther := clearedTx(accountID, "1042", "-250.00")
	takenBySelf := clearedTx(accountID, "1042", "-250.00")

	taken := map[uuid.UUID]uuid.UUID{
		takenByOther.ID: uuid.New(),
		takenBySelf.ID:  check.ID,
	}

	got := reconcile.FindCandidates(check,
		[]*transaction.Transaction{exact, padded, wrongAmount, wrongNumber, otherAccount, takenByOther, takenBySelf},
		taken)

	assert.Equal(t, []*transaction.Transaction{exact, padded, takenBySelf}, got)

	assert.Empty(t, reconcile.FindCandidates(pendingCheck(accountID, "n/a", "250"), []*transaction.Transaction{exact}, nil))
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, "1042", reconcile.NormalizeNumber("#1042"))
	assert.Equal(t, "1042", reconcile.NormalizeNumber("CHK 001042"))
	assert.Equal(t, "0", reconcile.NormalizeNumber("000"))
	assert.Equal(t, "", reconcile.NormalizeNumber("none"))
}

func TestService_Match(t *testing.T) {
	accountID := uuid.New()

	type testCase struct {
		name      string
		check     *reconcile.Check
		tx        *transaction.Transaction
		setupMock func(mtx *reconcile.MockMatchTx, c *reconcile.Check, tx *transaction.Transaction)
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "ClearsPendingCheck",
			check: pendingCheck(accountID, "1042", "250.00"),
			tx:    clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(mtx *reconcile.MockMatchTx, c *reconcile.Check, tx *transaction.Transaction) {
				mtx.EXPECT().MatchedBy(gomock.Any(), tx.ID).Return(nil, nil)
				mtx.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *reconcile.Check) error {
					assert.Equal(t, reconcile.StatusCleared, got.Status)
					assert.Equal(t, tx.ID, *got.MatchedTransactionID)
					return nil
				})
				mtx.EXPECT().Commit().Return(nil)
			},
		},
		{
			name: "SamePairIsNoOp",
			check: func() *reconcile.Check {
				c := pendingCheck(accountID, "1042", "250.00")
				c.Status = reconcile.StatusCleared
				return c
			}(),
			tx: clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(_ *reconcile.MockMatchTx, c *reconcile.Check, tx *transaction.Transaction) {
				c.MatchedTransactionID = new(tx.ID)
			},
		},
		{
			name: "ClearedToAnotherTransaction",
			check: func() *reconcile.Check {
				c := pendingCheck(accountID, "1042", "250.00")
				c.Status = reconcile.StatusCleared
				c.MatchedTransactionID = new(uuid.New())
				return c
			}(),
			tx:        clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(_ *reconcile.MockMatchTx, _ *reconcile.Check, _ *transaction.Transaction) {},
			wantErr:   reconcile.ErrCheckNotPending,
		},
		{
			name: "VoidCheck",
			check: func() *reconcile.Check {
				c := pendingCheck(accountID, "1042", "250.00")
				c.Status = reconcile.StatusVoid
				return c
			}(),
			tx:        clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(_ *reconcile.MockMatchTx, _ *reconcile.Check, _ *transaction.Transaction) {},
			wantErr:   reconcile.ErrCheckNotPending,
		},
		{
			name:      "AccountMismatch",
			check:     pendingCheck(accountID, "1042", "250.00"),
			tx:        clearedTx(uuid.New(), "1042", "-250.00"),
			setupMock: func(_ *reconcile.MockMatchTx, _ *reconcile.Check, _ *transaction.Transaction) {},
			wantErr:   reconcile.ErrAccountMismatch,
		},
		{
			name:  "TransactionMatchedByAnotherCheck",
			check: pendingCheck(accountID, "1042", "250.00"),
			tx:    clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(mtx *reconcile.MockMatchTx, _ *reconcile.Check, tx *transaction.Transaction) {
				mtx.EXPECT().MatchedBy(gomock.Any(), tx.ID).Return(new(uuid.New()), nil)
			},
			wantErr: reconcile.ErrTransactionAlreadyMatched,
		},
		{
			name:  "StoreRejectsRacingMatch",
			check: pendingCheck(accountID, "1042", "250.00"),
			tx:    clearedTx(accountID, "1042", "-250.00"),
			setupMock: func(mtx *reconcile.MockMatchTx, _ *reconcile.Check, tx *transaction.Transaction) {
				mtx.EXPECT().MatchedBy(gomock.Any(), tx.ID).Return(nil, nil)
				mtx.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).Return(reconcile.ErrTransactionAlreadyMatched)
			},
			wantErr: reconcile.ErrTransactionAlreadyMatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := reconcile.NewMockRepository(ctrl)
			mtx := reconcile.NewMockMatchTx(ctrl)
			txs := reconcile.NewMockTransactions(ctrl)

			txs.EXPECT().Get(gomock.Any(), tt.tx.ID).Return(tt.tx, nil)
			repo.EXPECT().BeginMatch(gomock.Any()).Return(mtx, nil)
			mtx.EXPECT().LockCheck(gomock.Any(), tt.check.ID).Return(tt.check, nil)
			mtx.EXPECT().Rollback().Return(nil)
			tt.setupMock(mtx, tt.check, tt.tx)

			got, err := reconcile.NewService(repo, txs, discard).Match(context.Background(), tt.check.ID, tt.tx.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, reconcile.StatusCleared, got.Status)
			assert.Equal(t, tt.tx.ID, *got.MatchedTransactionID)
		})
	}
}

func TestService_Void(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := pendingCheck(uuid.New(), "7", "10")

	repo := reconcile.NewMockRepository(ctrl)
	mtx := reconcile.NewMockMatchTx(ctrl)
	repo.EXPECT().BeginMatch(gomock.Any()).Return(mtx, nil)
	mtx.EXPECT().LockCheck(gomock.Any(), c.ID).Return(c, nil)
	mtx.EXPECT().UpdateStatus(gomock.Any(), c).Return(nil)
	mtx.EXPECT().Commit().Return(nil)
	mtx.EXPECT().Rollback().Return(nil)

	got, err := reconcile.NewService(repo, nil, discard).Void(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusVoid, got.Status)
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name    string
		params  reconcile.CreateParams
		wantErr bool
	}

	tests := []testCase{
		{name: "Valid", params: reconcile.CreateParams{CheckNumber: "#1042", Payee: " Landlord ", Amount: decimal.RequireFromString("250")}},
		{name: "NegativeAmountIsStoredPositive", params: reconcile.CreateParams{CheckNumber: "1043", Amount: decimal.RequireFromString("-75.5")}},
		{name: "NoDigits", params: reconcile.CreateParams{CheckNumber: "abc", Amount: decimal.RequireFromString("1")}, wantErr: true},
		{name: "ZeroAmount", params: reconcile.CreateParams{CheckNumber: "1", Amount: decimal.Zero}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := reconcile.NewMockRepository(ctrl)
			if !tt.wantErr {
				repo.EXPECT().CreateCheck(gomock.Any(), gomock.Any()).Return(nil)
			}

			got, err := reconcile.NewService(repo, nil, discard).Create(context.Background(), tt.params)

			if tt.wantErr {
				assert.ErrorIs(t, err, reconcile.ErrInvalidCheck)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, reconcile.StatusPending, got.Status)
			assert.True(t, got.Amount.IsPositive())
		})
	}
}

func TestService_AutoMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountID := uuid.New()

	single := pendingCheck(accountID, "1042", "250.00")
	ambiguous := pendingCheck(accountID, "1050", "80.00")
	unmatched := pendingCheck(accountID, "1099", "12.00")

	tx1042 := clearedTx(accountID, "1042", "-250.00")
	tx1050a := clearedTx(accountID, "1050", "-80.00")
	tx1050b := clearedTx(accountID, "1050", "-80.00")

	repo := reconcile.NewMockRepository(ctrl)
	txs := reconcile.NewMockTransactions(ctrl)
	mtx := reconcile.NewMockMatchTx(ctrl)

	repo.EXPECT().
		ListChecks(gomock.Any(), reconcile.ListFilter{AccountID: &accountID, Status: reconcile.StatusPending}).
		Return([]*reconcile.Check{single, ambiguous, unmatched}, nil)
	txs.EXPECT().
		List(gomock.Any(), transaction.ListFilter{AccountID: &accountID, OutflowsOnly: true}).
		Return([]*transaction.Transaction{tx1042, tx1050a, tx1050b}, nil)
	repo.EXPECT().MatchedTransactions(gomock.Any(), accountID).Return(map[uuid.UUID]uuid.UUID{}, nil)

	txs.EXPECT().Get(gomock.Any(), tx1042.ID).Return(tx1042, nil)
	repo.EXPECT().BeginMatch(gomock.Any()).Return(mtx, nil)
	mtx.EXPECT().LockCheck(gomock.Any(), single.ID).Return(single, nil)
	mtx.EXPECT().MatchedBy(gomock.Any(), tx1042.ID).Return(nil, nil)
	mtx.EXPECT().UpdateStatus(gomock.Any(), single).Return(nil)
	mtx.EXPECT().Commit().Return(nil)
	mtx.EXPECT().Rollback().Return(nil)

	got, err := reconcile.NewService(repo, txs, discard).AutoMatch(context.Background(), accountID)
	require.NoError(t, err)

	require.Len(t, got.Matched, 1)
	assert.Equal(t, single.ID, got.Matched[0].ID)
	assert.Equal(t, 1, got.Ambiguous)
	assert.Equal(t, 0, got.Failed)
}

func TestService_AutoMatch_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := reconcile.NewMockRepository(ctrl)
	repo.EXPECT().ListChecks(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := reconcile.NewService(repo, nil, discard).AutoMatch(context.Background(), uuid.New())
	assert.Error(t, err)
}

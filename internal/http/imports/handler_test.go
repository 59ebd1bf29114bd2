package imports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bankfeed/internal/account"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/imports"
	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
)

const owner = "owner-1"

type fakeImporter struct {
	got      ingest.Request
	result   *ingest.Result
	err      error
	sessions map[uuid.UUID]*ingest.Session
}

func (f *fakeImporter) Import(_ context.Context, req ingest.Request) (*ingest.Result, error) {
	f.got = req
	return f.result, f.err
}

func (f *fakeImporter) Get(_ context.Context, ownerID string, id uuid.UUID) (*ingest.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, ingest.ErrNotFound
	}

	return s, nil
}

func (f *fakeImporter) List(_ context.Context, ownerID string, _ *uuid.UUID) ([]*ingest.Session, error) {
	var out []*ingest.Session

	for _, s := range f.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}

	return out, nil
}

type fakeAccounts map[uuid.UUID]string

func (f fakeAccounts) Get(_ context.Context, ownerID string, id uuid.UUID) (*account.Account, error) {
	if f[id] != ownerID {
		return nil, account.ErrNotFound
	}

	return &account.Account{ID: id, OwnerID: ownerID}, nil
}

func newServer(imp imports.Importer, accounts middleware.Accounts) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Owner)
	imports.NewHandler(imp, accounts, 0).Routes(r)

	return r
}

func upload(t *testing.T, fields map[string]string, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)

	_, err = fw.Write([]byte(content))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.OwnerHeader, owner)

	return req
}

func completed(accountID uuid.UUID) *ingest.Result {
	return &ingest.Result{
		Session: &ingest.Session{
			ID:                  uuid.New(),
			OwnerID:             owner,
			AccountID:           &accountID,
			FileName:            "statement.csv",
			FileType:            "csv",
			Status:              ingest.StatusCompleted,
			TotalRows:           2,
			TransactionsCreated: 2,
		},
		Resolution: &mapping.Resolution{
			Source:     mapping.SourceClassifier,
			Mapping:    mapping.ColumnMapping{"Date": mapping.FieldDate, "Amount": mapping.FieldAmount},
			Confidence: 0.9,
		},
		Headers:   []string{"Date", "Amount"},
		Delimiter: ';',
	}
}

func TestCreate(t *testing.T) {
	accountID := uuid.New()
	accounts := fakeAccounts{accountID: owner}

	type args struct {
		fields map[string]string
		result *ingest.Result
		err    error
	}

	type testCase struct {
		name       string
		args       args
		wantStatus int
		wantCalled bool
	}

	failed := func(err error) *ingest.Result {
		res := completed(accountID)
		res.Session.Status = ingest.StatusFailed
		res.Session.Error = err.Error()

		return res
	}

	formatErr := &importer.FormatError{Kind: importer.KindEmpty, Err: errors.New("no rows")}
	persistErr := &ingest.PersistenceError{Op: "store transactions", Err: errors.New("connection refused")}

	tests := []testCase{
		{
			name:       "Completed",
			args:       args{fields: map[string]string{"account_id": accountID.String()}, result: completed(accountID)},
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "FormatErrorIsUnprocessable",
			args:       args{fields: map[string]string{"account_id": accountID.String()}, result: failed(formatErr), err: formatErr},
			wantStatus: http.StatusUnprocessableEntity,
			wantCalled: true,
		},
		{
			name:       "AccountRequired",
			args:       args{result: failed(ingest.ErrAccountRequired), err: ingest.ErrAccountRequired},
			wantStatus: http.StatusBadRequest,
			wantCalled: true,
		},
		{
			name:       "PersistenceErrorIsUnavailable",
			args:       args{fields: map[string]string{"account_id": accountID.String()}, result: failed(persistErr), err: persistErr},
			wantStatus: http.StatusServiceUnavailable,
			wantCalled: true,
		},
		{
			name:       "ForeignAccount",
			args:       args{fields: map[string]string{"account_id": uuid.NewString()}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "BadFileType",
			args:       args{fields: map[string]string{"file_type": "pdf"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BadMapping",
			args:       args{fields: map[string]string{"mapping": "{not json"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BadDelimiter",
			args:       args{fields: map[string]string{"delimiter": ";;"}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &fakeImporter{result: tt.args.result, err: tt.args.err}

			rec := httptest.NewRecorder()
			newServer(imp, accounts).ServeHTTP(rec, upload(t, tt.args.fields, "Date;Amount\n01/02/2024;-5,00\n"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, imp.got.Data != nil)
		})
	}
}

func TestCreate_PassesRequest(t *testing.T) {
	accountID := uuid.New()
	imp := &fakeImporter{result: completed(accountID)}

	req := upload(t, map[string]string{
		"account_id":  accountID.String(),
		"file_type":   ".CSV",
		"mapping":     `{"Date":"date","Amount":"amount"}`,
		"date_format": "DD/MM/YYYY",
		"delimiter":   "tab",
		"header_line": "3",
	}, "a\tb\n")

	rec := httptest.NewRecorder()
	newServer(imp, fakeAccounts{accountID: owner}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	got := imp.got
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, &accountID, got.AccountID)
	assert.Equal(t, "statement.csv", got.FileName)
	assert.Equal(t, importer.FileTypeCSV, got.FileType)
	assert.Equal(t, mapping.ColumnMapping{"Date": mapping.FieldDate, "Amount": mapping.FieldAmount}, got.Mapping)
	assert.Equal(t, "DD/MM/YYYY", got.DateFormat)
	assert.Equal(t, importer.Options{Delimiter: '\t', HeaderLine: 3}, got.Options)
	assert.Equal(t, "a\tb\n", string(got.Data))

	var body struct {
		Session struct {
			Status              string `json:"status"`
			TransactionsCreated int    `json:"transactions_created"`
		} `json:"session"`
		Delimiter string `json:"delimiter"`
		Mapping   struct {
			Source string `json:"source"`
		} `json:"mapping"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "completed", body.Session.Status)
	assert.Equal(t, 2, body.Session.TransactionsCreated)
	assert.Equal(t, "';'", body.Delimiter)
	assert.Equal(t, string(mapping.SourceClassifier), body.Mapping.Source)
}

func TestCreate_MissingOwner(t *testing.T) {
	req := upload(t, nil, "x")
	req.Header.Del(middleware.OwnerHeader)

	rec := httptest.NewRecorder()
	newServer(&fakeImporter{}, fakeAccounts{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGet(t *testing.T) {
	mine := &ingest.Session{ID: uuid.New(), OwnerID: owner, Status: ingest.StatusCompleted}
	theirs := &ingest.Session{ID: uuid.New(), OwnerID: "someone-else", Status: ingest.StatusCompleted}

	imp := &fakeImporter{sessions: map[uuid.UUID]*ingest.Session{mine.ID: mine, theirs.ID: theirs}}
	srv := newServer(imp, fakeAccounts{})

	type testCase struct {
		name       string
		path       string
		wantStatus int
	}

	tests := []testCase{
		{name: "Own", path: "/" + mine.ID.String(), wantStatus: http.StatusOK},
		{name: "OtherOwner", path: "/" + theirs.ID.String(), wantStatus: http.StatusNotFound},
		{name: "BadID", path: "/nope", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(middleware.OwnerHeader, owner)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

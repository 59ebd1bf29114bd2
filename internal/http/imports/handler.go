package imports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/http/middleware"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
)

const DefaultMaxUploadSize = 10 << 20

type Importer interface {
	Import(ctx context.Context, req ingest.Request) (*ingest.Result, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*ingest.Session, error)
	List(ctx context.Context, ownerID string, accountID *uuid.UUID) ([]*ingest.Session, error)
}

type Handler struct {
	importer  Importer
	accounts  middleware.Accounts
	maxUpload int64
}

func NewHandler(importer Importer, accounts middleware.Accounts, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}

	return &Handler{importer: importer, accounts: accounts, maxUpload: maxUpload}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

// create takes a multipart form: file, and optionally account_id, file_type,
// mapping (JSON object header -> field), date_format, delimiter and
// header_line.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to read file: "+err.Error())
		return
	}

	if int64(len(data)) > h.maxUpload {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}

	req := ingest.Request{
		OwnerID:    middleware.OwnerID(r.Context()),
		FileName:   header.Filename,
		Data:       data,
		DateFormat: r.FormValue("date_format"),
	}

	if s := r.FormValue("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid account_id")
			return
		}

		if !middleware.OwnsAccount(w, r, h.accounts, id) {
			return
		}

		req.AccountID = &id
	}

	if req.FileType, err = importer.ParseFileType(r.FormValue("file_type")); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s := r.FormValue("mapping"); s != "" {
		if err := json.Unmarshal([]byte(s), &req.Mapping); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid mapping: "+err.Error())
			return
		}
	}

	if req.Options, err = parseOptions(r); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.importer.Import(r.Context(), req)
	if res == nil {
		middleware.Internal(w, r, err)
		return
	}

	middleware.WriteJSON(w, r, statusOf(err), toImportResponse(res))
}

func parseOptions(r *http.Request) (importer.Options, error) {
	var opts importer.Options

	switch d := r.FormValue("delimiter"); {
	case d == "":
	case d == "tab" || d == `\t`:
		opts.Delimiter = '\t'
	case utf8.RuneCountInString(d) == 1:
		opts.Delimiter, _ = utf8.DecodeRuneInString(d)
	default:
		return opts, errors.New("delimiter must be a single character or \"tab\"")
	}

	if s := r.FormValue("header_line"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return opts, errors.New("header_line must be a positive line number")
		}

		opts.HeaderLine = n
	}

	return opts, nil
}

// statusOf maps a failed session's cause to a response code. The body always
// carries the session.
func statusOf(err error) int {
	var (
		fe *importer.FormatError
		me *mapping.MappingError
		pe *ingest.PersistenceError
	)

	switch {
	case err == nil:
		return http.StatusCreated
	case errors.As(err, &fe), errors.As(err, &me):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ingest.ErrAccountRequired):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var accountID *uuid.UUID

	if s := r.URL.Query().Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "invalid account_id")
			return
		}

		accountID = &id
	}

	sessions, err := h.importer.List(r.Context(), middleware.OwnerID(r.Context()), accountID)
	if err != nil {
		middleware.Internal(w, r, err)
		return
	}

	resp := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = ToSessionResponse(s)
	}

	middleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	s, err := h.importer.Get(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "import session not found")
			return
		}

		middleware.Internal(w, r, err)

		return
	}

	middleware.WriteJSON(w, r, http.StatusOK, ToSessionResponse(s))
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
	"github.com/MrJamesThe3rd/bankfeed/internal/normalize"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

const DefaultStepTimeout = 60 * time.Second

type Parser interface {
	Parse(fileName string, fileType importer.FileType, data []byte, opts importer.Options) (*importer.Parsed, error)
}

type Resolver interface {
	Resolve(ctx context.Context, fileType importer.FileType, headers []string, samples []importer.RawRow, profiles []*mapping.Profile) (*mapping.Resolution, error)
}

type Profiles interface {
	List(ctx context.Context, ownerID string, fileType importer.FileType) ([]*mapping.Profile, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, rows []importer.RawRow, res *mapping.Resolution, accountID uuid.UUID) ([]*transaction.Transaction, []normalize.RowError)
}

// Merchants fills MerchantName from the owner's learned aliases.
type Merchants interface {
	Apply(ctx context.Context, ownerID string, txs []*transaction.Transaction) error
}

type Transactions interface {
	ImportBatch(ctx context.Context, accountID uuid.UUID, candidates []*transaction.Transaction, d transaction.Deduper) (*transaction.ImportResult, error)
}

// Hook runs after a session completes with at least one new transaction.
// Its errors are logged and never change the session.
type Hook interface {
	Name() string
	AfterImport(ctx context.Context, s *Session, inserted []*transaction.Transaction) error
}

type Deps struct {
	Sessions     SessionRepository
	Parser       Parser
	Resolver     Resolver
	Profiles     Profiles
	Normalizer   Normalizer
	Merchants    Merchants
	Transactions Transactions
	Deduper      transaction.Deduper
	Hooks        []Hook
	StepTimeout  time.Duration
	Logger       *slog.Logger
}

type Orchestrator struct {
	Deps
	locks *accountLocks
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.StepTimeout <= 0 {
		deps.StepTimeout = DefaultStepTimeout
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Orchestrator{Deps: deps, locks: newAccountLocks()}
}

type Request struct {
	OwnerID   string
	AccountID *uuid.UUID
	FileName  string
	// FileType may be empty; it is then detected from the name and content.
	FileType importer.FileType
	Data     []byte
	// Mapping, when set, overrides profile and classifier resolution.
	Mapping    mapping.ColumnMapping
	DateFormat string
	Options    importer.Options
}

type Result struct {
	Session    *Session
	Resolution *mapping.Resolution
	RowErrors  []normalize.RowError
	Headers    []string
	Delimiter  rune
	// Suggested is a mapping the caller may review when resolution failed.
	Suggested           mapping.ColumnMapping
	SuggestedDateFormat string
}

func (o *Orchestrator) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.StepTimeout)
}

// Import runs one file through the pipeline. Session-level failures
// (*importer.FormatError, *mapping.MappingError, *PersistenceError) are
// returned together with the failed session.
func (o *Orchestrator) Import(ctx context.Context, req Request) (*Result, error) {
	sess := &Session{
		OwnerID:   req.OwnerID,
		AccountID: req.AccountID,
		FileName:  req.FileName,
		FileType:  string(req.FileType),
		Status:    StatusPending,
	}

	if err := o.create(ctx, sess); err != nil {
		return nil, err
	}

	log := o.Logger.With("session_id", sess.ID, "file_name", req.FileName)
	result := &Result{Session: sess}

	parsed, err := o.Parser.Parse(req.FileName, req.FileType, req.Data, req.Options)
	if err != nil {
		var fe *importer.FormatError
		if errors.As(err, &fe) {
			return result, o.fail(ctx, sess, err, fe.Hint)
		}

		return result, o.fail(ctx, sess, err, importer.HintReexport)
	}

	result.Headers = parsed.Headers
	result.Delimiter = parsed.Delimiter

	sess.FileType = string(parsed.FileType)
	sess.HeaderFingerprint = mapping.Fingerprint(parsed.Headers)
	sess.TotalRows = len(parsed.Rows)

	res, err := o.resolve(ctx, req, parsed)
	result.Resolution = res

	if err != nil {
		var me *mapping.MappingError
		if errors.As(err, &me) {
			result.Suggested = me.Suggested
			result.SuggestedDateFormat = me.SuggestedDateFormat
			return result, o.fail(ctx, sess, err, me.Hint())
		}

		return result, o.fail(ctx, sess, err, "")
	}

	if sess.AccountID == nil && res.ProfileID != nil {
		sess.AccountID = o.profileAccount(ctx, req.OwnerID, parsed.FileType, *res.ProfileID)
	}

	if sess.AccountID == nil {
		return result, o.fail(ctx, sess, ErrAccountRequired, "choose the account to import into")
	}

	sess.Status = StatusImporting
	if err := o.update(ctx, sess); err != nil {
		return result, o.fail(ctx, sess, err, "")
	}

	log.InfoContext(ctx, "importing file", "file_type", sess.FileType, "rows", sess.TotalRows, "mapping_source", res.Source)

	stepCtx, cancel := o.step(ctx)
	txs, rowErrs := o.Normalizer.Normalize(stepCtx, parsed.Rows, res, *sess.AccountID)
	cancel()

	result.RowErrors = rowErrs
	sess.ErrorsCount = len(rowErrs)

	inserted, err := o.persist(ctx, sess, txs)
	if err != nil {
		return result, o.fail(ctx, sess, err, "")
	}

	if err := o.complete(ctx, sess); err != nil {
		return result, err
	}

	log.InfoContext(ctx, "import completed",
		"created", sess.TransactionsCreated, "duplicates", sess.DuplicatesSkipped, "errors", sess.ErrorsCount)

	o.runHooks(ctx, sess, inserted)

	return result, nil
}

// ImportLinked records transactions delivered by the bank-link collaborator.
// They skip parsing, mapping and normalization but are still deduplicated.
func (o *Orchestrator) ImportLinked(ctx context.Context, ownerID string, accountID uuid.UUID, txs []*transaction.Transaction) (*Result, error) {
	sess := &Session{
		OwnerID:   ownerID,
		AccountID: &accountID,
		FileName:  "bank-link",
		FileType:  FileTypeBankLink,
		Status:    StatusImporting,
		TotalRows: len(txs),
	}

	if err := o.create(ctx, sess); err != nil {
		return nil, err
	}

	result := &Result{Session: sess}

	candidates := make([]*transaction.Transaction, len(txs))
	for i, t := range txs {
		c := *t
		c.ID = uuid.Nil
		c.AccountID = accountID
		c.Date = transaction.CalendarDate(t.Date)
		c.Description = normalize.CleanText(t.Description)
		c.MerchantName = normalize.CleanText(t.MerchantName)
		c.Memo = normalize.CleanText(t.Memo)

		if c.MerchantName == "" {
			c.MerchantName = c.Description
		}

		c.Source = transaction.SourceBankLink
		candidates[i] = &c
	}

	inserted, err := o.persist(ctx, sess, candidates)
	if err != nil {
		return result, o.fail(ctx, sess, err, "")
	}

	if err := o.complete(ctx, sess); err != nil {
		return result, err
	}

	o.runHooks(ctx, sess, inserted)

	return result, nil
}

func (o *Orchestrator) resolve(ctx context.Context, req Request, parsed *importer.Parsed) (*mapping.Resolution, error) {
	if req.Mapping != nil && !parsed.FileType.Structured() {
		return mapping.FromRequest(req.Mapping, req.DateFormat)
	}

	stepCtx, cancel := o.step(ctx)
	defer cancel()

	var profiles []*mapping.Profile

	if o.Profiles != nil && !parsed.FileType.Structured() {
		var err error

		profiles, err = o.Profiles.List(stepCtx, req.OwnerID, parsed.FileType)
		if err != nil {
			o.Logger.WarnContext(ctx, "loading import profiles failed", "error", err)
		}
	}

	samples := parsed.Rows[:min(len(parsed.Rows), 3)]

	res, err := o.Resolver.Resolve(stepCtx, parsed.FileType, parsed.Headers, samples, profiles)
	if res != nil && req.DateFormat != "" && !parsed.FileType.Structured() {
		res.DateFormat = req.DateFormat
	}

	return res, err
}

func (o *Orchestrator) profileAccount(ctx context.Context, ownerID string, fileType importer.FileType, profileID uuid.UUID) *uuid.UUID {
	if o.Profiles == nil {
		return nil
	}

	stepCtx, cancel := o.step(ctx)
	defer cancel()

	profiles, err := o.Profiles.List(stepCtx, ownerID, fileType)
	if err != nil {
		return nil
	}

	for _, p := range profiles {
		if p.ID == profileID {
			return p.DefaultAccountID
		}
	}

	return nil
}

// persist stamps the candidates with the session, resolves merchant names
// and stores them under the account's import lock.
func (o *Orchestrator) persist(ctx context.Context, sess *Session, txs []*transaction.Transaction) ([]*transaction.Transaction, error) {
	for _, t := range txs {
		t.ImportSessionID = new(sess.ID)
	}

	if o.Merchants != nil && len(txs) > 0 {
		stepCtx, cancel := o.step(ctx)
		if err := o.Merchants.Apply(stepCtx, sess.OwnerID, txs); err != nil {
			o.Logger.WarnContext(ctx, "merchant alias lookup failed", "session_id", sess.ID, "error", err)
		}
		cancel()
	}

	unlock := o.locks.lock(*sess.AccountID)
	defer unlock()

	stepCtx, cancel := o.step(ctx)
	defer cancel()

	out, err := o.Transactions.ImportBatch(stepCtx, *sess.AccountID, txs, o.Deduper)
	if err != nil {
		return nil, &PersistenceError{Op: "store transactions", Err: err}
	}

	sess.TransactionsCreated = len(out.Inserted)
	sess.DuplicatesSkipped = len(out.Duplicates)

	return out.Inserted, nil
}

func (o *Orchestrator) create(ctx context.Context, sess *Session) error {
	stepCtx, cancel := o.step(ctx)
	defer cancel()

	if err := o.Sessions.CreateSession(stepCtx, sess); err != nil {
		return &PersistenceError{Op: "create session", Err: err}
	}

	return nil
}

func (o *Orchestrator) update(ctx context.Context, sess *Session) error {
	stepCtx, cancel := o.step(ctx)
	defer cancel()

	if err := o.Sessions.UpdateSession(stepCtx, sess); err != nil {
		return &PersistenceError{Op: "update session", Err: err}
	}

	return nil
}

// hintCommitted is recorded when the rows were stored but the session could
// not be marked completed.
const hintCommitted = "the transactions were saved; importing the file again will skip them as duplicates"

// complete marks the session completed. When that write fails the session is
// recorded as failed instead, so it never stays in importing.
func (o *Orchestrator) complete(ctx context.Context, sess *Session) error {
	sess.Status = StatusCompleted
	sess.CompletedAt = new(time.Now())

	err := o.update(context.WithoutCancel(ctx), sess)
	if err == nil {
		return nil
	}

	o.Logger.ErrorContext(ctx, "recording completed session failed", "session_id", sess.ID, "error", err)

	return o.fail(ctx, sess, err, hintCommitted)
}

// fail records the terminal failure, keeping the counters reached so far,
// and returns cause.
func (o *Orchestrator) fail(ctx context.Context, sess *Session, cause error, hint string) error {
	if hint == "" {
		var pe *PersistenceError
		if errors.As(cause, &pe) {
			hint = pe.Hint()
		}
	}

	sess.Status = StatusFailed
	sess.Error = cause.Error()
	sess.Hint = hint
	sess.CompletedAt = new(time.Now())

	if err := o.update(context.WithoutCancel(ctx), sess); err != nil {
		o.Logger.ErrorContext(ctx, "recording failed session failed", "session_id", sess.ID, "error", err)
	}

	o.Logger.WarnContext(ctx, "import failed", "session_id", sess.ID, "error", cause)

	return cause
}

func (o *Orchestrator) runHooks(ctx context.Context, sess *Session, inserted []*transaction.Transaction) {
	if len(inserted) == 0 {
		return
	}

	for _, h := range o.Hooks {
		stepCtx, cancel := o.step(context.WithoutCancel(ctx))

		if err := h.AfterImport(stepCtx, sess, inserted); err != nil {
			o.Logger.WarnContext(ctx, "post-import hook failed", "hook", h.Name(), "session_id", sess.ID, "error", err)
		}

		cancel()
	}
}

func (o *Orchestrator) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Session, error) {
	return o.Sessions.GetSession(ctx, ownerID, id)
}

func (o *Orchestrator) List(ctx context.Context, ownerID string, accountID *uuid.UUID) ([]*Session, error) {
	sessions, err := o.Sessions.ListSessions(ctx, ownerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

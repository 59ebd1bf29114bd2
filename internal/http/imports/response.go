package imports

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
)

type SessionResponse struct {
	ID                  uuid.UUID     `json:"id"`
	AccountID           *uuid.UUID    `json:"account_id,omitempty"`
	FileName            string        `json:"file_name"`
	FileType            string        `json:"file_type"`
	HeaderFingerprint   string        `json:"header_fingerprint,omitempty"`
	Status              ingest.Status `json:"status"`
	TotalRows           int           `json:"total_rows"`
	TransactionsCreated int           `json:"transactions_created"`
	DuplicatesSkipped   int           `json:"duplicates_skipped"`
	ErrorsCount         int           `json:"errors_count"`
	Error               string        `json:"error,omitempty"`
	Hint                string        `json:"hint,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
}

func ToSessionResponse(s *ingest.Session) SessionResponse {
	return SessionResponse{
		ID:                  s.ID,
		AccountID:           s.AccountID,
		FileName:            s.FileName,
		FileType:            s.FileType,
		HeaderFingerprint:   s.HeaderFingerprint,
		Status:              s.Status,
		TotalRows:           s.TotalRows,
		TransactionsCreated: s.TransactionsCreated,
		DuplicatesSkipped:   s.DuplicatesSkipped,
		ErrorsCount:         s.ErrorsCount,
		Error:               s.Error,
		Hint:                s.Hint,
		CreatedAt:           s.CreatedAt,
		CompletedAt:         s.CompletedAt,
	}
}

type mappingResponse struct {
	Source     mapping.Source        `json:"source"`
	Mapping    mapping.ColumnMapping `json:"mapping"`
	Confidence float64               `json:"confidence"`
	DateFormat string                `json:"date_format,omitempty"`
	ProfileID  *uuid.UUID            `json:"profile_id,omitempty"`
}

type rowErrorResponse struct {
	Row   int    `json:"row"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
	Error string `json:"error"`
}

type importResponse struct {
	Session             SessionResponse       `json:"session"`
	Headers             []string              `json:"headers,omitempty"`
	Delimiter           string                `json:"delimiter,omitempty"`
	Mapping             *mappingResponse      `json:"mapping,omitempty"`
	Suggested           mapping.ColumnMapping `json:"suggested_mapping,omitempty"`
	SuggestedDateFormat string                `json:"suggested_date_format,omitempty"`
	RowErrors           []rowErrorResponse    `json:"row_errors,omitempty"`
}

func toImportResponse(res *ingest.Result) importResponse {
	resp := importResponse{
		Session:             ToSessionResponse(res.Session),
		Headers:             res.Headers,
		Delimiter:           importer.DelimiterName(res.Delimiter),
		Suggested:           res.Suggested,
		SuggestedDateFormat: res.SuggestedDateFormat,
	}

	if r := res.Resolution; r != nil && !r.ManualRequired {
		resp.Mapping = &mappingResponse{
			Source:     r.Source,
			Mapping:    r.Mapping,
			Confidence: r.Confidence,
			DateFormat: r.DateFormat,
			ProfileID:  r.ProfileID,
		}
	}

	for _, re := range res.RowErrors {
		resp.RowErrors = append(resp.RowErrors, rowErrorResponse{
			Row:   re.Row,
			Kind:  string(re.Err.Kind),
			Field: string(re.Err.Field),
			Value: re.Err.Value,
			Error: re.Err.Error(),
		})
	}

	return resp
}

package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
)

type Source string

const (
	SourceProfile    Source = "profile"
	SourceClassifier Source = "classifier"
	SourceRequest    Source = "request"
	SourceStructured Source = "structured"
	SourceManual     Source = "manual"
)

// maxSamples is how many data rows the classifier sees.
const maxSamples = 3

type Resolution struct {
	Mapping        ColumnMapping
	Confidence     float64
	DateFormat     string
	Source         Source
	ProfileID      *uuid.UUID
	ManualRequired bool
	// Suggested is filled when ManualRequired is set.
	Suggested           ColumnMapping
	SuggestedDateFormat string
	// ClassifierError explains why the classifier path was abandoned.
	ClassifierError error
}

type Resolver struct {
	classifier classifier.Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

func NewResolver(c classifier.Classifier, timeout time.Duration, logger *slog.Logger) *Resolver {
	if c == nil {
		c = classifier.None{}
	}

	return &Resolver{classifier: c, timeout: timeout, logger: logger}
}

// Resolve picks the mapping for a delimited file: a saved profile with the
// same header set first, then the classifier. When neither works the
// resolution is empty, ManualRequired is set and a *MappingError is returned
// alongside it. A resolved mapping without the required fields is also a
// *MappingError.
func (r *Resolver) Resolve(ctx context.Context, fileType importer.FileType, headers []string, samples []importer.RawRow, profiles []*Profile) (*Resolution, error) {
	if fileType.Structured() {
		return &Resolution{Mapping: Structured(), Confidence: 1, DateFormat: StructuredDateFormat, Source: SourceStructured}, nil
	}

	for _, p := range profiles {
		if !p.Matches(fileType, headers) {
			continue
		}

		res := &Resolution{
			Mapping:    p.rekey(headers),
			Confidence: 1,
			DateFormat: p.DateFormat,
			Source:     SourceProfile,
			ProfileID:  new(p.ID),
		}

		return res, validate(res)
	}

	res, err := r.fromClassifier(ctx, headers, samples)
	if err != nil {
		r.logger.WarnContext(ctx, "column mapping classifier failed, manual mapping required", "error", err)

		res = &Resolution{
			Mapping:         ColumnMapping{},
			Source:          SourceManual,
			ManualRequired:  true,
			Suggested:           Suggest(headers),
			SuggestedDateFormat: SuggestDateFormat(headers),
			ClassifierError:     err,
		}

		return res, &MappingError{
			Missing:             []Field{FieldDate, FieldAmount},
			Suggested:           res.Suggested,
			SuggestedDateFormat: res.SuggestedDateFormat,
		}
	}

	return res, validate(res)
}

// FromRequest wraps a mapping supplied by the caller.
func FromRequest(m ColumnMapping, dateFormat string) (*Resolution, error) {
	res := &Resolution{Mapping: m, Confidence: 1, DateFormat: dateFormat, Source: SourceRequest}
	return res, validate(res)
}

func validate(res *Resolution) error {
	err := res.Mapping.Validate()
	if err == nil {
		return nil
	}

	var me *MappingError
	if errors.As(err, &me) {
		me.Suggested = res.Suggested
		me.SuggestedDateFormat = res.SuggestedDateFormat
	}

	return err
}

type mappingResult struct {
	Index      int               `json:"index"`
	Mapping    map[string]string `json:"mapping"`
	Confidence float64           `json:"confidence"`
	DateFormat string            `json:"dateFormat,omitempty"`
}

func (m mappingResult) ResultIndex() int { return m.Index }

func (m mappingResult) Validate() error {
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", m.Confidence)
	}

	if len(m.Mapping) == 0 {
		return errors.New("empty mapping")
	}

	for h, f := range m.Mapping {
		if !Field(f).Valid() {
			return fmt.Errorf("header %q mapped to unknown field %q", h, f)
		}
	}

	return nil
}

func (r *Resolver) fromClassifier(ctx context.Context, headers []string, samples []importer.RawRow) (*Resolution, error) {
	rows := make([]map[string]string, 0, maxSamples)
	for _, s := range samples[:min(len(samples), maxSamples)] {
		rows = append(rows, s.Values)
	}

	fields := make([]string, len(Fields))
	for i, f := range Fields {
		fields[i] = string(f)
	}

	items := []classifier.Item{{
		Index:  0,
		Fields: map[string]any{"headers": headers, "samples": rows},
	}}

	out := classifier.Run[mappingResult](ctx, r.classifier, classifier.TaskMapping, items,
		map[string]any{"fields": fields},
		classifier.RunOptions{BatchSize: 1, Timeout: r.timeout})
	if !out.OK() {
		return nil, out.Errs[0]
	}

	result, ok := out.Results[0]
	if !ok {
		return nil, &classifier.ServiceError{Kind: classifier.KindMalformed, Err: errors.New("no mapping returned")}
	}

	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	m := make(ColumnMapping, len(headers))

	for h, f := range result.Mapping {
		if !known[h] {
			return nil, &classifier.ServiceError{Kind: classifier.KindMalformed, Err: fmt.Errorf("unknown header %q", h)}
		}

		m[h] = Field(f)
	}

	for _, h := range headers {
		if _, ok := m[h]; !ok {
			m[h] = FieldSkip
		}
	}

	return &Resolution{
		Mapping:    m,
		Confidence: result.Confidence,
		DateFormat: result.DateFormat,
		Source:     SourceClassifier,
	}, nil
}

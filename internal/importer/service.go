package importer

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/MrJamesThe3rd/bankfeed/internal/encoding"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer/delimited"
	"github.com/MrJamesThe3rd/bankfeed/internal/importer/ofx"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Parse turns raw file bytes into rows. fileType may be empty, in which case
// it is detected from the name and content.
func (s *Service) Parse(fileName string, fileType FileType, data []byte, opts Options) (*Parsed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, formatError(KindEmpty, HintReexport, "file %q is empty", fileName)
	}

	if fileType.spreadsheet() {
		return nil, formatError(KindUnsupportedFormat, HintReexport, "%s spreadsheets are not supported", fileType)
	}

	if ok, mime := encoding.IsText(data); !ok {
		return nil, formatError(KindUnsupportedFormat, HintReexport, "file content is %s, not text", mime)
	}

	text, err := encoding.ToUTF8(data)
	if err != nil {
		return nil, formatError(KindUnreadable, HintReexport, "decoding %q: %w", fileName, err)
	}

	if fileType == "" {
		fileType = DetectFileType(fileName, text)
	}

	if fileType.spreadsheet() {
		return nil, formatError(KindUnsupportedFormat, HintReexport, "%s spreadsheets are not supported", fileType)
	}

	if fileType.Structured() {
		return parseStructured(fileType, text)
	}

	return parseDelimited(fileType, text, opts)
}

func parseStructured(fileType FileType, text string) (*Parsed, error) {
	txs, strict, err := ofx.Parse(text)
	if err != nil {
		if errors.Is(err, ofx.ErrNoTransactions) {
			return nil, formatError(KindEmpty, "", "%w", err)
		}

		return nil, formatError(KindUnreadable, HintReexport, "%w", err)
	}

	parsed := &Parsed{
		FileType: fileType,
		Headers:  StructuredHeaders,
		Rows:     make([]RawRow, len(txs)),
		Strict:   strict,
	}

	for i, t := range txs {
		parsed.Rows[i] = RawRow{
			Index: i + 1,
			Values: map[string]string{
				FieldDatePosted: t.DatePosted,
				FieldAmount:     t.Amount,
				FieldFITID:      t.FITID,
				FieldName:       t.Name,
				FieldMemo:       t.Memo,
				FieldCheckNum:   t.CheckNum,
				FieldTrnType:    t.Type,
			},
		}
	}

	return parsed, nil
}

func parseDelimited(fileType FileType, text string, opts Options) (*Parsed, error) {
	delim := opts.Delimiter
	if delim == 0 && fileType == FileTypeTSV {
		delim = '\t'
	}

	table, err := delimited.Parse(text, delimited.Options{Delimiter: delim, HeaderLine: opts.HeaderLine})
	if err != nil {
		switch {
		case errors.Is(err, delimited.ErrEmpty):
			return nil, formatError(KindEmpty, "", "%w", err)
		case errors.Is(err, delimited.ErrNoHeader):
			return nil, formatError(KindEmpty, "check that the file has a header row, or set the header line", "%w", err)
		default:
			return nil, formatError(KindUnreadable, HintReexport, "%w", err)
		}
	}

	parsed := &Parsed{
		FileType:  fileType,
		Headers:   table.Headers,
		Rows:      make([]RawRow, len(table.Rows)),
		Delimiter: table.Delimiter,
		Strict:    true,
	}

	for i, row := range table.Rows {
		values := make(map[string]string, len(table.Headers))
		for j, h := range table.Headers {
			values[h] = row.Cells[j]
		}

		parsed.Rows[i] = RawRow{Index: row.Line, Values: values}
	}

	return parsed, nil
}

// DelimiterName renders a delimiter for API responses.
func DelimiterName(d rune) string {
	switch d {
	case 0:
		return ""
	case '\t':
		return "tab"
	default:
		return strconv.QuoteRune(d)
	}
}

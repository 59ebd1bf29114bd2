package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
)

func newImportCommand(owner *string) *cobra.Command {
	var (
		accountID  string
		fileType   string
		mappingArg string
		dateFormat string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank export file into an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}

			req := ingest.Request{
				OwnerID:    *owner,
				FileName:   filepath.Base(args[0]),
				Data:       data,
				DateFormat: dateFormat,
			}

			if accountID != "" {
				id, err := uuid.Parse(accountID)
				if err != nil {
					return fmt.Errorf("invalid --account: %w", err)
				}

				req.AccountID = &id
			}

			if req.FileType, err = importer.ParseFileType(fileType); err != nil {
				return err
			}

			if mappingArg != "" {
				if err := json.Unmarshal([]byte(mappingArg), &req.Mapping); err != nil {
					return fmt.Errorf("invalid --mapping: %w", err)
				}
			}

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Imports.Import(cmd.Context(), req)
			if res != nil {
				printImport(cmd.OutOrStdout(), res)
			}

			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (defaults to the matching profile's account)")
	cmd.Flags().StringVar(&fileType, "file-type", "", "csv, tsv, txt, ofx or qfx (detected when empty)")
	cmd.Flags().StringVar(&mappingArg, "mapping", "", `column mapping as JSON, e.g. {"Date":"date","Amount":"amount"}`)
	cmd.Flags().StringVar(&dateFormat, "date-format", "", "date format such as DD/MM/YYYY")

	return cmd
}

func printImport(w io.Writer, res *ingest.Result) {
	s := res.Session

	fmt.Fprintf(w, "session %s: %s\n", s.ID, s.Status)
	fmt.Fprintf(w, "  rows %d, created %d, duplicates %d, errors %d\n",
		s.TotalRows, s.TransactionsCreated, s.DuplicatesSkipped, s.ErrorsCount)

	if r := res.Resolution; r != nil && !r.ManualRequired {
		fmt.Fprintf(w, "  mapping from %s (confidence %.2f)\n", r.Source, r.Confidence)
	}

	for _, re := range res.RowErrors {
		fmt.Fprintf(w, "  %v\n", re)
	}

	if s.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	}

	if s.Hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", s.Hint)
	}

	if len(res.Suggested) > 0 {
		raw, _ := json.Marshal(res.Suggested)
		fmt.Fprintf(w, "  suggested mapping: %s\n", raw)
	}

	if res.SuggestedDateFormat != "" {
		fmt.Fprintf(w, "  suggested date format: %s\n", res.SuggestedDateFormat)
	}
}

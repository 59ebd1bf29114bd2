package commands

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/bankfeed/internal/reconcile"
)

func newChecksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Check register reconciliation",
	}

	cmd.AddCommand(newCheckMatchCommand())

	return cmd
}

func newCheckMatchCommand() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "match [check-id transaction-id]",
		Short: "Match one check to a transaction, or auto-match an account's pending checks",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected a check id and a transaction id, or --account")
			}

			if len(args) == 0 && accountID == "" {
				return fmt.Errorf("--account is required for auto-match")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 2 {
				checkID, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid check id: %w", err)
				}

				txID, err := uuid.Parse(args[1])
				if err != nil {
					return fmt.Errorf("invalid transaction id: %w", err)
				}

				c, err := a.Checks.Match(cmd.Context(), checkID, txID)
				if err != nil {
					return err
				}

				printCheck(cmd.OutOrStdout(), c)

				return nil
			}

			id, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("invalid --account: %w", err)
			}

			res, err := a.Checks.AutoMatch(cmd.Context(), id)
			if err != nil {
				return err
			}

			for _, c := range res.Matched {
				printCheck(cmd.OutOrStdout(), c)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "matched %d, ambiguous %d, failed %d\n", len(res.Matched), res.Ambiguous, res.Failed)

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account whose pending checks are auto-matched")

	return cmd
}

func printCheck(w io.Writer, c *reconcile.Check) {
	fmt.Fprintf(w, "check #%s %s %s: %s", c.CheckNumber, c.Amount.StringFixed(2), c.Payee, c.Status)

	if c.MatchedTransactionID != nil {
		fmt.Fprintf(w, " (transaction %s)", *c.MatchedTransactionID)
	}

	fmt.Fprintln(w)
}

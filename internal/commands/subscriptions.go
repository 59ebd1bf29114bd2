package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/bankfeed/internal/recurring"
)

func newSubscriptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Recurring charge detection",
	}

	var accountID string

	detect := &cobra.Command{
		Use:   "detect",
		Short: "Detect subscriptions in an account's history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(accountID)
			if err != nil {
				return fmt.Errorf("invalid --account: %w", err)
			}

			a, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Recurring.Detect(cmd.Context(), id)
			if err != nil {
				return err
			}

			printSubscriptions(cmd.OutOrStdout(), res)

			return nil
		},
	}

	detect.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = detect.MarkFlagRequired("account")

	cmd.AddCommand(detect)

	return cmd
}

func printSubscriptions(w io.Writer, res *recurring.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "MERCHANT\tAMOUNT\tFREQUENCY\tMONTHLY\tCONFIDENCE\tLAST")

	for _, s := range res.Subscriptions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			s.MerchantName, s.Amount.StringFixed(2), s.Frequency, s.MonthlyEquivalent.StringFixed(2),
			s.Confidence, s.LastDate.Format(time.DateOnly))
	}

	_ = tw.Flush()

	fmt.Fprintf(w, "total monthly cost: %s\n", res.TotalMonthlyCost.StringFixed(2))

	if res.Note != "" {
		fmt.Fprintf(w, "note: %s\n", res.Note)
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/credits/internal/domain"
)

func newAccountCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Open and inspect accounts",
	}

	cmd.AddCommand(
		newAccountOpenCmd(r),
		newAccountShowCmd(r),
	)

	return cmd
}

func newAccountOpenCmd(r *runner) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "open <account-id>",
		Short: "Open an account with its tier's starting balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				acct, err := e.Credits.OpenAccount(ctx, accountID, tier)
				if err != nil {
					return err
				}
				return r.print(cmd, acct, func(w io.Writer) { printAccount(w, acct) })
			})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", domain.TierFree, "tier to open the account on")

	return cmd
}

func newAccountShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show an account's tier, balance and usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				acct, err := e.Credits.Account(ctx, accountID)
				if err != nil {
					return err
				}
				return r.print(cmd, acct, func(w io.Writer) { printAccount(w, acct) })
			})
		},
	}
}

func newHistoryCmd(r *runner) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "List an account's ledger entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				hist, err := e.Credits.History(ctx, accountID, page, perPage)
				if err != nil {
					return err
				}
				return r.print(cmd, hist, func(w io.Writer) { printHistory(w, hist) })
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "entries per page")

	return cmd
}

func newQuotaCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "quota <account-id>",
		Short: "Show this month's AI usage against the tier cap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				q, err := e.Credits.QuotaStatus(ctx, accountID)
				if err != nil {
					return err
				}
				return r.print(cmd, q, func(w io.Writer) {
					switch {
					case q.Unlimited:
						fmt.Fprintf(w, "usage: %d (unlimited)\n", q.CurrentUsage)
					case q.Limit == 0:
						fmt.Fprintln(w, "AI actions are not included in this tier")
					default:
						fmt.Fprintf(w, "usage: %d/%d (%d remaining)\n", q.CurrentUsage, q.Limit, q.Remaining())
					}
				})
			})
		},
	}
}

func newSpendCmd(r *runner) *cobra.Command {
	var (
		cost        int64
		description string
	)

	cmd := &cobra.Command{
		Use:   "spend <account-id> <reason>",
		Short: "Attempt a billable action on behalf of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			req := domain.SpendRequest{
				AccountID:   accountID,
				Reason:      domain.ReasonCode(args[1]),
				Cost:        cost,
				Description: description,
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				res, err := e.Credits.AttemptSpend(ctx, req)
				if err != nil {
					return err
				}
				return r.print(cmd, res, func(w io.Writer) {
					fmt.Fprintf(w, "%s: charged %d, balance %d\n", res.State, res.Cost, res.Balance)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&cost, "cost", 0, "override the action's table cost")
	cmd.Flags().StringVar(&description, "description", "", "ledger entry description")

	return cmd
}

// =============================================================================
// Output
// =============================================================================

func printAccount(w io.Writer, acct *domain.Account) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", acct.ID)
	fmt.Fprintf(tw, "tier\t%s\n", acct.Tier)
	fmt.Fprintf(tw, "balance\t%d\n", acct.Balance)
	fmt.Fprintf(tw, "ai usage\t%d\n", acct.MonthlyUsageCount)
	if acct.UsageCounterAnchor != nil {
		fmt.Fprintf(tw, "usage month\t%s\n", acct.UsageCounterAnchor.Format("2006-01"))
	}
	tw.Flush()
}

func printEntry(w io.Writer, entry *domain.LedgerEntry) {
	if entry == nil {
		fmt.Fprintln(w, "no ledger entry recorded")
		return
	}
	fmt.Fprintf(w, "%s %+d %s (balance %d)\n", entry.ID, entry.Amount, entry.Reason, entry.BalanceAfter)
}

func printHistory(w io.Writer, hist *domain.HistoryPage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tAMOUNT\tBALANCE\tREASON\tDESCRIPTION")
	for _, e := range hist.Entries {
		fmt.Fprintf(tw, "%s\t%+d\t%d\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339), e.Amount, e.BalanceAfter, e.Reason, e.Description)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d entries)\n", hist.Page, max(hist.TotalPages, 1), hist.Total)
}

func parseAccountID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

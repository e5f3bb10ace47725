package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/credits/internal/domain"
)

// adminFlag binds the required --admin flag naming the acting administrator.
func adminFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "admin", "", "acting administrator account id")
	_ = cmd.MarkFlagRequired("admin")
}

func newAdjustCmd(r *runner) *cobra.Command {
	var admin, reason string

	cmd := &cobra.Command{
		Use:   "adjust <account-id> <amount>",
		Short: "Apply a signed manual balance adjustment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			adminID, err := parseAdminID(admin)
			if err != nil {
				return err
			}
			req := domain.AdjustRequest{
				AccountID:     accountID,
				Amount:        amount,
				Reason:        reason,
				ActingAdminID: adminID,
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				res, err := e.Credits.Adjust(ctx, req)
				if err != nil {
					return err
				}
				return r.print(cmd, res, func(w io.Writer) { printEntry(w, res.Entry) })
			})
		},
	}
	adminFlag(cmd, &admin)
	cmd.Flags().StringVar(&reason, "reason", "", "why the balance is being adjusted")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newTierCmd(r *runner) *cobra.Command {
	var admin string

	cmd := &cobra.Command{
		Use:   "tier <account-id> <tier>",
		Short: "Move an account to another tier, applying the starting balance delta",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			adminID, err := parseAdminID(admin)
			if err != nil {
				return err
			}
			req := domain.TierChangeRequest{
				AccountID:     accountID,
				NewTier:       args[1],
				ActingAdminID: adminID,
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				res, err := e.Credits.ChangeTier(ctx, req)
				if err != nil {
					return err
				}
				return r.print(cmd, res, func(w io.Writer) {
					fmt.Fprintf(w, "tier %s, balance %d\n", res.Account.Tier, res.Account.Balance)
					if res.Entry != nil {
						printEntry(w, res.Entry)
					}
				})
			})
		},
	}
	adminFlag(cmd, &admin)

	return cmd
}

func newRefundCmd(r *runner) *cobra.Command {
	var admin, description, resourceType, resourceID string

	cmd := &cobra.Command{
		Use:   "refund <account-id> <amount>",
		Short: "Return credits for a spend that did not deliver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			adminID, err := parseAdminID(admin)
			if err != nil {
				return err
			}
			req := domain.RefundRequest{
				AccountID:     accountID,
				Amount:        amount,
				Description:   description,
				ActingAdminID: &adminID,
			}
			if resourceType != "" || resourceID != "" {
				req.Resource = &domain.ResourceRef{Type: resourceType, ID: resourceID}
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				res, err := e.Credits.Refund(ctx, req)
				if err != nil {
					return err
				}
				return r.print(cmd, res, func(w io.Writer) { printEntry(w, res.Entry) })
			})
		},
	}
	adminFlag(cmd, &admin)
	cmd.Flags().StringVar(&description, "description", "", "ledger entry description")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "type of the resource the refunded spend concerned")
	cmd.Flags().StringVar(&resourceID, "resource-id", "", "id of the resource the refunded spend concerned")

	return cmd
}

func newReconcileCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Check the balance against the opening balance plus the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return r.with(cmd, func(ctx context.Context, e *Engine) error {
				rec, err := e.Credits.Reconcile(ctx, accountID)
				if err != nil {
					return err
				}
				out := struct {
					*domain.Reconciliation
					Drift int64
				}{rec, rec.Drift()}
				if err := r.print(cmd, out, func(w io.Writer) {
					fmt.Fprintf(w, "balance %d = opening %d + %d entries summing %d (drift %d)\n",
						rec.Balance, rec.OpeningBalance, rec.EntryCount, rec.EntrySum, rec.Drift())
				}); err != nil {
					return err
				}
				if rec.Drift() != 0 {
					return fmt.Errorf("account %s is out of balance by %d", rec.AccountID, rec.Drift())
				}
				return nil
			})
		},
	}
}

func parseAdminID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid admin id %q", s)
	}
	return id, nil
}

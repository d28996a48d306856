package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"budget/internal/core"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record an income or expense",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}
	cmd.Flags().StringP("type", "t", string(core.Expense), "income or expense")
	cmd.Flags().StringP("category", "c", "", "Category name")
	cmd.Flags().StringP("description", "d", "", "Free-text description")
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD or MM/DD/YYYY), default today")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	amount, err := core.ParseAmount(args[0])
	if err != nil {
		return err
	}
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	description, _ := cmd.Flags().GetString("description")

	t := core.Transaction{
		Type:        core.TransactionType(strings.ToLower(typ)),
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        env.ledger.Today(),
	}
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		if t.Date, err = core.ParseAny(raw); err != nil {
			return err
		}
	}

	saved, err := env.ledger.AddTransaction(ctx, t)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s #%d: %s %s on %s\n",
		saved.Type, saved.ID, money(saved.Amount), saved.Category, saved.Date.Display())
	return nil
}

func payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <reminder-id>",
		Short: "Mark a bill reminder as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: invalid reminder id %q", core.ErrParse, args[0])
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			r, err := env.ledger.MarkPaid(ctx, id, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %q (%s) as paid\n", r.Title, money(r.Amount))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/dashboard"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary",
		RunE:  runSummary,
	}
	cmd.Flags().String("date", "", "Reference date (YYYY-MM-DD or MM/DD/YYYY), default today")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	asOf := env.ledger.Today()
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		if asOf, err = core.ParseAny(raw); err != nil {
			return err
		}
	}
	sum, err := env.ledger.Summary(ctx, asOf)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), sum)
	}
	printSummary(cmd.OutOrStdout(), sum)
	return nil
}

func printSummary(out io.Writer, sum core.Summary) {
	fmt.Fprintf(out, "Summary as of %s\n\n", sum.AsOf.Display())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Balance\t%s\n", money(sum.Balance))
	fmt.Fprintf(tw, "Total income\t%s\n", money(sum.TotalIncome))
	fmt.Fprintf(tw, "Total expenses\t%s\n", money(sum.TotalExpenses))
	fmt.Fprintf(tw, "This month income\t%s\n", money(sum.MonthIncome))
	fmt.Fprintf(tw, "This month expenses\t%s\n", money(sum.MonthExpenses))
	tw.Flush()

	if len(sum.CategoryExpenses) > 0 {
		fmt.Fprintln(out, "\nExpenses by category (this month):")
		names := make([]string, 0, len(sum.CategoryExpenses))
		for name := range sum.CategoryExpenses {
			names = append(names, name)
		}
		sort.Strings(names)
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(tw, "  %s\t%s\n", name, money(sum.CategoryExpenses[name]))
		}
		tw.Flush()
	}

	if len(sum.UpcomingReminders) > 0 {
		fmt.Fprintln(out, "\nUpcoming bills:")
		for _, r := range sum.UpcomingReminders {
			fmt.Fprintf(out, "  %s  %-24s %s\n", r.DueDate.Display(), r.Title, money(r.Amount))
		}
	}
	if sum.Skipped > 0 {
		fmt.Fprintf(out, "\n%d malformed record(s) were skipped (bad type, amount or date)\n", sum.Skipped)
	}
}

func billsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "List bill reminders with their status",
		RunE:  runBills,
	}
	cmd.Flags().Bool("unpaid", false, "Only unpaid reminders")
	return cmd
}

func runBills(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var reminders []core.Reminder
	if unpaid, _ := cmd.Flags().GetBool("unpaid"); unpaid {
		reminders, err = env.store.RemindersByPaid(ctx, false)
	} else {
		reminders, err = env.store.Reminders(ctx)
	}
	if err != nil {
		return err
	}
	printBills(cmd.OutOrStdout(), reminders, env.ledger.Today())
	return nil
}

func printBills(out io.Writer, reminders []core.Reminder, today core.Date) {
	if len(reminders) == 0 {
		fmt.Fprintln(out, "No bill reminders.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDUE\tTITLE\tAMOUNT\tSTATUS\tRECURS")
	for _, r := range reminders {
		recurs := "-"
		if r.Recurring {
			recurs = string(r.RecurrenceType)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.DueDate.Display(), r.Title, money(r.Amount),
			dashboard.StatusLabel(r, today.Time), recurs)
	}
	tw.Flush()
}

func money(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

func writeJSON(out io.Writer, v any) error {
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

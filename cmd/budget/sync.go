package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budget/internal/app"
	"budget/internal/cli"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Load data from the remote API and optionally cache it locally",
		Long: `Loads categories, transactions and reminders from REMOTE_API_URL,
falling back to the local store and then to defaults per collection.
With --cache, a fully remote load replaces the local store contents.`,
		RunE: runSync,
	}
	cmd.Flags().Bool("cache", false, "Replace local data with the remote snapshot")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	client, err := cli.OpenRemote(env.cfg)
	if err != nil {
		return err
	}
	var ctrl *app.Controller
	if client != nil {
		ctrl = app.NewController(client, env.store)
	} else {
		env.logger.Info("REMOTE_API_URL not set, loading local data only")
		ctrl = app.NewController(nil, env.store)
	}

	src, err := ctrl.Refresh(ctx)
	if err != nil {
		return err
	}
	st := ctrl.State()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Categories:   %4d (%s)\n", len(st.Categories), src.Categories)
	fmt.Fprintf(out, "Transactions: %4d (%s)\n", len(st.Transactions), src.Transactions)
	fmt.Fprintf(out, "Reminders:    %4d (%s)\n", len(st.Reminders), src.Reminders)
	fmt.Fprintln(out)
	printSummary(out, ctrl.Summary(env.ledger.Today()))

	if cache, _ := cmd.Flags().GetBool("cache"); cache {
		if err := ctrl.CacheRemote(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nRemote snapshot cached locally.")
	}
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show local store usage against its quota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			u, err := env.store.Usage(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s", env.cfg.StoreBackend)
			if env.fallback {
				fmt.Fprint(out, " (unavailable, using memory)")
			}
			fmt.Fprintln(out)
			percent := 0.0
			if u.Quota > 0 {
				percent = float64(u.Used) / float64(u.Quota) * 100
			}
			fmt.Fprintf(out, "Used:    %s of %s (%.2f%%)\n",
				humanize.IBytes(uint64(max(u.Used, 0))),
				humanize.IBytes(uint64(max(u.Quota, 0))),
				percent)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction, category, reminder and setting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This deletes all local data. Type 'yes' to continue: ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ctx := cmd.Context()
			env, err := openEnv(ctx, cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.ledger.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local store cleared.")
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

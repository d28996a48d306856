// Command budget runs the budget tracker server and offers one-shot
// commands against the local store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "budget",
		Short:         "Budget tracker: transactions, bill reminders and a dashboard",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(billsCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(usageCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/rrouter/config"
	"github.com/hupe1980/rrouter/policy"
	"github.com/spf13/cobra"
)

func policiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the built-in dispatch policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTEPS")

			for _, k := range policy.Kinds() {
				steps := make([]string, 0, 2)
				for _, s := range k.Steps() {
					steps = append(steps, s.String())
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", int(k), k, strings.Join(steps, " -> "))
			}

			return w.Flush()
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

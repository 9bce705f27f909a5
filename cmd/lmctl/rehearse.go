package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"liquiditymining/internal/models"
	"liquiditymining/internal/scenario"
	"liquiditymining/internal/service"
)

func rehearseCommand() *cobra.Command {
	var cases []string

	cmd := &cobra.Command{
		Use:   "rehearse",
		Short: "Pass the proposal on the fork and run the staking cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range cases {
				if !models.IsKnownCase(c) {
					return fmt.Errorf("%w: %s", service.ErrUnknownCase, c)
				}
			}

			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			harness, err := scenario.NewHarness(cfg, client, logger)
			if err != nil {
				return err
			}

			outcome := harness.Rehearse(ctx, cases)
			printOutcome(outcome)

			if !outcome.Passed() {
				return fmt.Errorf("rehearsal failed")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cases, "case", nil, "case to run, repeatable (default all)")
	return cmd
}

func printOutcome(outcome *service.Outcome) {
	if outcome.ProposalID != "" {
		fmt.Printf("proposal:     %s\n", outcome.ProposalID)
	}
	if outcome.StakingPool != "" {
		fmt.Printf("staking pool: %s\n", outcome.StakingPool)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tRESULT\tDURATION\tDETAIL")
	for _, r := range outcome.Results {
		result := "PASS"
		if !r.Passed {
			result = "FAIL"
		}
		duration := (time.Duration(r.DurationMS) * time.Millisecond).String()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, result, duration, r.Detail)
	}
	w.Flush()

	if outcome.Err != nil {
		fmt.Printf("error: %v\n", outcome.Err)
	}
}

package cmd

import (
	"fmt"
	"time"

	"sacco/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func guarantorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guarantors",
		Short: "Guarantor maintenance jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Expire guarantor requests left unanswered past the response window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), config.Get())
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.services.Expiry.ExpireStale(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to expire guarantors: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d guarantor request(s)\n", count)
			return nil
		},
	})

	return cmd
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Payment transaction maintenance jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "redispatch",
		Short: "Send initiated transactions that never reached the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), config.Get())
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := a.services.Redispatch.RedispatchStale(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to redispatch transactions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %d transaction(s)\n", count)
			return nil
		},
	})

	return cmd
}

func savingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Savings maintenance jobs",
	}

	var date string
	applyInterest := &cobra.Command{
		Use:   "apply-interest",
		Short: "Credit one day of savings interest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseRunDate(date)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), config.Get())
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.services.Interest.ApplyDailyInterest(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("failed to apply interest: %w", err)
			}

			log.WithFields(log.Fields{
				"runDate":  run.RunDate.Format(time.DateOnly),
				"total":    run.TotalInterestDistributed.StringFixed(2),
				"accounts": run.AccountsAffected,
			}).Info("Interest run complete")
			fmt.Fprintf(cmd.OutOrStdout(), "Applied KES %s interest to %d account(s) for %s\n",
				run.TotalInterestDistributed.StringFixed(2), run.AccountsAffected, run.RunDate.Format(time.DateOnly))
			return nil
		},
	}
	applyInterest.Flags().StringVar(&date, "date", "", "run date as YYYY-MM-DD (defaults to today, UTC)")
	cmd.AddCommand(applyInterest)

	return cmd
}

func parseRunDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", value)
	}
	return day, nil
}

package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"tourism-app/config"
	"tourism-app/database"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/jobs"
)

func newPromotionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promotions",
		Short: "Promotion maintenance",
	}

	var dryRun bool
	expire := &cobra.Command{
		Use:   "expire",
		Short: "Deactivate promotions whose end date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := startDispatcher()
			defer drain(d, 30*time.Second)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			report, err := jobs.NewPromotionExpiry(database.DB, d).Run(ctx, dryRun)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	expire.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would expire without changing anything")

	cmd.AddCommand(expire)
	return cmd
}

func newSubscriptionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Subscription maintenance",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "expire",
			Short: "Mark lapsed subscriptions expired",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(cmd, "subscription-expiry", jobs.NewSubscriptionExpiry(database.DB))
			},
		},
		&cobra.Command{
			Use:   "remind",
			Short: "Send renewal reminders for upcoming charges",
			RunE: func(cmd *cobra.Command, args []string) error {
				d := startDispatcher()
				defer drain(d, 30*time.Second)
				return runOnce(cmd, "renewal-reminder", jobs.NewRenewalReminder(database.DB, d, config.RENEWAL_REMINDER_DAYS))
			},
		},
	)
	return cmd
}

func runOnce(cmd *cobra.Command, name string, job jobs.BatchJob) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()
	n, err := job.Execute(ctx)
	if err != nil {
		return err
	}
	logger.Info("job finished", "job", name, "count", n)
	return nil
}

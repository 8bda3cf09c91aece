// Package cli is the command tree of the tourism-app binary.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tourism-app/config"
	"tourism-app/database"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/notify"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tourism-app",
		Short:         "Tourism platform API and maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap()
		},
		// No subcommand means serve.
		RunE: runServe,
	}

	root.AddCommand(
		newServeCommand(),
		newPromotionsCommand(),
		newSubscriptionsCommand(),
	)
	return root
}

// bootstrap loads configuration, then the logger, then the database.
func bootstrap() error {
	config.LoadEnv()
	if err := logger.Init(logger.Options{
		Level:  config.LOG_LEVEL,
		Format: config.LOG_FORMAT,
		Output: config.LOG_OUTPUT,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	database.InitDB()
	return nil
}

// newSender mails through SMTP when a host is configured and logs
// otherwise.
func newSender() notify.Sender {
	if config.SMTP_HOST == "" {
		logger.Warn("SMTP_HOST not set, notifications are only logged")
		return notify.LogSender{}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     config.SMTP_HOST,
		Port:     config.SMTP_PORT,
		Username: config.SMTP_USERNAME,
		Password: config.SMTP_PASSWORD,
		From:     config.SMTP_FROM,
		FromName: config.SMTP_FROM_NAME,
	})
}

func startDispatcher() *notify.Dispatcher {
	d := notify.NewDispatcher(newSender(), config.NOTIFY_WORKERS, config.NOTIFY_QUEUE_SIZE)
	d.Start()
	return d
}

// drain waits for queued notifications before a process exits.
func drain(d *notify.Dispatcher, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		logger.Warn("notification queue not drained", "error", err)
	}
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"tourism-app/config"
	"tourism-app/database"
	routes "tourism-app/internal/app/http"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/storage"
	stripeinfra "tourism-app/internal/infra/stripe"
	"tourism-app/internal/jobs"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the job scheduler",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if config.APP_ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewDisk(config.MEDIA_ROOT)
	if err != nil {
		return err
	}

	var gateway stripeinfra.Gateway
	if config.STRIPE_SECRET_KEY != "" {
		gateway = stripeinfra.NewGateway(config.STRIPE_SECRET_KEY)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, checkout and plan sync are disabled")
	}

	dispatcher := startDispatcher()
	defer drain(dispatcher, 10*time.Second)

	scheduler := jobs.NewScheduler()
	db := database.DB
	for _, j := range []struct {
		name    string
		spec    string
		timeout time.Duration
		job     jobs.BatchJob
	}{
		{"promotion-expiry", config.PROMOTION_EXPIRY_CRON, 5 * time.Minute, jobs.NewPromotionExpiry(db, dispatcher)},
		{"subscription-expiry", config.SUBSCRIPTION_EXPIRY_CRON, 10 * time.Minute, jobs.NewSubscriptionExpiry(db)},
		{"renewal-reminder", config.RENEWAL_REMINDER_CRON, 10 * time.Minute, jobs.NewRenewalReminder(db, dispatcher, config.RENEWAL_REMINDER_DAYS)},
	} {
		if err := scheduler.Register(j.name, j.spec, j.timeout, j.job); err != nil {
			return err
		}
	}
	scheduler.Start()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:              db,
		JWTSecret:       []byte(config.JWT_SECRET),
		Gateway:         gateway,
		WebhookSecret:   config.STRIPE_WEBHOOK_SECRET,
		StripeProductID: config.STRIPE_PRODUCT_ID,
		AppURL:          config.APP_URL,
		AppEnv:          config.APP_ENV,
		Notifier:        dispatcher,
		Store:           store,
		Ping:            database.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + config.PORT,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", config.APP_ENV)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}

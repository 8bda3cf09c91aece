package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	adminapi "tourism-app/internal/api/admin"
	authapi "tourism-app/internal/api/auth"
	billingapi "tourism-app/internal/api/billing"
	destinationsapi "tourism-app/internal/api/destinations"
	"tourism-app/internal/api/health"
	mediaapi "tourism-app/internal/api/media"
	plansapi "tourism-app/internal/api/plans"
	promotionsapi "tourism-app/internal/api/promotions"
	reviewsapi "tourism-app/internal/api/reviews"
	stripewebhooks "tourism-app/internal/api/stripewebhook"
	subscriptionsapi "tourism-app/internal/api/subscriptions"
	usersapi "tourism-app/internal/api/users"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/media"
	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/infra/notify"
	stripeinfra "tourism-app/internal/infra/stripe"
	"tourism-app/internal/jobs"
)

// Deps is everything the HTTP layer needs from the process.
type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
	// Gateway is nil when no Stripe key is configured.
	Gateway         stripeinfra.Gateway
	WebhookSecret   string
	StripeProductID string
	AppURL          string
	AppEnv          string
	Notifier        notify.Notifier
	Store           mediaapi.Store
	Ping            func() error
}

// NewLimitEvaluator wires the per-resource counters into the plan limit
// check.
func NewLimitEvaluator(db *gorm.DB) *billing.LimitEvaluator {
	return billing.NewLimitEvaluator(db, map[billing.ResourceKind]billing.CountFunc{
		billing.ResourceDestination: destinations.CountOwned,
		billing.ResourcePromotion:   promotions.CountOwned,
	})
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	db := d.DB
	manager := billing.NewManager(db)
	limits := NewLimitEvaluator(db)

	healthH := health.NewHandler(d.Ping)
	webhookH := stripewebhooks.NewHandler(stripewebhooks.NewProcessor(db, d.Notifier), d.WebhookSecret)
	authH := authapi.NewHandler(db, d.JWTSecret)
	usersH := usersapi.NewHandler(db, manager, limits)
	plansH := plansapi.NewHandler(db, d.Gateway, d.StripeProductID)
	subsH := subscriptionsapi.NewHandler(manager, limits)
	billingH := billingapi.NewHandler(db, manager, d.Gateway, d.AppURL, d.AppEnv)
	destH := destinationsapi.NewHandler(db)
	promoH := promotionsapi.NewHandler(db)
	reviewsH := reviewsapi.NewHandler(db, d.Notifier)
	mediaH := mediaapi.NewHandler(db, d.Store)
	adminH := adminapi.NewHandler(db, manager, jobs.NewPromotionExpiry(db, d.Notifier))

	// Raw body and signature; nothing may rewrite it.
	r.POST("/payments/webhook", webhookH.StripeWebhook)
	r.GET("/health", healthH.Health)
	r.GET("/metrics", health.Metrics())

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/auth/register", authH.Register)
	public.POST("/auth/login", authH.Login)
	public.GET("/subscriptions/plans", plansH.ListPlans)
	public.GET("/regions", destH.ListRegions)
	public.GET("/categories", destH.ListCategories)
	public.GET("/destinations", destH.List)
	public.GET("/destinations/:id", destH.Get)
	public.GET("/destinations/:id/reviews", reviewsH.ListApproved)
	public.GET("/destinations/:id/media", mediaH.List(media.OwnerDestination))
	public.GET("/promotions", promoH.ListRunning)
	public.GET("/promotions/:id/media", mediaH.List(media.OwnerPromotion))
	public.GET("/regions/:id/media", mediaH.List(media.OwnerRegion))

	// Authenticated
	auth := public.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret))
	auth.GET("/me", usersH.GetCurrentUser)
	auth.PUT("/auth/password", authH.ChangePassword)
	auth.POST("/destinations/:id/reviews", middleware.RequireCapability(access.CapReview), reviewsH.Create)

	// Providers
	provider := auth.Group("/")
	provider.Use(middleware.RequireCapability(access.CapProvider))

	provider.GET("/subscriptions/my-subscription", subsH.MySubscription)
	provider.POST("/subscriptions/subscribe", subsH.Subscribe)
	provider.PUT("/subscriptions/cancel", subsH.Cancel)
	provider.PUT("/subscriptions/renew", subsH.Renew)
	provider.GET("/subscriptions/limits", subsH.Limits)

	provider.GET("/payment-methods", billingH.ListPaymentMethods)
	provider.POST("/payment-methods", billingH.AddPaymentMethod)
	provider.DELETE("/payment-methods/:id", billingH.DeletePaymentMethod)
	provider.PUT("/payment-methods/:id/default", billingH.SetDefaultPaymentMethod)
	provider.POST("/payments/checkout", billingH.CreateCheckoutSession)
	provider.POST("/payments/portal", billingH.CreateBillingPortal)
	provider.GET("/invoices", billingH.ListInvoices)

	provider.GET("/my/destinations", destH.Mine)
	provider.POST("/destinations", middleware.RequireCapacity(limits, billing.ResourceDestination), destH.Create)
	provider.PUT("/destinations/:id", destH.Update)
	provider.DELETE("/destinations/:id", destH.Delete)
	provider.POST("/destinations/:id/publish", destH.Publish)
	provider.POST("/destinations/:id/unpublish", destH.Unpublish)

	provider.GET("/my/promotions", promoH.Mine)
	provider.POST("/promotions", middleware.RequireCapacity(limits, billing.ResourcePromotion), promoH.Create)
	provider.PUT("/promotions/:id", promoH.Update)
	provider.DELETE("/promotions/:id", promoH.Delete)

	// Galleries are a plan feature.
	gallery := provider.Group("/")
	gallery.Use(middleware.RequireActiveSubscription(manager, "media_gallery"))
	gallery.POST("/destinations/:id/media", mediaH.Upload(media.OwnerDestination))
	gallery.PUT("/destinations/:id/media/reorder", mediaH.Reorder(media.OwnerDestination))
	gallery.POST("/promotions/:id/media", mediaH.Upload(media.OwnerPromotion))
	gallery.PUT("/promotions/:id/media/reorder", mediaH.Reorder(media.OwnerPromotion))
	provider.DELETE("/media/:id", mediaH.Delete)

	// Admin routes
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireCapability(access.CapModerate))
	admin.GET("/users", adminH.ListUsers)
	admin.GET("/users/:id", adminH.GetUserDetails)
	admin.GET("/subscriptions", adminH.ListSubscriptions)
	admin.GET("/invoices", adminH.ListInvoices)
	admin.GET("/stats", adminH.GetStats)
	admin.POST("/promotions/expire", adminH.ExpirePromotions)
	admin.POST("/sync-plans", plansH.SyncPlansFromStripe)
	admin.GET("/reviews", reviewsH.ListForModeration)
	admin.PUT("/reviews/:id/approve", reviewsH.Approve)
	admin.PUT("/reviews/:id/reject", reviewsH.Reject)
	admin.POST("/regions", destH.CreateRegion)
	admin.POST("/categories", destH.CreateCategory)
	admin.POST("/regions/:id/media", mediaH.Upload(media.OwnerRegion))
	admin.PUT("/regions/:id/media/reorder", mediaH.Reorder(media.OwnerRegion))
}

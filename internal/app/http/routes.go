package routes

import (
	"net/http"
	"strings"
	"time"

	"tiertrainer-backend/config"
	adminapi "tiertrainer-backend/internal/api/admin"
	analyticsapi "tiertrainer-backend/internal/api/analytics"
	authapi "tiertrainer-backend/internal/api/auth"
	"tiertrainer-backend/internal/api/billing"
	communityapi "tiertrainer-backend/internal/api/community"
	devicesapi "tiertrainer-backend/internal/api/devices"
	petsapi "tiertrainer-backend/internal/api/pets"
	"tiertrainer-backend/internal/api/plans"
	stripewebhooks "tiertrainer-backend/internal/api/stripewebhook"
	supportapi "tiertrainer-backend/internal/api/support"
	trialsapi "tiertrainer-backend/internal/api/trials"
	"tiertrainer-backend/internal/api/users"
	"tiertrainer-backend/internal/app/http/middleware"
	"tiertrainer-backend/internal/domain/admins"
	"tiertrainer-backend/internal/infra/assistant"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/logging"
	"tiertrainer-backend/internal/infra/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services handlers need besides the database.
// Storage and Assistant may be nil when their integration is not configured.
type Deps struct {
	Logger       *zap.Logger
	Cache        cache.Cache
	Assistant    *assistant.Assistant
	Storage      storage.ObjectStorage
	HealthChecks []adminapi.HealthCheck
}

// NewRouter builds the engine with logging, recovery and CORS, then registers every route.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.L()
	}

	r := gin.New()
	r.Use(logging.RequestID(), logging.GinMiddleware(deps.Logger), logging.Recovery(deps.Logger))

	// ✅ CORS before routes
	r.Use(cors.New(corsConfig(config.CORS_ORIGIN)))

	RegisterRoutes(r, deps)
	return r
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	checks := deps.HealthChecks
	if checks == nil {
		checks = adminapi.DefaultHealthChecks(deps.Cache)
	}

	r.POST("/webhook", stripewebhooks.StripeWebhook(deps.Cache))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/plans", plans.ListPlans)
	r.POST("/analytics/events", middleware.OptionalAuth(), analyticsapi.TrackEvent)

	r.GET("/community/posts", communityapi.ListPosts)
	r.GET("/community/posts/:id", communityapi.GetPost)
	r.GET("/community/posts/:id/comments", communityapi.ListComments)

	// ✅ Apply input sanitization to public routes
	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/verify-signup-code", authapi.VerifySignupCode)
	public.POST("/login", authapi.Login)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)
	public.POST("/device/auto-login", devicesapi.AutoLogin)

	googleSignIn := authapi.NewGoogleSignIn()
	public.GET("/auth/google", googleSignIn.Start)
	public.GET("/auth/google/callback", googleSignIn.Callback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", users.GetCurrentUser(deps.Cache))
	auth.PATCH("/me", users.UpdateProfile)
	auth.POST("/change-password", authapi.ChangePassword)
	auth.POST("/validate-device", devicesapi.ValidateDevice)

	auth.POST("/trial/start", trialsapi.StartTrial(deps.Cache))
	auth.POST("/check-trial", trialsapi.CheckTrial(deps.Cache))

	auth.GET("/subscription", billing.GetSubscription(deps.Cache))
	auth.POST("/check-subscription", billing.CheckSubscription(deps.Cache))
	auth.POST("/create-checkout", billing.CreateCheckout)
	auth.GET("/checkout/pending", billing.GetPendingCheckout)
	auth.DELETE("/checkout/pending", billing.ClearPendingCheckout)
	auth.POST("/billing-portal", billing.CreateBillingPortal)
	auth.POST("/cancel-subscription", billing.CancelSubscription(deps.Cache))
	auth.POST("/change-plan", billing.ChangePlan(deps.Cache))
	auth.POST("/cancel-downgrade", billing.CancelDowngrade(deps.Cache))
	auth.GET("/payments", billing.GetPaymentHistory)

	pets := auth.Group("/pets")
	pets.GET("", petsapi.ListPets(deps.Storage))
	pets.POST("", petsapi.CreatePet)
	pets.GET("/:id", petsapi.GetPet(deps.Storage))
	pets.PUT("/:id", petsapi.UpdatePet(deps.Storage))
	pets.DELETE("/:id", petsapi.DeletePet(deps.Storage))
	pets.POST("/:id/photo-upload-url", petsapi.PhotoUploadURL(deps.Storage))

	support := auth.Group("/support")
	support.POST("/tickets", supportapi.CreateTicket)
	support.GET("/tickets", supportapi.ListMyTickets)
	support.GET("/tickets/:id", supportapi.GetMyTicket)
	support.POST("/tickets/:id/messages", supportapi.AddMyMessage)
	support.POST("/tickets/:id/resolve", supportapi.ResolveMyTicket)
	support.POST("/chat", supportapi.Chat(deps.Assistant))

	auth.DELETE("/community/posts/:id", communityapi.DeletePost)

	// Paid (premium or trial)
	paid := auth.Group("/")
	paid.Use(middleware.RequirePaidMode())
	paid.POST("/community/posts", communityapi.CreatePost)
	paid.POST("/community/posts/:id/comments", communityapi.AddComment)

	// Staff: support agents and admins
	staff := r.Group("/admin")
	staff.Use(middleware.AuthMiddleware(), middleware.RequireStaff(admins.RoleSupport))
	staff.GET("/dashboard", adminapi.GetAdminStats)
	staff.GET("/support/tickets", supportapi.ListTickets)
	staff.GET("/support/tickets/:id", supportapi.GetTicket)
	staff.POST("/support/tickets/:id/reply", supportapi.Reply)
	staff.PATCH("/support/tickets/:id/status", supportapi.SetStatus)

	// Admin only
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireStaff(admins.RoleAdmin))
	admin.GET("/subscribers", adminapi.ListSubscribers)
	admin.GET("/users/:id", adminapi.GetUserDetails)
	admin.POST("/trials", adminapi.ManageTrial(deps.Cache))
	admin.GET("/device-bindings", adminapi.ListDeviceBindings)
	admin.DELETE("/device-bindings/:id", adminapi.DeactivateDeviceBinding)
	admin.POST("/payments/:id/refund", billing.RefundPayment)
	admin.POST("/sync-plans", plans.SyncPlansFromStripe)
	admin.GET("/health", adminapi.Health(checks))
}

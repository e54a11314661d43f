package routes

import (
	"net/http"

	"livrel_back_end/internal/handlers"
	"livrel_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers regroupe tout ce que les routes branchent.
type Handlers struct {
	Checkout   *handlers.CheckoutHandler
	Webhook    *handlers.WebhookHandler
	Order      *handlers.OrderHandler
	Download   *handlers.DownloadHandler
	Affiliate  *handlers.AffiliateHandler
	Payout     *handlers.PayoutHandler
	Ebook      *handlers.EbookHandler
	Auth       *handlers.AuthHandler
	SiteConfig *handlers.SiteConfigHandler
	Dashboard  *handlers.DashboardHandler

	JWTSecret   string
	FrontendURL string
	Redis       *redis.Client
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{h.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public
	api.GET("/ebooks", h.Ebook.ListPublic)
	api.GET("/ebooks/:slug", h.Ebook.GetBySlug)
	api.GET("/config", h.SiteConfig.List)
	api.GET("/config/:key", h.SiteConfig.Get)
	api.POST("/checkout/create-session", middleware.CheckoutRateLimit(h.Redis), h.Checkout.CreateSession)
	api.GET("/orders/session/:sessionId", h.Order.GetBySession)
	api.GET("/downloads/:token", middleware.RedeemRateLimit(h.Redis), h.Download.Redeem)
	api.POST("/downloads/generate", middleware.GenerateRateLimit(h.Redis), h.Download.Generate)

	// Webhooks Stripe (signature vérifiée dans le handler, jamais de JWT ici)
	api.POST("/stripe/webhook", h.Webhook.StripeWebhook)

	// Authentification back-office
	auth := api.Group("/auth")
	auth.POST("/login", middleware.LoginRateLimit(h.Redis), h.Auth.Login)
	auth.POST("/setup", h.Auth.Setup)
	auth.GET("/me", middleware.AuthRequired(h.JWTSecret), h.Auth.Me)

	// Back-office (JWT obligatoire)
	admin := api.Group("/", middleware.AuthRequired(h.JWTSecret))
	{
		admin.GET("/orders", h.Order.List)
		admin.GET("/orders/:id", h.Order.Get)
		admin.POST("/orders/:id/resend-email", h.Order.ResendEmail)

		admin.GET("/affiliates", h.Affiliate.List)
		admin.GET("/affiliates/:id", h.Affiliate.Get)
		admin.POST("/affiliates", h.Affiliate.Create)
		admin.PUT("/affiliates/:id", h.Affiliate.Update)
		admin.DELETE("/affiliates/:id", h.Affiliate.Delete)
		admin.POST("/affiliates/:id/pay", h.Payout.Pay)

		admin.GET("/payouts", h.Payout.List)
		admin.GET("/payouts/:id", h.Payout.Get)

		admin.GET("/admin/ebooks", h.Ebook.ListAdmin)
		admin.GET("/admin/ebooks/search", h.Ebook.Search)
		admin.POST("/admin/ebooks", h.Ebook.Create)
		admin.PUT("/admin/ebooks/:id", h.Ebook.Update)
		admin.DELETE("/admin/ebooks/:id", h.Ebook.Deactivate)

		admin.PUT("/admin/config/:key", h.SiteConfig.Set)
		admin.DELETE("/admin/config/:key", h.SiteConfig.Delete)

		admin.GET("/admin/dashboard", h.Dashboard.Summary)
	}
}

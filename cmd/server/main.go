package main

import (
	"log"
	"time"

	"livrel_back_end/internal/affiliates"
	"livrel_back_end/internal/cache"
	"livrel_back_end/internal/config"
	"livrel_back_end/internal/database"
	"livrel_back_end/internal/downloads"
	"livrel_back_end/internal/email"
	"livrel_back_end/internal/gateway"
	"livrel_back_end/internal/handlers"
	"livrel_back_end/internal/orders"
	"livrel_back_end/internal/routes"
	"livrel_back_end/internal/search"
	"livrel_back_end/internal/services"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	defer db.CloseScylla()

	catalogSession, err := db.CatalogSession()
	if err != nil {
		log.Fatal("❌ Session catalogue indisponible:", err)
	}
	commerceSession, err := db.CommerceSession()
	if err != nil {
		log.Fatal("❌ Session commerce indisponible:", err)
	}

	// Stores
	ebookStore := store.NewEbookStore(catalogSession)
	adminStore := store.NewAdminStore(catalogSession)
	orderStore := store.NewOrderStore(commerceSession)
	affiliateStore := store.NewAffiliateStore(commerceSession)
	payoutStore := store.NewPayoutStore(commerceSession)
	downloadStore := store.NewDownloadStore(commerceSession)

	// Services
	stripeGateway := gateway.NewStripeGateway(cfg)
	assetStore := services.NewAssetStore(db.MinIO, db.MinIOBucket, cfg.AssetURLTTL)
	ebookIndex := search.NewEbookIndex(db.Elastic)
	ebookCache := cache.NewEbookCache(db.Redis)
	mailer := email.NewSMTPMailer(cfg)

	downloadService := downloads.NewService(downloadStore, orderStore, ebookStore, assetStore, downloads.Policy{
		MaxDownloads: cfg.DownloadMaxCount,
		Expiry:       time.Duration(cfg.DownloadExpiryHours) * time.Hour,
	})
	ledger := affiliates.NewLedger(affiliateStore, orderStore, payoutStore, db.Redis)
	fulfillment := orders.NewFulfillment(downloadService, ebookStore, mailer, cfg.FrontendURL)
	reconciler := orders.NewReconciler(orderStore, ledger, fulfillment)

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Handlers{
		Checkout:   handlers.NewCheckoutHandler(ebookStore, stripeGateway),
		Webhook:    handlers.NewWebhookHandler(stripeGateway, reconciler),
		Order:      handlers.NewOrderHandler(orderStore, ebookStore, fulfillment),
		Download:   handlers.NewDownloadHandler(downloadService),
		Affiliate:  handlers.NewAffiliateHandler(affiliateStore, orderStore, payoutStore, ledger),
		Payout:     handlers.NewPayoutHandler(ledger, payoutStore),
		Ebook:      handlers.NewEbookHandler(ebookStore, ebookCache, ebookIndex),
		Auth:       handlers.NewAuthHandler(adminStore, cfg),
		SiteConfig: handlers.NewSiteConfigHandler(adminStore),
		Dashboard:  handlers.NewDashboardHandler(orderStore, ebookStore, payoutStore),

		JWTSecret:   cfg.JWTSecret,
		FrontendURL: cfg.FrontendURL,
		Redis:       db.Redis,
	})

	log.Println("🚀 Serveur Livrel lancé sur le port", cfg.Port)
	r.Run(":" + cfg.Port)
}

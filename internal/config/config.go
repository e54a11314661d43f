package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config regroupe toute la configuration du serveur, chargée une seule fois
// au démarrage puis injectée dans les composants. Aucune lecture d'environnement
// ailleurs dans le code métier.
type Config struct {
	Port        string
	FrontendURL string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutLocale      string

	// ScyllaDB
	ScyllaHosts            []string
	ScyllaCatalogKeyspace  string
	ScyllaCatalogRole      string
	ScyllaCatalogPassword  string
	ScyllaCommerceKeyspace string
	ScyllaCommerceRole     string
	ScyllaCommercePassword string

	// Redis
	RedisHost     string
	RedisPassword string

	// MinIO (stockage des PDF)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	// Elasticsearch
	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	SupportEmail string

	// JWT admin
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Politique de téléchargement
	DownloadMaxCount    int
	DownloadExpiryHours int
	AssetURLTTL         time.Duration
}

// Load charge le .env puis construit la configuration.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutLocale:      getEnv("CHECKOUT_LOCALE", "fr"),

		ScyllaHosts:            strings.Split(getEnv("SCYLLA_HOSTS", "127.0.0.1"), ","),
		ScyllaCatalogKeyspace:  getEnv("SCYLLA_KS_CATALOG_KEYSPACE", "livrel_catalog"),
		ScyllaCatalogRole:      os.Getenv("SCYLLA_KS_CATALOG_ROLE"),
		ScyllaCatalogPassword:  os.Getenv("SCYLLA_KS_CATALOG_PASSWORD"),
		ScyllaCommerceKeyspace: getEnv("SCYLLA_KS_COMMERCE_KEYSPACE", "livrel_commerce"),
		ScyllaCommerceRole:     os.Getenv("SCYLLA_KS_COMMERCE_ROLE"),
		ScyllaCommercePassword: os.Getenv("SCYLLA_KS_COMMERCE_PASSWORD"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		MinioBucket:    getEnv("MINIO_BUCKET", "livrel-ebooks"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    getEnv("EMAIL_FROM", "no-reply@livrel.store"),
		SupportEmail: getEnv("SUPPORT_EMAIL", "contact@livrel.store"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTExpiresIn: time.Duration(getEnvInt("JWT_EXPIRES_HOURS", 2)) * time.Hour,

		DownloadMaxCount:    getEnvInt("DOWNLOAD_MAX_COUNT", 3),
		DownloadExpiryHours: getEnvInt("DOWNLOAD_EXPIRY_HOURS", 24),
		AssetURLTTL:         time.Duration(getEnvInt("ASSET_URL_TTL_MINUTES", 15)) * time.Minute,
	}

	cfg.validate()
	return cfg
}

func (c *Config) validate() {
	if c.StripeSecretKey == "" {
		log.Println("⚠️  STRIPE_SECRET_KEY non configurée")
	}
	if c.StripeWebhookSecret == "" {
		log.Println("⚠️  STRIPE_WEBHOOK_SECRET non configuré — les webhooks seront rejetés")
	}
	if c.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET manquant dans .env")
	}
	if c.SMTPHost == "" {
		log.Println("⚠️  SMTP_HOST non configuré — l'envoi d'e-mails sera désactivé")
	}
}

// EmailConfigured indique si le service d'e-mail est utilisable.
func (c *Config) EmailConfigured() bool {
	return c.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("⚠️  Valeur invalide pour %s, on garde %d", key, fallback)
	}
	return fallback
}

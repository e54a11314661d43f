package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// Limites par endpoint
	LoginMaxAttempts    = 5
	CheckoutMaxRequests = 10
	RedeemMaxRequests   = 20
	GenerateMaxRequests = 10

	// Durées de cooldown
	LoginCooldown    = 15 * time.Minute
	CheckoutCooldown = 1 * time.Minute
	RedeemCooldown   = 1 * time.Minute
	GenerateCooldown = 1 * time.Minute
)

// LoginRateLimit bloque les tentatives de connexion répétées par IP.
func LoginRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()
		key := "login_attempts:" + ip

		cooldownKey := "login_cooldown:" + ip
		if rdb.Exists(ctx, cooldownKey).Val() > 0 {
			ttl := rdb.TTL(ctx, cooldownKey).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"message":     fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())+1),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		attempts, _ := rdb.Get(ctx, key).Int()
		if attempts >= LoginMaxAttempts {
			rdb.Set(ctx, cooldownKey, "1", LoginCooldown)
			rdb.Del(ctx, key)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"message":     fmt.Sprintf("Trop de tentatives échouées. Bloqué pendant %d minutes", int(LoginCooldown.Minutes())),
				"retry_after": int(LoginCooldown.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		// Tentative échouée : incrémenter. Réussie : tout réinitialiser.
		if c.Writer.Status() == http.StatusUnauthorized {
			rdb.Incr(ctx, key)
			rdb.Expire(ctx, key, LoginCooldown)
		} else if c.Writer.Status() == http.StatusOK {
			rdb.Del(ctx, key, cooldownKey)
		}
	}
}

// CheckoutRateLimit limite les créations de session de paiement par IP.
func CheckoutRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return perIPLimit(rdb, "checkout_requests:", CheckoutMaxRequests, CheckoutCooldown,
		"Trop de demandes de paiement. Réessayez dans 1 minute")
}

// RedeemRateLimit limite les consommations de liens de téléchargement par IP
// (anti force brute sur les jetons).
func RedeemRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return perIPLimit(rdb, "redeem_requests:", RedeemMaxRequests, RedeemCooldown,
		"Trop de téléchargements. Réessayez dans 1 minute")
}

// GenerateRateLimit limite les générations de liens par IP (anti énumération
// d'identifiants de commande).
func GenerateRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return perIPLimit(rdb, "generate_requests:", GenerateMaxRequests, GenerateCooldown,
		"Trop de demandes de lien. Réessayez dans 1 minute")
}

func perIPLimit(rdb *redis.Client, prefix string, max int, window time.Duration, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := prefix + c.ClientIP()

		requests, _ := rdb.Get(ctx, key).Int()
		if requests >= max {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"message":     message,
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		pipe := rdb.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-requests-1))

		c.Next()
	}
}

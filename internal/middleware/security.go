package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders pose les en-têtes de durcissement sur toutes les réponses.
// L'API ne sert que du JSON et des redirections : pas d'inline, pas de frame.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
)

// WebhookVerifier vérifie la signature d'un webhook entrant.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

// EventReconciler traite un événement vérifié.
type EventReconciler interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// WebhookHandler est la frontière HTTP des webhooks Stripe : vérification de
// signature puis réconciliation. Une signature invalide est rejetée avant
// tout traitement ; un échec de traitement renvoie 500 pour que Stripe relivre.
type WebhookHandler struct {
	verifier   WebhookVerifier
	reconciler EventReconciler
}

func NewWebhookHandler(verifier WebhookVerifier, reconciler EventReconciler) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler}
}

// StripeWebhook traite POST /api/stripe/webhook.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Échec lecture body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		log.Println("❌ Webhook sans header Stripe-Signature")
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Signature manquante"})
		return
	}

	event, err := h.verifier.VerifyWebhook(payload, sig)
	if err != nil {
		log.Println("❌ Signature Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Signature invalide"})
		return
	}

	if err := h.reconciler.HandleEvent(c.Request.Context(), event); err != nil {
		log.Printf("❌ Échec traitement webhook %s: %v", event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Échec traitement webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

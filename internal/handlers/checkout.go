package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"

	"livrel_back_end/internal/gateway"
	"livrel_back_end/internal/models"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CheckoutHandler crée les sessions de paiement Stripe.
type CheckoutHandler struct {
	ebooks  *store.EbookStore
	gateway *gateway.StripeGateway
}

func NewCheckoutHandler(ebooks *store.EbookStore, gw *gateway.StripeGateway) *CheckoutHandler {
	return &CheckoutHandler{ebooks: ebooks, gateway: gw}
}

// CreateSession traite POST /api/checkout/create-session.
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required"`
		EbookSlug     string `json:"ebookSlug" binding:"required"`
		AffiliateCode string `json:"affiliateCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email et ebookSlug sont requis"})
		return
	}
	if !emailRegex.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Format d'e-mail invalide"})
		return
	}

	ebook, err := h.ebooks.GetBySlug(c.Request.Context(), req.EbookSlug)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	if !ebook.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable ou inactif"})
		return
	}
	if ebook.StripePriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Cet e-book n'a pas de tarif Stripe configuré"})
		return
	}

	sess, err := h.gateway.CreateCheckoutSession(req.Email, ebook, req.AffiliateCode)
	if err != nil {
		log.Printf("❌ Erreur création session checkout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Échec création de la session de paiement"})
		return
	}

	log.Printf("💳 Session checkout créée : %s (%s) pour %s", sess.SessionID, ebook.Slug, req.Email)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": sess})
}

// ebookSummary est la vue publique réduite jointe aux réponses commande.
func ebookSummary(e *models.Ebook) gin.H {
	return gin.H{
		"id":           e.ID,
		"slug":         e.Slug,
		"title":        e.Title,
		"subtitle":     e.Subtitle,
		"coverUrl":     e.CoverURL,
		"priceDisplay": e.PriceDisplay,
		"currency":     e.Currency,
	}
}

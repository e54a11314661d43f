package handlers

import (
	"errors"
	"net/http"

	"livrel_back_end/internal/affiliates"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// PayoutHandler expose le règlement des commissions et l'historique des
// versements (back-office).
type PayoutHandler struct {
	ledger  *affiliates.Ledger
	payouts *store.PayoutStore
}

func NewPayoutHandler(ledger *affiliates.Ledger, payouts *store.PayoutStore) *PayoutHandler {
	return &PayoutHandler{ledger: ledger, payouts: payouts}
}

// Pay traite POST /api/affiliates/:id/pay : règle en un lot toutes les
// commissions en attente de l'affilié.
func (h *PayoutHandler) Pay(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	// Corps optionnel
	c.ShouldBindJSON(&req)

	result, err := h.ledger.PayPendingCommissions(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// List traite GET /api/payouts, filtrable par ?affiliateId=.
func (h *PayoutHandler) List(c *gin.Context) {
	payouts, err := h.payouts.List(c.Request.Context(), c.Query("affiliateId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": payouts})
}

// Get traite GET /api/payouts/:id.
func (h *PayoutHandler) Get(c *gin.Context) {
	payout, err := h.payouts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Versement introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": payout})
}

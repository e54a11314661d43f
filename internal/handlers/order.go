package handlers

import (
	"errors"
	"net/http"

	"livrel_back_end/internal/models"
	"livrel_back_end/internal/orders"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// OrderHandler expose la consultation des commandes : publique par session de
// checkout (page de remerciement), back-office pour le reste.
type OrderHandler struct {
	orders      *store.OrderStore
	ebooks      *store.EbookStore
	fulfillment *orders.Fulfillment
}

func NewOrderHandler(o *store.OrderStore, e *store.EbookStore, f *orders.Fulfillment) *OrderHandler {
	return &OrderHandler{orders: o, ebooks: e, fulfillment: f}
}

// GetBySession traite GET /api/orders/session/:sessionId (public). La page de
// remerciement interroge cette route en boucle le temps que le webhook arrive.
func (h *OrderHandler) GetBySession(c *gin.Context) {
	order, err := h.orders.GetBySessionID(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	data := gin.H{
		"id":        order.ID,
		"email":     order.Email,
		"amount":    order.Amount,
		"currency":  order.Currency,
		"status":    order.Status,
		"createdAt": order.CreatedAt,
	}
	if ebook, err := h.ebooks.GetByID(c.Request.Context(), order.EbookID); err == nil {
		data["ebook"] = ebookSummary(ebook)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// List traite GET /api/orders (back-office).
func (h *OrderHandler) List(c *gin.Context) {
	all, err := h.orders.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": all})
}

// Get traite GET /api/orders/:id (back-office).
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": order})
}

// ResendEmail traite POST /api/orders/:id/resend-email (back-office) : renvoie
// l'e-mail de téléchargement en réutilisant le lien actif s'il y en a un.
func (h *OrderHandler) ResendEmail(c *gin.Context) {
	order, err := h.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	if order.Status != models.OrderPaid {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "La commande n'est pas payée"})
		return
	}

	download, err := h.fulfillment.SendDownloadEmail(c.Request.Context(), order, true)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"message":  "E-mail renvoyé à " + order.Email,
		"download": downloadView(download),
	}})
}

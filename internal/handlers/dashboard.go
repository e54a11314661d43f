package handlers

import (
	"net/http"
	"time"

	"livrel_back_end/internal/models"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// DashboardHandler agrège les chiffres d'accueil du back-office.
type DashboardHandler struct {
	orders  *store.OrderStore
	ebooks  *store.EbookStore
	payouts *store.PayoutStore
}

func NewDashboardHandler(o *store.OrderStore, e *store.EbookStore, p *store.PayoutStore) *DashboardHandler {
	return &DashboardHandler{orders: o, ebooks: e, payouts: p}
}

// Summary traite GET /api/admin/dashboard.
func (h *DashboardHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	var revenue, commissionsPending, commissionsPaid float64
	var paid, pending, failed int
	monthStart := time.Now().UTC().AddDate(0, 0, -30)
	var revenueLast30 float64

	for _, o := range orders {
		switch o.Status {
		case models.OrderPaid:
			paid++
			revenue += o.Amount
			if o.CreatedAt.After(monthStart) {
				revenueLast30 += o.Amount
			}
			switch o.CommissionStatus {
			case models.CommissionPending:
				commissionsPending += o.CommissionAmount
			case models.CommissionPaid:
				commissionsPaid += o.CommissionAmount
			}
		case models.OrderPending:
			pending++
		case models.OrderFailed:
			failed++
		}
	}

	ebooks, err := h.ebooks.List(ctx, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	var activeEbooks int
	for _, e := range ebooks {
		if e.IsActive {
			activeEbooks++
		}
	}

	payouts, err := h.payouts.List(ctx, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"orders": gin.H{
			"total":   len(orders),
			"paid":    paid,
			"pending": pending,
			"failed":  failed,
		},
		"revenue": gin.H{
			"total":  revenue,
			"last30": revenueLast30,
		},
		"commissions": gin.H{
			"pending": commissionsPending,
			"paid":    commissionsPaid,
		},
		"catalog": gin.H{
			"total":  len(ebooks),
			"active": activeEbooks,
		},
		"payouts": len(payouts),
	}})
}

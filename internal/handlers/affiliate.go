package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"livrel_back_end/internal/affiliates"
	"livrel_back_end/internal/models"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// AffiliateHandler gère le CRUD des affiliés (back-office).
type AffiliateHandler struct {
	affiliates *store.AffiliateStore
	orders     *store.OrderStore
	payouts    *store.PayoutStore
	ledger     *affiliates.Ledger
}

func NewAffiliateHandler(a *store.AffiliateStore, o *store.OrderStore, p *store.PayoutStore, l *affiliates.Ledger) *AffiliateHandler {
	return &AffiliateHandler{affiliates: a, orders: o, payouts: p, ledger: l}
}

// List traite GET /api/affiliates : chaque fiche est enrichie de ses cumuls.
func (h *AffiliateHandler) List(c *gin.Context) {
	all, err := h.affiliates.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	out := make([]gin.H, 0, len(all))
	for _, a := range all {
		entry := gin.H{"affiliate": a}
		if totals, err := h.ledger.Totals(c.Request.Context(), a.ID); err == nil {
			entry["totals"] = totals
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": out})
}

// Get traite GET /api/affiliates/:id : fiche + commandes + versements + cumuls.
func (h *AffiliateHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	affiliate, err := h.affiliates.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Affilié introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	orders, err := h.orders.ListByAffiliate(ctx, affiliate.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	payouts, err := h.payouts.List(ctx, affiliate.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	totals, err := h.ledger.Totals(ctx, affiliate.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"affiliate": affiliate,
		"orders":    orders,
		"payouts":   payouts,
		"totals":    totals,
	}})
}

type affiliateRequest struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Code              string   `json:"code"`
	CommissionPercent *float64 `json:"commissionPercent"`
	Status            string   `json:"status"`
}

func (r *affiliateRequest) validate() string {
	if r.Name == "" || r.Email == "" || r.Code == "" {
		return "name, email et code sont requis"
	}
	if !emailRegex.MatchString(r.Email) {
		return "Format d'e-mail invalide"
	}
	if len(r.Code) < 3 || len(r.Code) > 32 {
		return "Le code doit faire entre 3 et 32 caractères"
	}
	if r.CommissionPercent == nil || *r.CommissionPercent < 0 || *r.CommissionPercent > 100 {
		return "commissionPercent doit être entre 0 et 100"
	}
	if r.Status != "" && r.Status != models.AffiliateActive && r.Status != models.AffiliateInactive {
		return "Statut invalide"
	}
	return ""
}

// Create traite POST /api/affiliates. Le code est normalisé en majuscules.
func (h *AffiliateHandler) Create(c *gin.Context) {
	var req affiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Corps de requête invalide"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
		return
	}

	status := req.Status
	if status == "" {
		status = models.AffiliateActive
	}
	now := time.Now().UTC()
	affiliate := &models.Affiliate{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             strings.ToLower(req.Email),
		Code:              strings.ToUpper(strings.TrimSpace(req.Code)),
		CommissionPercent: *req.CommissionPercent,
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.affiliates.Create(c.Request.Context(), affiliate); err != nil {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": affiliate})
}

// Update traite PUT /api/affiliates/:id. Le pourcentage modifié ne s'applique
// qu'aux commandes futures, les commissions déjà figées ne bougent pas.
func (h *AffiliateHandler) Update(c *gin.Context) {
	prev, err := h.affiliates.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Affilié introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	var req affiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Corps de requête invalide"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
		return
	}

	next := *prev
	next.Name = req.Name
	next.Email = strings.ToLower(req.Email)
	next.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	next.CommissionPercent = *req.CommissionPercent
	if req.Status != "" {
		next.Status = req.Status
	}

	if err := h.affiliates.Update(c.Request.Context(), prev, &next); err != nil {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": &next})
}

// Delete traite DELETE /api/affiliates/:id. Refusé tant que des commandes
// référencent l'affilié : on désactive dans ce cas.
func (h *AffiliateHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	affiliate, err := h.affiliates.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Affilié introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	linked, err := h.orders.ListByAffiliate(ctx, affiliate.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	if len(linked) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Des commandes référencent cet affilié, désactivez-le plutôt que de le supprimer",
		})
		return
	}

	if err := h.affiliates.Delete(ctx, affiliate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"message": "Affilié supprimé"}})
}

package handlers

import (
	"errors"
	"net/http"

	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// SiteConfigHandler expose la configuration clé/valeur du site (thème, textes)
// éditable depuis le back-office, lisible publiquement.
type SiteConfigHandler struct {
	admins *store.AdminStore
}

func NewSiteConfigHandler(admins *store.AdminStore) *SiteConfigHandler {
	return &SiteConfigHandler{admins: admins}
}

// List traite GET /api/config (public, le front lit le thème au chargement).
func (h *SiteConfigHandler) List(c *gin.Context) {
	configs, err := h.admins.ListConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	out := make(map[string]string, len(configs))
	for _, cfg := range configs {
		out[cfg.Key] = cfg.Value
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": out})
}

// Get traite GET /api/config/:key.
func (h *SiteConfigHandler) Get(c *gin.Context) {
	cfg, err := h.admins.GetConfig(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Clé de configuration introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": cfg})
}

// Set traite PUT /api/admin/config/:key.
func (h *SiteConfigHandler) Set(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Corps de requête invalide"})
		return
	}

	key := c.Param("key")
	if err := h.admins.SetConfig(c.Request.Context(), key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"key": key, "value": req.Value}})
}

// Delete traite DELETE /api/admin/config/:key.
func (h *SiteConfigHandler) Delete(c *gin.Context) {
	if err := h.admins.DeleteConfig(c.Request.Context(), c.Param("key")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"message": "Clé supprimée"}})
}

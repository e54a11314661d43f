package handlers

import (
	"net/http"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/downloads"
	"livrel_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

// DownloadHandler expose l'émission et la consommation des liens de
// téléchargement. Les deux routes sont publiques : la page de téléchargement
// du front demande le lien à partir de l'identifiant de commande, et Issue ne
// sert que les commandes payées.
type DownloadHandler struct {
	svc *downloads.Service
}

func NewDownloadHandler(svc *downloads.Service) *DownloadHandler {
	return &DownloadHandler{svc: svc}
}

func downloadView(d *models.Download) gin.H {
	return gin.H{
		"token":         d.Token,
		"downloadUrl":   "/api/downloads/" + d.Token,
		"expiresAt":     d.ExpiresAt,
		"downloadCount": d.DownloadCount,
		"maxDownloads":  d.MaxDownloads,
		"remaining":     d.Remaining(),
	}
}

// Generate traite POST /api/downloads/generate : émet (ou réémet) le lien
// d'une commande payée.
func (h *DownloadHandler) Generate(c *gin.Context) {
	var req struct {
		OrderID string `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "orderId est requis"})
		return
	}

	d, err := h.svc.Issue(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": downloadView(d)})
}

// Redeem traite GET /api/downloads/:token : consomme une utilisation et
// redirige vers l'URL signée du PDF. Les refus détaillent la cause quand le
// lien est connu (date d'expiration, compteurs).
func (h *DownloadHandler) Redeem(c *gin.Context) {
	token := c.Param("token")

	url, d, err := h.svc.Redeem(c.Request.Context(), token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindExpired:
			c.JSON(http.StatusGone, gin.H{
				"status":    "error",
				"message":   err.Error(),
				"expiresAt": d.ExpiresAt,
			})
		case apperr.KindLimitReached:
			c.JSON(http.StatusForbidden, gin.H{
				"status":        "error",
				"message":       err.Error(),
				"downloadCount": d.DownloadCount,
				"maxDownloads":  d.MaxDownloads,
			})
		case apperr.KindNotConfigured:
			// Ne pas révéler au porteur du lien que l'asset manque côté serveur
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Fichier indisponible"})
		default:
			respondError(c, err)
		}
		return
	}

	c.Redirect(http.StatusFound, url)
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"livrel_back_end/internal/cache"
	"livrel_back_end/internal/models"
	"livrel_back_end/internal/search"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// EbookHandler expose le catalogue public (mis en cache Redis) et le CRUD
// back-office, avec indexation Elasticsearch au fil de l'eau.
type EbookHandler struct {
	ebooks *store.EbookStore
	cache  *cache.EbookCache
	index  *search.EbookIndex
}

func NewEbookHandler(ebooks *store.EbookStore, c *cache.EbookCache, index *search.EbookIndex) *EbookHandler {
	return &EbookHandler{ebooks: ebooks, cache: c, index: index}
}

// publicView retire les champs internes d'une fiche avant exposition publique.
func publicView(e *models.Ebook) *models.Ebook {
	v := *e
	v.PDFObjectKey = ""
	v.StripePriceID = ""
	return &v
}

// ListPublic traite GET /api/ebooks : catalogue actif, servi depuis Redis
// quand le cache est chaud.
func (h *EbookHandler) ListPublic(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, ok := h.cache.GetCatalog(ctx); ok {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": cached})
		return
	}

	ebooks, err := h.ebooks.List(ctx, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	views := make([]*models.Ebook, 0, len(ebooks))
	for _, e := range ebooks {
		views = append(views, publicView(e))
	}
	h.cache.SetCatalog(ctx, views)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": views})
}

// GetBySlug traite GET /api/ebooks/:slug (public).
func (h *EbookHandler) GetBySlug(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")

	if cached, ok := h.cache.GetBySlug(ctx, slug); ok {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": cached})
		return
	}

	ebook, err := h.ebooks.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	if !ebook.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable"})
		return
	}

	view := publicView(ebook)
	h.cache.SetBySlug(ctx, view)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": view})
}

// ListAdmin traite GET /api/admin/ebooks : tout le catalogue, champs internes compris.
func (h *EbookHandler) ListAdmin(c *gin.Context) {
	ebooks, err := h.ebooks.List(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": ebooks})
}

type ebookRequest struct {
	Slug                  string  `json:"slug"`
	Title                 string  `json:"title"`
	Subtitle              string  `json:"subtitle"`
	Category              string  `json:"category"`
	ShortDescription      string  `json:"shortDescription"`
	LongDescription       string  `json:"longDescription"`
	SalesShortDescription string  `json:"salesShortDescription"`
	PriceDisplay          float64 `json:"priceDisplay"`
	Currency              string  `json:"currency"`
	StripePriceID         string  `json:"stripePriceId"`
	CoverURL              string  `json:"coverUrl"`
	HeroImageURL          string  `json:"heroImageUrl"`
	PDFObjectKey          string  `json:"pdfObjectKey"`
	IsActive              *bool   `json:"isActive"`
}

func (r *ebookRequest) validate() string {
	if r.Slug == "" || r.Title == "" {
		return "slug et title sont requis"
	}
	if strings.ContainsAny(r.Slug, " /") {
		return "Le slug ne doit contenir ni espace ni slash"
	}
	if r.PriceDisplay < 0 {
		return "Le prix ne peut pas être négatif"
	}
	return ""
}

func (r *ebookRequest) apply(e *models.Ebook) {
	e.Slug = strings.ToLower(r.Slug)
	e.Title = r.Title
	e.Subtitle = r.Subtitle
	e.Category = r.Category
	e.ShortDescription = r.ShortDescription
	e.LongDescription = r.LongDescription
	e.SalesShortDescription = r.SalesShortDescription
	e.PriceDisplay = r.PriceDisplay
	e.Currency = strings.ToUpper(r.Currency)
	if e.Currency == "" {
		e.Currency = "EUR"
	}
	e.StripePriceID = r.StripePriceID
	e.CoverURL = r.CoverURL
	e.HeroImageURL = r.HeroImageURL
	e.PDFObjectKey = r.PDFObjectKey
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
}

// Create traite POST /api/admin/ebooks.
func (h *EbookHandler) Create(c *gin.Context) {
	var req ebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Corps de requête invalide"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
		return
	}

	now := time.Now().UTC()
	ebook := &models.Ebook{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	req.apply(ebook)

	if err := h.ebooks.Create(c.Request.Context(), ebook); err != nil {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
		return
	}

	h.cache.Invalidate(c.Request.Context(), ebook.Slug)
	h.index.Index(c.Request.Context(), ebook)
	log.Printf("📚 E-book créé : %s (%s)", ebook.Title, ebook.Slug)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": ebook})
}

// Update traite PUT /api/admin/ebooks/:id. Le slug est immuable après création
// (les liens marketing pointent dessus).
func (h *EbookHandler) Update(c *gin.Context) {
	ebook, err := h.ebooks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	var req ebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Corps de requête invalide"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
		return
	}
	if strings.ToLower(req.Slug) != ebook.Slug {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Le slug ne peut pas être modifié"})
		return
	}

	req.apply(ebook)
	if err := h.ebooks.Update(c.Request.Context(), ebook); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), ebook.Slug)
	h.index.Index(c.Request.Context(), ebook)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": ebook})
}

// Deactivate traite DELETE /api/admin/ebooks/:id : désactivation, pas de
// suppression (les commandes référencent la fiche).
func (h *EbookHandler) Deactivate(c *gin.Context) {
	ebook, err := h.ebooks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "E-book introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	if err := h.ebooks.Deactivate(c.Request.Context(), ebook.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), ebook.Slug)
	h.index.Delete(c.Request.Context(), ebook.ID)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"message": "E-book désactivé"}})
}

// Search traite GET /api/admin/ebooks/search?q= via Elasticsearch.
func (h *EbookHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Paramètre q requis"})
		return
	}

	results, err := h.index.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": results})
}

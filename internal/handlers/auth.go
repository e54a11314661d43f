package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"livrel_back_end/internal/config"
	"livrel_back_end/internal/models"
	"livrel_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler gère la connexion au back-office et le setup du premier admin.
type AuthHandler struct {
	admins *store.AdminStore
	cfg    *config.Config
}

func NewAuthHandler(admins *store.AdminStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{admins: admins, cfg: cfg}
}

func (h *AuthHandler) generateJWT(admin *models.AdminUser) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"email":    admin.Email,
		"exp":      time.Now().Add(h.cfg.JWTExpiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// Login traite POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Email et mot de passe requis"})
		return
	}

	admin, err := h.admins.GetByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Identifiants invalides"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		log.Printf("⚠️  Tentative de connexion échouée pour %s", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Identifiants invalides"})
		return
	}

	token, err := h.generateJWT(admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Échec génération du token"})
		return
	}

	log.Printf("✅ Connexion admin : %s", admin.Email)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"token": token,
		"admin": admin,
	}})
}

// Setup traite POST /api/auth/setup : création du tout premier compte admin.
// Verrouillé dès qu'un compte existe.
func (h *AuthHandler) Setup(c *gin.Context) {
	count, err := h.admins.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Erreur base de données"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "Le setup a déjà été effectué"})
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "email, name et password sont requis"})
		return
	}
	if !emailRegex.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Format d'e-mail invalide"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Le mot de passe doit faire au moins 8 caractères"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Échec hashage du mot de passe"})
		return
	}

	admin := &models.AdminUser{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.admins.Create(c.Request.Context(), admin); err != nil {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
		return
	}

	token, err := h.generateJWT(admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Échec génération du token"})
		return
	}

	log.Printf("✅ Premier admin créé : %s", admin.Email)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{
		"token": token,
		"admin": admin,
	}})
}

// Me traite GET /api/auth/me : identité portée par le token.
func (h *AuthHandler) Me(c *gin.Context) {
	adminID := c.GetString("admin_id")
	email := c.GetString("admin_email")
	if adminID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Non authentifié"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"adminId": adminID,
		"email":   email,
	}})
}

package downloads

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// DownloadRepo expose la persistance des liens de téléchargement.
type DownloadRepo interface {
	GetByToken(ctx context.Context, token string) (*models.Download, error)
	GetActiveByOrder(ctx context.Context, orderID string, now time.Time) (*models.Download, error)
	Create(ctx context.Context, d *models.Download) error
	IncrementCount(ctx context.Context, token string, expected int) (bool, error)
}

// OrderReader et EbookReader : lecture seule des commandes et du catalogue.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
}

type EbookReader interface {
	GetByID(ctx context.Context, ebookID string) (*models.Ebook, error)
}

// AssetResolver fournit l'URL signée de l'objet PDF.
type AssetResolver interface {
	PresignedDownloadURL(ctx context.Context, objectKey, filename string) (string, error)
}

// Policy fige les constantes de politique au démarrage.
type Policy struct {
	MaxDownloads int
	Expiry       time.Duration
}

// Service émet et consomme les jetons de téléchargement. Le jeton est un
// secret porteur : 32 octets aléatoires, jamais loggé en entier.
type Service struct {
	repo   DownloadRepo
	orders OrderReader
	ebooks EbookReader
	assets AssetResolver
	policy Policy
}

func NewService(repo DownloadRepo, orders OrderReader, ebooks EbookReader, assets AssetResolver, policy Policy) *Service {
	return &Service{repo: repo, orders: orders, ebooks: ebooks, assets: assets, policy: policy}
}

// Issue émet (ou réutilise) le lien de téléchargement d'une commande payée.
// Idempotent : tant qu'un lien actif existe, c'est lui qui est retourné, on
// ne frappe pas un deuxième jeton.
func (s *Service) Issue(ctx context.Context, orderID string) (*models.Download, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Commande introuvable")
		}
		return nil, err
	}
	if order.Status != models.OrderPaid {
		return nil, apperr.New(apperr.KindPrecondition, "La commande n'est pas encore payée")
	}

	now := time.Now().UTC()
	existing, err := s.repo.GetActiveByOrder(ctx, orderID, now)
	if err == nil {
		log.Printf("ℹ️  Lien de téléchargement actif réutilisé pour la commande %s", orderID)
		return existing, nil
	}
	if !errors.Is(err, gocql.ErrNotFound) {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	d := &models.Download{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		EbookID:       order.EbookID,
		Token:         token,
		ExpiresAt:     now.Add(s.policy.Expiry),
		DownloadCount: 0,
		MaxDownloads:  s.policy.MaxDownloads,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	log.Printf("✅ Lien de téléchargement émis pour la commande %s (expire %s)",
		orderID, d.ExpiresAt.Format(time.RFC3339))
	return d, nil
}

// Redeem consomme une utilisation d'un jeton et retourne l'URL signée du PDF.
// L'URL est résolue avant l'incrément : si l'asset n'est pas livrable, aucune
// utilisation n'est consommée. Le Download est retourné même en erreur quand
// il est connu, pour que la couche HTTP puisse détailler (expiration, compteurs).
func (s *Service) Redeem(ctx context.Context, token, ip, userAgent string) (string, *models.Download, error) {
	d, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			log.Printf("⚠️  Tentative avec jeton invalide: %s... (ip=%s, ua=%s)", truncate(token, 10), ip, userAgent)
			return "", nil, apperr.New(apperr.KindNotFound, "Lien de téléchargement introuvable")
		}
		return "", nil, err
	}

	now := time.Now().UTC()
	if now.After(d.ExpiresAt) {
		log.Printf("⚠️  Lien expiré utilisé: %s... (expiré le %s, ip=%s)",
			truncate(token, 10), d.ExpiresAt.Format(time.RFC3339), ip)
		return "", d, apperr.New(apperr.KindExpired, "Le lien de téléchargement a expiré")
	}
	if d.DownloadCount >= d.MaxDownloads {
		log.Printf("⚠️  Limite de téléchargements atteinte: %s... (%d/%d, ip=%s)",
			truncate(token, 10), d.DownloadCount, d.MaxDownloads, ip)
		return "", d, apperr.New(apperr.KindLimitReached, "Limite de téléchargements atteinte")
	}

	ebook, err := s.ebooks.GetByID(ctx, d.EbookID)
	if err != nil {
		return "", d, err
	}
	if ebook.PDFObjectKey == "" {
		return "", d, apperr.New(apperr.KindNotConfigured, "Aucun PDF configuré pour cet e-book")
	}

	url, err := s.assets.PresignedDownloadURL(ctx, ebook.PDFObjectKey, ebook.Slug+".pdf")
	if err != nil {
		return "", d, fmt.Errorf("résolution URL signée: %w", err)
	}

	// Incrément conditionnel : sous concurrence, une seule des consommations
	// simultanées passe pour une valeur de compteur donnée.
	for attempt := 0; attempt < 3; attempt++ {
		applied, err := s.repo.IncrementCount(ctx, token, d.DownloadCount)
		if err != nil {
			return "", d, err
		}
		if applied {
			d.DownloadCount++
			log.Printf("📥 Téléchargement servi : %s (%d/%d)", ebook.Title, d.DownloadCount, d.MaxDownloads)
			return url, d, nil
		}

		// Course perdue : relire et revérifier la limite
		d, err = s.repo.GetByToken(ctx, token)
		if err != nil {
			return "", nil, err
		}
		if d.DownloadCount >= d.MaxDownloads {
			return "", d, apperr.New(apperr.KindLimitReached, "Limite de téléchargements atteinte")
		}
	}
	return "", d, apperr.New(apperr.KindIntegrity, "Impossible de consommer le jeton, réessayez")
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("génération jeton: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

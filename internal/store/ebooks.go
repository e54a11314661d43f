package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// EbookStore persiste le catalogue dans le keyspace catalog.
type EbookStore struct {
	session *gocql.Session
}

func NewEbookStore(session *gocql.Session) *EbookStore {
	return &EbookStore{session: session}
}

const ebookColumns = `ebook_id, slug, title, subtitle, category, short_description, long_description,
	sales_short_description, price_display, currency, stripe_price_id, cover_url, hero_image_url,
	pdf_object_key, is_active, created_at, updated_at`

func scanEbook(scan func(...interface{}) error) (*models.Ebook, error) {
	var e models.Ebook
	err := scan(&e.ID, &e.Slug, &e.Title, &e.Subtitle, &e.Category, &e.ShortDescription,
		&e.LongDescription, &e.SalesShortDescription, &e.PriceDisplay, &e.Currency,
		&e.StripePriceID, &e.CoverURL, &e.HeroImageURL, &e.PDFObjectKey, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EbookStore) GetByID(ctx context.Context, ebookID string) (*models.Ebook, error) {
	q := s.session.Query(`SELECT `+ebookColumns+` FROM ebooks WHERE ebook_id = ?`, ebookID).WithContext(ctx)
	return scanEbook(q.Scan)
}

func (s *EbookStore) GetBySlug(ctx context.Context, slug string) (*models.Ebook, error) {
	var ebookID string
	err := s.session.Query(`SELECT ebook_id FROM ebooks_by_slug WHERE slug = ?`, slug).
		WithContext(ctx).Scan(&ebookID)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, ebookID)
}

// Create réserve d'abord le slug en LWT.
func (s *EbookStore) Create(ctx context.Context, e *models.Ebook) error {
	applied, err := s.session.Query(
		`INSERT INTO ebooks_by_slug (slug, ebook_id) VALUES (?, ?) IF NOT EXISTS`,
		e.Slug, e.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("slug %s déjà utilisé", e.Slug)
	}
	return s.session.Query(
		`INSERT INTO ebooks (`+ebookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Slug, e.Title, e.Subtitle, e.Category, e.ShortDescription, e.LongDescription,
		e.SalesShortDescription, e.PriceDisplay, e.Currency, e.StripePriceID, e.CoverURL,
		e.HeroImageURL, e.PDFObjectKey, e.IsActive, e.CreatedAt, e.UpdatedAt).
		WithContext(ctx).Exec()
}

func (s *EbookStore) Update(ctx context.Context, e *models.Ebook) error {
	e.UpdatedAt = time.Now().UTC()
	return s.session.Query(
		`UPDATE ebooks SET title = ?, subtitle = ?, category = ?, short_description = ?,
		 long_description = ?, sales_short_description = ?, price_display = ?, currency = ?,
		 stripe_price_id = ?, cover_url = ?, hero_image_url = ?, pdf_object_key = ?,
		 is_active = ?, updated_at = ? WHERE ebook_id = ?`,
		e.Title, e.Subtitle, e.Category, e.ShortDescription, e.LongDescription,
		e.SalesShortDescription, e.PriceDisplay, e.Currency, e.StripePriceID, e.CoverURL,
		e.HeroImageURL, e.PDFObjectKey, e.IsActive, e.UpdatedAt, e.ID).
		WithContext(ctx).Exec()
}

// Deactivate désactive la fiche au lieu de la supprimer (les commandes la référencent).
func (s *EbookStore) Deactivate(ctx context.Context, ebookID string) error {
	return s.session.Query(
		`UPDATE ebooks SET is_active = false, updated_at = ? WHERE ebook_id = ?`,
		time.Now().UTC(), ebookID).WithContext(ctx).Exec()
}

// List retourne le catalogue, actifs seulement si activeOnly, plus récents d'abord.
func (s *EbookStore) List(ctx context.Context, activeOnly bool) ([]*models.Ebook, error) {
	iter := s.session.Query(`SELECT ` + ebookColumns + ` FROM ebooks`).WithContext(ctx).Iter()

	var ebooks []*models.Ebook
	for {
		e := &models.Ebook{}
		if !iter.Scan(&e.ID, &e.Slug, &e.Title, &e.Subtitle, &e.Category, &e.ShortDescription,
			&e.LongDescription, &e.SalesShortDescription, &e.PriceDisplay, &e.Currency,
			&e.StripePriceID, &e.CoverURL, &e.HeroImageURL, &e.PDFObjectKey, &e.IsActive,
			&e.CreatedAt, &e.UpdatedAt) {
			break
		}
		if activeOnly && !e.IsActive {
			continue
		}
		ebooks = append(ebooks, e)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Slice(ebooks, func(i, j int) bool { return ebooks[i].CreatedAt.After(ebooks[j].CreatedAt) })
	return ebooks, nil
}

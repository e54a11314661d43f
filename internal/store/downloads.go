package store

import (
	"context"
	"errors"
	"time"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// DownloadStore persiste les liens de téléchargement. Le jeton est la clé de
// partition de `downloads` (c'est la clé de consommation) ; `downloads_by_order`
// permet de retrouver le lien actif d'une commande.
type DownloadStore struct {
	session *gocql.Session
}

func NewDownloadStore(session *gocql.Session) *DownloadStore {
	return &DownloadStore{session: session}
}

const downloadColumns = `download_token, download_id, order_id, ebook_id, expires_at, download_count, max_downloads, created_at`

func (s *DownloadStore) GetByToken(ctx context.Context, token string) (*models.Download, error) {
	var d models.Download
	err := s.session.Query(`SELECT `+downloadColumns+` FROM downloads WHERE download_token = ?`,
		token).WithContext(ctx).
		Scan(&d.Token, &d.ID, &d.OrderID, &d.EbookID, &d.ExpiresAt, &d.DownloadCount, &d.MaxDownloads, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetActiveByOrder retourne le lien non expiré le plus récent d'une commande,
// ou gocql.ErrNotFound s'il n'y en a pas.
func (s *DownloadStore) GetActiveByOrder(ctx context.Context, orderID string, now time.Time) (*models.Download, error) {
	iter := s.session.Query(`SELECT download_token, expires_at FROM downloads_by_order WHERE order_id = ?`,
		orderID).WithContext(ctx).Iter()

	var token, bestToken string
	var expiresAt, bestExpiry time.Time
	for iter.Scan(&token, &expiresAt) {
		if expiresAt.After(now) && expiresAt.After(bestExpiry) {
			bestToken, bestExpiry = token, expiresAt
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if bestToken == "" {
		return nil, gocql.ErrNotFound
	}
	return s.GetByToken(ctx, bestToken)
}

// Create insère le lien et son index par commande.
func (s *DownloadStore) Create(ctx context.Context, d *models.Download) error {
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO downloads (`+downloadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Token, d.ID, d.OrderID, d.EbookID, d.ExpiresAt, d.DownloadCount, d.MaxDownloads, d.CreatedAt)
	batch.Query(`INSERT INTO downloads_by_order (order_id, created_at, download_token, expires_at) VALUES (?, ?, ?, ?)`,
		d.OrderID, d.CreatedAt, d.Token, d.ExpiresAt)
	return s.session.ExecuteBatch(batch)
}

// IncrementCount consomme une utilisation du jeton, conditionnellement à la
// valeur lue (CAS). Deux consommations simultanées du même jeton se
// sérialisent ici : une seule voit applied=true pour une valeur donnée.
func (s *DownloadStore) IncrementCount(ctx context.Context, token string, expected int) (bool, error) {
	applied, err := s.session.Query(
		`UPDATE downloads SET download_count = ? WHERE download_token = ? IF download_count = ?`,
		expected+1, token, expected).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return false, err
	}
	return applied, nil
}

package models

import "time"

// Download est un droit d'accès émis pour une commande payée : jeton opaque,
// limité dans le temps et en nombre d'utilisations. Jamais supprimé, il
// expire logiquement.
type Download struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	EbookID       string    `json:"ebookId"`
	Token         string    `json:"downloadToken"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DownloadCount int       `json:"downloadCount"`
	MaxDownloads  int       `json:"maxDownloads"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Active indique si le lien est encore utilisable dans le temps (le compteur
// est vérifié séparément à la consommation).
func (d *Download) Active(now time.Time) bool {
	return now.Before(d.ExpiresAt)
}

// Remaining retourne le nombre de téléchargements restants.
func (d *Download) Remaining() int {
	r := d.MaxDownloads - d.DownloadCount
	if r < 0 {
		return 0
	}
	return r
}

package models

import "time"

// Ebook est une fiche produit du catalogue. PDFObjectKey pointe vers l'objet
// MinIO ; vide tant que l'asset n'est pas configuré.
type Ebook struct {
	ID                    string    `json:"id"`
	Slug                  string    `json:"slug"`
	Title                 string    `json:"title"`
	Subtitle              string    `json:"subtitle,omitempty"`
	Category              string    `json:"category"`
	ShortDescription      string    `json:"shortDescription"`
	LongDescription       string    `json:"longDescription,omitempty"`
	SalesShortDescription string    `json:"salesShortDescription,omitempty"`
	PriceDisplay          float64   `json:"priceDisplay"`
	Currency              string    `json:"currency"`
	StripePriceID         string    `json:"stripePriceId,omitempty"`
	CoverURL              string    `json:"coverUrl,omitempty"`
	HeroImageURL          string    `json:"heroImageUrl,omitempty"`
	PDFObjectKey          string    `json:"pdfObjectKey,omitempty"`
	IsActive              bool      `json:"isActive"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

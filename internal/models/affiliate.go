package models

import "time"

// Statuts d'un affilié.
const (
	AffiliateActive   = "active"
	AffiliateInactive = "inactive"
)

// Affiliate est un partenaire de parrainage. Le code est stocké en majuscules
// et sert de clé de résolution au moment de la création de commande.
type Affiliate struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Code              string    `json:"code"`
	CommissionPercent float64   `json:"commissionPercent"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AffiliatePayout est un versement groupé : une ligne par règlement, immuable
// une fois créée.
type AffiliatePayout struct {
	ID          string    `json:"id"`
	AffiliateID string    `json:"affiliateId"`
	TotalAmount float64   `json:"totalAmount"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Notes       string    `json:"notes,omitempty"`
	OrderCount  int       `json:"orderCount"`
	PaidAt      time.Time `json:"paidAt"`
}

package models

import "time"

// Statuts d'une commande.
const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderFailed   = "failed"
	OrderRefunded = "refunded"
)

// Statuts de commission d'affilié.
const (
	CommissionPending = "pending"
	CommissionPaid    = "paid"
)

// Order représente une tentative d'achat. La session de checkout Stripe est
// la clé d'idempotence : au plus une commande par session_id.
type Order struct {
	ID                      string     `json:"id"`
	Email                   string     `json:"email"`
	EbookID                 string     `json:"ebookId"`
	Amount                  float64    `json:"amount"`
	Currency                string     `json:"currency"`
	Status                  string     `json:"status"`
	StripePaymentIntentID   string     `json:"stripePaymentIntentId,omitempty"`
	StripeCheckoutSessionID string     `json:"stripeCheckoutSessionId"`
	AffiliateCode           string     `json:"affiliateCode,omitempty"`
	AffiliateID             string     `json:"affiliateId,omitempty"`
	CommissionAmount        float64    `json:"affiliateCommissionAmount,omitempty"`
	CommissionStatus        string     `json:"affiliateCommissionStatus,omitempty"`
	CommissionPaidAt        *time.Time `json:"affiliateCommissionPaidAt,omitempty"`
	PayoutID                string     `json:"affiliatePayoutId,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

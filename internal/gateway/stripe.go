package gateway

import (
	"fmt"

	"livrel_back_end/internal/config"
	"livrel_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeGateway enveloppe les deux seuls appels Stripe du serveur : création
// de session de checkout et vérification de signature des webhooks.
type StripeGateway struct {
	cfg *config.Config
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	stripe.Key = cfg.StripeSecretKey
	return &StripeGateway{cfg: cfg}
}

// CheckoutSession est la réponse renvoyée au front pour redirection.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession crée la session Stripe d'un achat d'e-book. Les
// métadonnées portent tout ce dont le webhook aura besoin pour reconstruire
// la commande, y compris le code d'affilié tel que soumis.
func (g *StripeGateway) CreateCheckoutSession(email string, ebook *models.Ebook, affiliateCode string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:      stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(ebook.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.cfg.FrontendURL + "/merci?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.cfg.FrontendURL + "/annule"),
		Locale:     stripe.String(g.cfg.CheckoutLocale),
	}
	params.AddMetadata("ebookId", ebook.ID)
	params.AddMetadata("ebookSlug", ebook.Slug)
	params.AddMetadata("ebookTitle", ebook.Title)
	params.AddMetadata("buyerEmail", email)
	params.AddMetadata("affiliateCode", affiliateCode)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("création session checkout: %w", err)
	}
	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyWebhook vérifie la signature d'un webhook entrant. Aucun événement
// non vérifié ne doit atteindre le réconciliateur.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if g.cfg.StripeWebhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET non configuré")
	}
	return webhook.ConstructEvent(payload, sigHeader, g.cfg.StripeWebhookSecret)
}

package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"livrel_back_end/internal/affiliates"
	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
)

// OrderRepo expose les opérations de persistance dont la réconciliation a besoin.
type OrderRepo interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	CreateFromSession(ctx context.Context, o *models.Order) (bool, *models.Order, error)
	SyncFromSession(ctx context.Context, existing *models.Order, status, intentID string) error
	MarkPaidByIntent(ctx context.Context, intentID string) (*models.Order, bool, error)
	MarkFailedByIntent(ctx context.Context, intentID string) (*models.Order, bool, error)
}

// AttributionResolver fige la commission d'affilié à la création de commande.
type AttributionResolver interface {
	Resolve(ctx context.Context, rawCode string, gross float64) *affiliates.Attribution
}

// Fulfiller déclenche les effets de fin de commande (lien + e-mail).
type Fulfiller interface {
	SendDownloadEmail(ctx context.Context, order *models.Order, strict bool) (*models.Download, error)
}

// Reconciler transforme les événements Stripe vérifiés — livrés au moins une
// fois, possiblement dans le désordre — en effets métier exactement-une-fois.
// Les clés d'idempotence (session id, payment_intent id) sont la seule défense
// d'ordonnancement : chaque chemin doit être sûr sous relivraison arbitraire.
type Reconciler struct {
	repo      OrderRepo
	resolver  AttributionResolver
	fulfiller Fulfiller
}

func NewReconciler(repo OrderRepo, resolver AttributionResolver, fulfiller Fulfiller) *Reconciler {
	return &Reconciler{repo: repo, resolver: resolver, fulfiller: fulfiller}
}

// HandleEvent traite un événement déjà vérifié (la signature est contrôlée à
// la frontière HTTP, jamais ici). Une erreur retournée signifie « échec de
// traitement, Stripe doit relivrer » ; les événements inexploitables sont
// loggés et acquittés sans effet.
func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) error {
	log.Printf("📥 Événement Stripe reçu : %s", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		return r.handleCheckoutSessionCompleted(ctx, event)
	case "payment_intent.succeeded":
		return r.handlePaymentIntentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		return r.handlePaymentIntentFailed(ctx, event)
	default:
		log.Printf("ℹ️  Événement ignoré : %s", event.Type)
		return nil
	}
}

func (r *Reconciler) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		log.Println("❌ Erreur décodage CheckoutSession:", err)
		return nil
	}

	ebookID := sess.Metadata["ebookId"]
	if ebookID == "" {
		// Sans produit, l'événement est inexploitable : on acquitte sans effet
		log.Printf("❌ Pas d'ebookId dans les métadonnées de la session %s", sess.ID)
		return nil
	}

	buyerEmail := sess.Metadata["buyerEmail"]
	if buyerEmail == "" {
		buyerEmail = sess.CustomerEmail
	}

	amount := float64(sess.AmountTotal) / 100
	currency := strings.ToUpper(string(sess.Currency))
	if currency == "" {
		currency = "EUR"
	}

	status := models.OrderPending
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = models.OrderPaid
	}

	var intentID string
	if sess.PaymentIntent != nil {
		intentID = sess.PaymentIntent.ID
	}

	// Idempotence : au plus une commande par session de checkout. En cas de
	// relivraison, seuls les champs mutables sont synchronisés, aucun effet
	// aval n'est rejoué.
	existing, err := r.repo.GetBySessionID(ctx, sess.ID)
	if err == nil {
		log.Printf("🔁 Commande déjà enregistrée pour la session %s, mise à jour du statut", sess.ID)
		return r.repo.SyncFromSession(ctx, existing, status, intentID)
	}
	if !errors.Is(err, gocql.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                      uuid.NewString(),
		Email:                   buyerEmail,
		EbookID:                 ebookID,
		Amount:                  amount,
		Currency:                currency,
		Status:                  status,
		StripePaymentIntentID:   intentID,
		StripeCheckoutSessionID: sess.ID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	// La résolution d'affilié n'a lieu qu'à la création, jamais rétroactivement
	if attribution := r.resolver.Resolve(ctx, sess.Metadata["affiliateCode"], amount); attribution != nil {
		order.AffiliateCode = attribution.Code
		order.AffiliateID = attribution.AffiliateID
		order.CommissionAmount = attribution.CommissionAmount
		order.CommissionStatus = attribution.CommissionStatus
	}

	created, result, err := r.repo.CreateFromSession(ctx, order)
	if err != nil {
		return err
	}
	if !created {
		// Course perdue contre une livraison concurrente du même webhook
		log.Printf("🔁 Création concurrente détectée pour la session %s", sess.ID)
		return r.repo.SyncFromSession(ctx, result, status, intentID)
	}

	log.Printf("✅ Commande créée : %s (%s, %.2f %s, statut %s)",
		order.ID, order.Email, order.Amount, order.Currency, order.Status)

	if order.Status == models.OrderPaid {
		r.fulfill(ctx, order)
	}
	return nil
}

func (r *Reconciler) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return nil
	}

	order, transitioned, err := r.repo.MarkPaidByIntent(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			// Livraison dans le désordre : checkout.session.completed suivra
			log.Printf("ℹ️  Aucune commande pour le payment_intent %s", pi.ID)
			return nil
		}
		return err
	}

	if transitioned {
		log.Printf("✅ Commande %s passée à paid", order.ID)
		r.fulfill(ctx, order)
	} else {
		log.Printf("🔁 Commande %s déjà au statut %s, rien à faire", order.ID, order.Status)
	}
	return nil
}

func (r *Reconciler) handlePaymentIntentFailed(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return nil
	}

	order, transitioned, err := r.repo.MarkFailedByIntent(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			log.Printf("ℹ️  Aucune commande pour le payment_intent %s", pi.ID)
			return nil
		}
		return err
	}
	if transitioned {
		log.Printf("✅ Commande %s passée à failed", order.ID)
	}
	return nil
}

// fulfill déclenche les effets de queue d'une transition vers paid. La
// commande est déjà persistée : un échec ici est loggé, jamais remonté — le
// renvoi manuel depuis le back-office sert de rattrapage.
func (r *Reconciler) fulfill(ctx context.Context, order *models.Order) {
	if _, err := r.fulfiller.SendDownloadEmail(ctx, order, false); err != nil {
		log.Printf("❌ Échec fulfillment commande %s: %v (rattrapable via renvoi manuel)", order.ID, err)
	}
}

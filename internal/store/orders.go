package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// OrderStore persiste les commandes dans le keyspace commerce.
//
// Trois tables : `orders` (partition par order_id, source de vérité),
// `orders_by_session` (clé d'idempotence, LWT IF NOT EXISTS) et
// `orders_by_intent` (résolution payment_intent → order_id). Même schéma
// en double-table que users/users_by_email.
type OrderStore struct {
	session *gocql.Session
}

func NewOrderStore(session *gocql.Session) *OrderStore {
	return &OrderStore{session: session}
}

const orderColumns = `order_id, email, ebook_id, amount, currency, status,
	payment_intent_id, checkout_session_id, affiliate_code, affiliate_id,
	commission_amount, commission_status, commission_paid_at, payout_id,
	created_at, updated_at`

func scanOrder(scan func(...interface{}) error) (*models.Order, error) {
	var o models.Order
	var commissionPaidAt time.Time
	err := scan(&o.ID, &o.Email, &o.EbookID, &o.Amount, &o.Currency, &o.Status,
		&o.StripePaymentIntentID, &o.StripeCheckoutSessionID, &o.AffiliateCode,
		&o.AffiliateID, &o.CommissionAmount, &o.CommissionStatus,
		&commissionPaidAt, &o.PayoutID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if !commissionPaidAt.IsZero() {
		o.CommissionPaidAt = &commissionPaidAt
	}
	return &o, nil
}

// GetByID retourne une commande, ou gocql.ErrNotFound.
func (s *OrderStore) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	q := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID).WithContext(ctx)
	return scanOrder(q.Scan)
}

// GetBySessionID résout une commande par session de checkout Stripe.
func (s *OrderStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var orderID string
	err := s.session.Query(`SELECT order_id FROM orders_by_session WHERE checkout_session_id = ?`,
		sessionID).WithContext(ctx).Scan(&orderID)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// GetByPaymentIntentID résout une commande par payment_intent Stripe.
func (s *OrderStore) GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	var orderID string
	err := s.session.Query(`SELECT order_id FROM orders_by_intent WHERE payment_intent_id = ?`,
		intentID).WithContext(ctx).Scan(&orderID)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// CreateFromSession tente de créer la commande pour une session de checkout.
// La ligne orders_by_session est posée en LWT : deux livraisons concurrentes
// du même webhook ne produisent jamais deux commandes. Retourne
// (created=false, existante) si la session est déjà enregistrée.
func (s *OrderStore) CreateFromSession(ctx context.Context, o *models.Order) (bool, *models.Order, error) {
	applied, err := s.session.Query(
		`INSERT INTO orders_by_session (checkout_session_id, order_id) VALUES (?, ?) IF NOT EXISTS`,
		o.StripeCheckoutSessionID, o.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, nil, fmt.Errorf("réservation session %s: %w", o.StripeCheckoutSessionID, err)
	}

	if !applied {
		// Perdu la course (ou relivraison) : la commande existe déjà.
		existing, err := s.GetBySessionID(ctx, o.StripeCheckoutSessionID)
		if err != nil {
			return false, nil, err
		}
		return false, existing, nil
	}

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Email, o.EbookID, o.Amount, o.Currency, o.Status,
		o.StripePaymentIntentID, o.StripeCheckoutSessionID, o.AffiliateCode, o.AffiliateID,
		o.CommissionAmount, o.CommissionStatus, timeOrZero(o.CommissionPaidAt), o.PayoutID,
		o.CreatedAt, o.UpdatedAt)
	if o.StripePaymentIntentID != "" {
		batch.Query(`INSERT INTO orders_by_intent (payment_intent_id, order_id) VALUES (?, ?)`,
			o.StripePaymentIntentID, o.ID)
	}
	if o.AffiliateID != "" {
		batch.Query(`INSERT INTO orders_by_affiliate (affiliate_id, created_at, order_id) VALUES (?, ?, ?)`,
			o.AffiliateID, o.CreatedAt, o.ID)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return false, nil, fmt.Errorf("insertion commande %s: %w", o.ID, err)
	}
	return true, o, nil
}

// SyncFromSession met à jour les seuls champs mutables d'une commande déjà
// connue (relivraison de checkout.session.completed) : statut et
// payment_intent. Aucun autre effet.
func (s *OrderStore) SyncFromSession(ctx context.Context, existing *models.Order, status, intentID string) error {
	if intentID == "" {
		intentID = existing.StripePaymentIntentID
	}
	err := s.session.Query(
		`UPDATE orders SET status = ?, payment_intent_id = ?, updated_at = ? WHERE order_id = ?`,
		status, intentID, time.Now().UTC(), existing.ID).WithContext(ctx).Exec()
	if err != nil {
		return err
	}
	if intentID != "" && intentID != existing.StripePaymentIntentID {
		return s.session.Query(`INSERT INTO orders_by_intent (payment_intent_id, order_id) VALUES (?, ?)`,
			intentID, existing.ID).WithContext(ctx).Exec()
	}
	return nil
}

// markByIntent applique une transition conditionnelle pending → target.
// Le LWT garantit l'idempotence : si le statut n'est plus pending, rien ne
// change et transitioned=false.
func (s *OrderStore) markByIntent(ctx context.Context, intentID, target string) (*models.Order, bool, error) {
	order, err := s.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil, false, err
	}

	var prev string
	applied, err := s.session.Query(
		`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		target, time.Now().UTC(), order.ID, models.OrderPending).WithContext(ctx).ScanCAS(&prev)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return nil, false, err
	}
	if applied {
		order.Status = target
	}
	return order, applied, nil
}

// MarkPaidByIntent passe la commande à paid ; transitioned indique si la
// transition a réellement eu lieu (les effets de bord n'en dépendent qu'une fois).
func (s *OrderStore) MarkPaidByIntent(ctx context.Context, intentID string) (*models.Order, bool, error) {
	return s.markByIntent(ctx, intentID, models.OrderPaid)
}

// MarkFailedByIntent passe la commande à failed, même forme d'idempotence.
func (s *OrderStore) MarkFailedByIntent(ctx context.Context, intentID string) (*models.Order, bool, error) {
	return s.markByIntent(ctx, intentID, models.OrderFailed)
}

// ListAll retourne toutes les commandes, les plus récentes d'abord (back-office).
func (s *OrderStore) ListAll(ctx context.Context) ([]*models.Order, error) {
	iter := s.session.Query(`SELECT ` + orderColumns + ` FROM orders`).WithContext(ctx).Iter()
	orders, err := collectOrders(iter)
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// ListByAffiliate retourne les commandes attribuées à un affilié, plus
// anciennes d'abord (ordre des périodes de versement).
func (s *OrderStore) ListByAffiliate(ctx context.Context, affiliateID string) ([]*models.Order, error) {
	iter := s.session.Query(`SELECT order_id FROM orders_by_affiliate WHERE affiliate_id = ?`,
		affiliateID).WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(ids))
	for _, orderID := range ids {
		o, err := s.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

// PayCommissionIfPending stampille la commission d'une commande comme versée.
// Conditionnel sur (commission pending ET commande payée) : un règlement
// concurrent qui perd la course n'applique rien.
func (s *OrderStore) PayCommissionIfPending(ctx context.Context, orderID, payoutID string, paidAt time.Time) (bool, error) {
	applied, err := s.session.Query(
		`UPDATE orders SET commission_status = ?, commission_paid_at = ?, payout_id = ?, updated_at = ?
		 WHERE order_id = ? IF commission_status = ? AND status = ?`,
		models.CommissionPaid, paidAt, payoutID, paidAt,
		orderID, models.CommissionPending, models.OrderPaid).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return false, err
	}
	return applied, nil
}

func collectOrders(iter *gocql.Iter) ([]*models.Order, error) {
	var orders []*models.Order
	for {
		o := &models.Order{}
		var commissionPaidAt time.Time
		if !iter.Scan(&o.ID, &o.Email, &o.EbookID, &o.Amount, &o.Currency, &o.Status,
			&o.StripePaymentIntentID, &o.StripeCheckoutSessionID, &o.AffiliateCode,
			&o.AffiliateID, &o.CommissionAmount, &o.CommissionStatus,
			&commissionPaidAt, &o.PayoutID, &o.CreatedAt, &o.UpdatedAt) {
			break
		}
		if !commissionPaidAt.IsZero() {
			paidAt := commissionPaidAt
			o.CommissionPaidAt = &paidAt
		}
		orders = append(orders, o)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

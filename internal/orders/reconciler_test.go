package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"livrel_back_end/internal/affiliates"
	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
)

type fakeOrderRepo struct {
	bySession map[string]*models.Order
	byIntent  map[string]*models.Order
	syncCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		bySession: make(map[string]*models.Order),
		byIntent:  make(map[string]*models.Order),
	}
}

func (r *fakeOrderRepo) GetBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	if o, ok := r.bySession[sessionID]; ok {
		return o, nil
	}
	return nil, gocql.ErrNotFound
}

func (r *fakeOrderRepo) CreateFromSession(_ context.Context, o *models.Order) (bool, *models.Order, error) {
	if existing, ok := r.bySession[o.StripeCheckoutSessionID]; ok {
		return false, existing, nil
	}
	r.bySession[o.StripeCheckoutSessionID] = o
	if o.StripePaymentIntentID != "" {
		r.byIntent[o.StripePaymentIntentID] = o
	}
	return true, o, nil
}

func (r *fakeOrderRepo) SyncFromSession(_ context.Context, existing *models.Order, status, intentID string) error {
	r.syncCalls++
	existing.Status = status
	if intentID != "" {
		existing.StripePaymentIntentID = intentID
		r.byIntent[intentID] = existing
	}
	return nil
}

func (r *fakeOrderRepo) markByIntent(intentID, target string) (*models.Order, bool, error) {
	o, ok := r.byIntent[intentID]
	if !ok {
		return nil, false, gocql.ErrNotFound
	}
	if o.Status != models.OrderPending {
		return o, false, nil
	}
	o.Status = target
	return o, true, nil
}

func (r *fakeOrderRepo) MarkPaidByIntent(_ context.Context, intentID string) (*models.Order, bool, error) {
	return r.markByIntent(intentID, models.OrderPaid)
}

func (r *fakeOrderRepo) MarkFailedByIntent(_ context.Context, intentID string) (*models.Order, bool, error) {
	return r.markByIntent(intentID, models.OrderFailed)
}

type fakeResolver struct {
	attributions map[string]*affiliates.Attribution
}

func (f *fakeResolver) Resolve(_ context.Context, rawCode string, gross float64) *affiliates.Attribution {
	a, ok := f.attributions[rawCode]
	if !ok {
		return nil
	}
	out := *a
	out.CommissionAmount = gross * (a.CommissionAmount / 100)
	return &out
}

type fakeFulfiller struct {
	calls []string
	err   error
}

func (f *fakeFulfiller) SendDownloadEmail(_ context.Context, order *models.Order, _ bool) (*models.Download, error) {
	f.calls = append(f.calls, order.ID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Download{OrderID: order.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func checkoutEvent(t *testing.T, payload map[string]interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return stripe.Event{Type: "checkout.session.completed", Data: &stripe.EventData{Raw: raw}}
}

func intentEvent(t *testing.T, eventType, intentID string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"id": intentID})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return stripe.Event{Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: raw}}
}

func TestCheckoutSessionCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("PaidSessionCreatesOrderAndFulfills", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{}
		resolver := &fakeResolver{attributions: map[string]*affiliates.Attribution{
			"PARTNER10": {AffiliateID: "aff-1", Code: "PARTNER10", CommissionAmount: 10, CommissionStatus: models.CommissionPending},
		}}
		rec := NewReconciler(repo, resolver, fulfiller)

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_1",
			"amount_total":   4997,
			"currency":       "brl",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"customer_email": "client@example.com",
			"metadata": map[string]string{
				"ebookId":       "ebook-1",
				"buyerEmail":    "client@example.com",
				"affiliateCode": "PARTNER10",
			},
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}

		order, ok := repo.bySession["cs_test_1"]
		if !ok {
			t.Fatal("commande non créée pour cs_test_1")
		}
		if order.Amount != 49.97 {
			t.Errorf("montant attendu 49.97, obtenu %v", order.Amount)
		}
		if order.Currency != "BRL" {
			t.Errorf("devise attendue BRL, obtenue %s", order.Currency)
		}
		if order.Status != models.OrderPaid {
			t.Errorf("statut attendu paid, obtenu %s", order.Status)
		}
		if order.StripePaymentIntentID != "pi_1" {
			t.Errorf("payment_intent attendu pi_1, obtenu %s", order.StripePaymentIntentID)
		}
		if order.AffiliateID != "aff-1" || order.CommissionStatus != models.CommissionPending {
			t.Errorf("attribution affilié non posée: %+v", order)
		}
		if got, want := order.CommissionAmount, 49.97*0.10; got < want-0.001 || got > want+0.001 {
			t.Errorf("commission attendue %.4f, obtenue %.4f", want, got)
		}
		if len(fulfiller.calls) != 1 {
			t.Errorf("fulfillment attendu exactement 1 fois, obtenu %d", len(fulfiller.calls))
		}
	})

	t.Run("UnpaidSessionCreatesPendingWithoutFulfillment", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{}
		rec := NewReconciler(repo, &fakeResolver{}, fulfiller)

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_2",
			"amount_total":   1500,
			"currency":       "eur",
			"payment_status": "unpaid",
			"metadata":       map[string]string{"ebookId": "ebook-1", "buyerEmail": "a@b.fr"},
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}

		order := repo.bySession["cs_test_2"]
		if order.Status != models.OrderPending {
			t.Errorf("statut attendu pending, obtenu %s", order.Status)
		}
		if len(fulfiller.calls) != 0 {
			t.Errorf("aucun fulfillment attendu pour une commande pending, obtenu %d", len(fulfiller.calls))
		}
	})

	t.Run("RedeliveryIsIdempotent", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{}
		rec := NewReconciler(repo, &fakeResolver{}, fulfiller)

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_3",
			"amount_total":   2000,
			"currency":       "eur",
			"payment_status": "paid",
			"metadata":       map[string]string{"ebookId": "ebook-1", "buyerEmail": "a@b.fr"},
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("première livraison: %v", err)
		}
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("relivraison: %v", err)
		}

		if len(repo.bySession) != 1 {
			t.Errorf("une seule commande attendue, obtenu %d", len(repo.bySession))
		}
		if repo.syncCalls != 1 {
			t.Errorf("la relivraison doit synchroniser, syncCalls=%d", repo.syncCalls)
		}
		if len(fulfiller.calls) != 1 {
			t.Errorf("le fulfillment ne doit pas être rejoué, obtenu %d appels", len(fulfiller.calls))
		}
	})

	t.Run("MissingEbookIDIsAckedWithoutOrder", func(t *testing.T) {
		repo := newFakeOrderRepo()
		rec := NewReconciler(repo, &fakeResolver{}, &fakeFulfiller{})

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_4",
			"amount_total":   2000,
			"currency":       "eur",
			"payment_status": "paid",
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("l'événement inexploitable doit être acquitté: %v", err)
		}
		if len(repo.bySession) != 0 {
			t.Error("aucune commande ne doit être créée sans ebookId")
		}
	})

	t.Run("BuyerEmailFallsBackToCustomerEmail", func(t *testing.T) {
		repo := newFakeOrderRepo()
		rec := NewReconciler(repo, &fakeResolver{}, &fakeFulfiller{})

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_5",
			"amount_total":   2000,
			"currency":       "eur",
			"payment_status": "paid",
			"customer_email": "fallback@example.com",
			"metadata":       map[string]string{"ebookId": "ebook-1"},
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		if got := repo.bySession["cs_test_5"].Email; got != "fallback@example.com" {
			t.Errorf("e-mail attendu fallback@example.com, obtenu %s", got)
		}
	})

	t.Run("FulfillmentFailureDoesNotFailEvent", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{err: errors.New("smtp indisponible")}
		rec := NewReconciler(repo, &fakeResolver{}, fulfiller)

		event := checkoutEvent(t, map[string]interface{}{
			"id":             "cs_test_6",
			"amount_total":   2000,
			"currency":       "eur",
			"payment_status": "paid",
			"metadata":       map[string]string{"ebookId": "ebook-1", "buyerEmail": "a@b.fr"},
		})
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("un échec d'e-mail ne doit pas faire échouer le webhook: %v", err)
		}
		if repo.bySession["cs_test_6"].Status != models.OrderPaid {
			t.Error("la commande doit rester paid malgré l'échec d'envoi")
		}
	})
}

func TestPaymentIntentEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("SucceededTransitionsPendingAndFulfillsOnce", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{}
		rec := NewReconciler(repo, &fakeResolver{}, fulfiller)

		order := &models.Order{ID: "order-1", Status: models.OrderPending, StripePaymentIntentID: "pi_10", StripeCheckoutSessionID: "cs_10"}
		repo.bySession["cs_10"] = order
		repo.byIntent["pi_10"] = order

		event := intentEvent(t, "payment_intent.succeeded", "pi_10")
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		if order.Status != models.OrderPaid {
			t.Errorf("statut attendu paid, obtenu %s", order.Status)
		}
		if len(fulfiller.calls) != 1 {
			t.Errorf("fulfillment attendu 1 fois, obtenu %d", len(fulfiller.calls))
		}

		// Relivraison : la transition est déjà faite, aucun effet rejoué
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("relivraison: %v", err)
		}
		if len(fulfiller.calls) != 1 {
			t.Errorf("le fulfillment ne doit pas être rejoué, obtenu %d appels", len(fulfiller.calls))
		}
	})

	t.Run("SucceededBeforeCheckoutIsAcked", func(t *testing.T) {
		repo := newFakeOrderRepo()
		rec := NewReconciler(repo, &fakeResolver{}, &fakeFulfiller{})

		// Livraison dans le désordre : l'intent arrive avant la session
		event := intentEvent(t, "payment_intent.succeeded", "pi_inconnu")
		if err := rec.HandleEvent(ctx, event); err != nil {
			t.Fatalf("un intent inconnu doit être acquitté: %v", err)
		}
	})

	t.Run("FailedMarksOrderFailed", func(t *testing.T) {
		repo := newFakeOrderRepo()
		fulfiller := &fakeFulfiller{}
		rec := NewReconciler(repo, &fakeResolver{}, fulfiller)

		order := &models.Order{ID: "order-2", Status: models.OrderPending, StripePaymentIntentID: "pi_20", StripeCheckoutSessionID: "cs_20"}
		repo.bySession["cs_20"] = order
		repo.byIntent["pi_20"] = order

		if err := rec.HandleEvent(ctx, intentEvent(t, "payment_intent.payment_failed", "pi_20")); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		if order.Status != models.OrderFailed {
			t.Errorf("statut attendu failed, obtenu %s", order.Status)
		}
		if len(fulfiller.calls) != 0 {
			t.Error("aucun fulfillment attendu pour un paiement échoué")
		}
	})

	t.Run("FailedAfterPaidDoesNotRegress", func(t *testing.T) {
		repo := newFakeOrderRepo()
		rec := NewReconciler(repo, &fakeResolver{}, &fakeFulfiller{})

		order := &models.Order{ID: "order-3", Status: models.OrderPaid, StripePaymentIntentID: "pi_30", StripeCheckoutSessionID: "cs_30"}
		repo.bySession["cs_30"] = order
		repo.byIntent["pi_30"] = order

		if err := rec.HandleEvent(ctx, intentEvent(t, "payment_intent.payment_failed", "pi_30")); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		if order.Status != models.OrderPaid {
			t.Errorf("une commande paid ne doit jamais régresser, statut obtenu %s", order.Status)
		}
	})
}

func TestUnknownEventIsIgnored(t *testing.T) {
	rec := NewReconciler(newFakeOrderRepo(), &fakeResolver{}, &fakeFulfiller{})
	event := stripe.Event{Type: "customer.created", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)}}
	if err := rec.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("un événement inconnu doit être acquitté: %v", err)
	}
}

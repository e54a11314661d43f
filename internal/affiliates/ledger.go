package affiliates

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Durée de vie du verrou de règlement. Largement au-dessus du temps d'un
// règlement normal ; expire tout seul si le serveur meurt en plein milieu.
const settlementLockTTL = 30 * time.Second

// AffiliateRepo expose ce dont le ledger a besoin du store d'affiliés.
type AffiliateRepo interface {
	GetByID(ctx context.Context, affiliateID string) (*models.Affiliate, error)
	GetByCode(ctx context.Context, code string) (*models.Affiliate, error)
}

// OrderCommissions expose les opérations commande côté commissions.
type OrderCommissions interface {
	ListByAffiliate(ctx context.Context, affiliateID string) ([]*models.Order, error)
	PayCommissionIfPending(ctx context.Context, orderID, payoutID string, paidAt time.Time) (bool, error)
}

// PayoutRepo persiste les versements.
type PayoutRepo interface {
	Create(ctx context.Context, p *models.AffiliatePayout) error
	List(ctx context.Context, affiliateID string) ([]*models.AffiliatePayout, error)
}

// SettlementLocker sérialise les règlements concurrents d'un même affilié.
// *redis.Client convient tel quel.
type SettlementLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Attribution est le résultat figé de la résolution d'un code au moment de la
// création de commande. Les champs sont posés ensemble ou pas du tout.
type Attribution struct {
	AffiliateID      string
	Code             string
	CommissionAmount float64
	CommissionStatus string
}

// Ledger résout les codes d'affiliés et règle les commissions en attente.
type Ledger struct {
	affiliates AffiliateRepo
	orders     OrderCommissions
	payouts    PayoutRepo
	locker     SettlementLocker
}

func NewLedger(affiliates AffiliateRepo, orders OrderCommissions, payouts PayoutRepo, locker SettlementLocker) *Ledger {
	return &Ledger{affiliates: affiliates, orders: orders, payouts: payouts, locker: locker}
}

// Resolve transforme un code brut en attribution. Appelé uniquement à la
// création de commande : la commission est calculée une fois sur le montant
// brut et figée — un changement ultérieur du pourcentage de l'affilié ne
// retouche jamais les commandes existantes. Code absent, inconnu ou affilié
// inactif → nil, ce n'est pas une erreur.
func (l *Ledger) Resolve(ctx context.Context, rawCode string, gross float64) *Attribution {
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return nil
	}

	affiliate, err := l.affiliates.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, gocql.ErrNotFound) {
			log.Printf("❌ Erreur résolution code affilié %s: %v", code, err)
		} else {
			log.Printf("⚠️  Code affilié inconnu: %s", code)
		}
		return nil
	}
	if affiliate.Status != models.AffiliateActive {
		log.Printf("⚠️  Affilié inactif, code ignoré: %s", code)
		return nil
	}

	commission := gross * (affiliate.CommissionPercent / 100)
	log.Printf("🔗 Affilié %s résolu : commission %.2f (%.0f%% de %.2f)",
		affiliate.Name, commission, affiliate.CommissionPercent, gross)

	return &Attribution{
		AffiliateID:      affiliate.ID,
		Code:             code,
		CommissionAmount: commission,
		CommissionStatus: models.CommissionPending,
	}
}

// SettlementResult porte ce que le back-office affiche après règlement.
type SettlementResult struct {
	Payout        *models.AffiliatePayout `json:"payout"`
	OrdersUpdated int                     `json:"ordersUpdated"`
	TotalAmount   float64                 `json:"totalAmount"`
}

// PayPendingCommissions règle en un lot toutes les commissions en attente
// d'un affilié (commandes payées uniquement). Le verrou Redis sérialise les
// règlements concurrents ; chaque commande est ensuite basculée par CAS, donc
// même un règlement qui passerait le verrou ne peut rien payer deux fois.
func (l *Ledger) PayPendingCommissions(ctx context.Context, affiliateID, notes string) (*SettlementResult, error) {
	affiliate, err := l.affiliates.GetByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Affilié introuvable")
		}
		return nil, err
	}

	lockKey := "payout_lock:" + affiliateID
	locked, err := l.locker.SetNX(ctx, lockKey, "1", settlementLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, apperr.New(apperr.KindPrecondition, "Un règlement est déjà en cours pour cet affilié")
	}
	defer l.locker.Del(ctx, lockKey)

	orders, err := l.orders.ListByAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	var pending []*models.Order
	for _, o := range orders {
		// Les commandes jamais payées sont exclues même si une commission est posée
		if o.CommissionStatus == models.CommissionPending && o.Status == models.OrderPaid {
			pending = append(pending, o)
		}
	}
	if len(pending) == 0 {
		return nil, apperr.New(apperr.KindPrecondition, "Aucune commission en attente pour cet affilié")
	}

	payoutID := uuid.NewString()
	now := time.Now().UTC()

	var total float64
	var applied int
	var firstPaid time.Time
	for _, o := range pending {
		ok, err := l.orders.PayCommissionIfPending(ctx, o.ID, payoutID, now)
		if err != nil {
			// Les commandes déjà stampillées portent payoutID : on matérialise
			// quand même la ligne de versement pour qu'aucune référence ne pende.
			if applied > 0 {
				l.createPayoutRow(ctx, payoutID, affiliate.ID, total, firstPaid, now, notes, applied)
			}
			return nil, apperr.Wrap(apperr.KindIntegrity, "Règlement interrompu", err)
		}
		if !ok {
			continue
		}
		if applied == 0 || o.CreatedAt.Before(firstPaid) {
			firstPaid = o.CreatedAt
		}
		total += o.CommissionAmount
		applied++
	}

	if applied == 0 {
		// Un règlement concurrent vient de tout couvrir
		return nil, apperr.New(apperr.KindPrecondition, "Aucune commission en attente pour cet affilié")
	}

	payout := &models.AffiliatePayout{
		ID:          payoutID,
		AffiliateID: affiliate.ID,
		TotalAmount: total,
		PeriodStart: firstPaid,
		PeriodEnd:   now,
		Notes:       notes,
		OrderCount:  applied,
		PaidAt:      now,
	}
	if err := l.payouts.Create(ctx, payout); err != nil {
		return nil, apperr.Wrap(apperr.KindIntegrity, "Échec enregistrement du versement", err)
	}

	log.Printf("✅ Commissions versées : affilié %s, %.2f sur %d commande(s), payout %s",
		affiliate.Name, total, applied, payoutID)

	return &SettlementResult{Payout: payout, OrdersUpdated: applied, TotalAmount: total}, nil
}

func (l *Ledger) createPayoutRow(ctx context.Context, payoutID, affiliateID string, total float64, start, end time.Time, notes string, count int) {
	err := l.payouts.Create(ctx, &models.AffiliatePayout{
		ID:          payoutID,
		AffiliateID: affiliateID,
		TotalAmount: total,
		PeriodStart: start,
		PeriodEnd:   end,
		Notes:       notes,
		OrderCount:  count,
		PaidAt:      end,
	})
	if err != nil {
		log.Printf("❌ Impossible d'enregistrer le versement partiel %s: %v", payoutID, err)
	}
}

// AffiliateTotals résume les commissions d'un affilié pour le back-office.
type AffiliateTotals struct {
	TotalPending  float64 `json:"totalPending"`
	TotalPaid     float64 `json:"totalPaid"`
	TotalOrders   int     `json:"totalOrders"`
	PendingOrders int     `json:"pendingOrders"`
}

// Totals calcule les cumuls pending/paid d'un affilié.
func (l *Ledger) Totals(ctx context.Context, affiliateID string) (*AffiliateTotals, error) {
	orders, err := l.orders.ListByAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	t := &AffiliateTotals{TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.CommissionStatus {
		case models.CommissionPending:
			if o.Status == models.OrderPaid {
				t.TotalPending += o.CommissionAmount
			}
			t.PendingOrders++
		case models.CommissionPaid:
			t.TotalPaid += o.CommissionAmount
		}
	}
	return t, nil
}

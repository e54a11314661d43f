package store

import (
	"context"
	"sort"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// PayoutStore persiste les versements de commissions. Une ligne par
// règlement, immuable après création.
type PayoutStore struct {
	session *gocql.Session
}

func NewPayoutStore(session *gocql.Session) *PayoutStore {
	return &PayoutStore{session: session}
}

const payoutColumns = `payout_id, affiliate_id, total_amount, period_start, period_end, notes, order_count, paid_at`

func (s *PayoutStore) Create(ctx context.Context, p *models.AffiliatePayout) error {
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO affiliate_payouts (`+payoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AffiliateID, p.TotalAmount, p.PeriodStart, p.PeriodEnd, p.Notes, p.OrderCount, p.PaidAt)
	batch.Query(`INSERT INTO payouts_by_affiliate (affiliate_id, paid_at, payout_id) VALUES (?, ?, ?)`,
		p.AffiliateID, p.PaidAt, p.ID)
	return s.session.ExecuteBatch(batch)
}

// UpdateTotals réécrit le total réellement appliqué (après les CAS par commande).
func (s *PayoutStore) UpdateTotals(ctx context.Context, payoutID string, total float64, count int) error {
	return s.session.Query(
		`UPDATE affiliate_payouts SET total_amount = ?, order_count = ? WHERE payout_id = ?`,
		total, count, payoutID).WithContext(ctx).Exec()
}

func (s *PayoutStore) GetByID(ctx context.Context, payoutID string) (*models.AffiliatePayout, error) {
	var p models.AffiliatePayout
	err := s.session.Query(`SELECT `+payoutColumns+` FROM affiliate_payouts WHERE payout_id = ?`,
		payoutID).WithContext(ctx).
		Scan(&p.ID, &p.AffiliateID, &p.TotalAmount, &p.PeriodStart, &p.PeriodEnd, &p.Notes, &p.OrderCount, &p.PaidAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List retourne les versements, filtrés par affilié si demandé, les plus
// récents d'abord.
func (s *PayoutStore) List(ctx context.Context, affiliateID string) ([]*models.AffiliatePayout, error) {
	var iter *gocql.Iter
	if affiliateID != "" {
		inner := s.session.Query(`SELECT payout_id FROM payouts_by_affiliate WHERE affiliate_id = ?`,
			affiliateID).WithContext(ctx).Iter()
		var ids []string
		var id string
		for inner.Scan(&id) {
			ids = append(ids, id)
		}
		if err := inner.Close(); err != nil {
			return nil, err
		}
		payouts := make([]*models.AffiliatePayout, 0, len(ids))
		for _, payoutID := range ids {
			p, err := s.GetByID(ctx, payoutID)
			if err != nil {
				return nil, err
			}
			payouts = append(payouts, p)
		}
		sort.Slice(payouts, func(i, j int) bool { return payouts[i].PaidAt.After(payouts[j].PaidAt) })
		return payouts, nil
	}

	iter = s.session.Query(`SELECT ` + payoutColumns + ` FROM affiliate_payouts`).WithContext(ctx).Iter()
	var payouts []*models.AffiliatePayout
	for {
		p := &models.AffiliatePayout{}
		if !iter.Scan(&p.ID, &p.AffiliateID, &p.TotalAmount, &p.PeriodStart, &p.PeriodEnd, &p.Notes, &p.OrderCount, &p.PaidAt) {
			break
		}
		payouts = append(payouts, p)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Slice(payouts, func(i, j int) bool { return payouts[i].PaidAt.After(payouts[j].PaidAt) })
	return payouts, nil
}

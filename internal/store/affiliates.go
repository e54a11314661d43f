package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// AffiliateStore persiste les affiliés. Le code (en majuscules) et l'e-mail
// sont uniques, chacun via sa table d'index posée en LWT.
type AffiliateStore struct {
	session *gocql.Session
}

func NewAffiliateStore(session *gocql.Session) *AffiliateStore {
	return &AffiliateStore{session: session}
}

const affiliateColumns = `affiliate_id, name, email, code, commission_percent, status, created_at, updated_at`

func (s *AffiliateStore) GetByID(ctx context.Context, affiliateID string) (*models.Affiliate, error) {
	var a models.Affiliate
	err := s.session.Query(`SELECT `+affiliateColumns+` FROM affiliates WHERE affiliate_id = ?`,
		affiliateID).WithContext(ctx).
		Scan(&a.ID, &a.Name, &a.Email, &a.Code, &a.CommissionPercent, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByCode résout un code d'affilié (déjà normalisé en majuscules par l'appelant).
func (s *AffiliateStore) GetByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliateID string
	err := s.session.Query(`SELECT affiliate_id FROM affiliates_by_code WHERE code = ?`,
		code).WithContext(ctx).Scan(&affiliateID)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, affiliateID)
}

func (s *AffiliateStore) GetByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	var affiliateID string
	err := s.session.Query(`SELECT affiliate_id FROM affiliates_by_email WHERE email = ?`,
		email).WithContext(ctx).Scan(&affiliateID)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, affiliateID)
}

// Create insère un affilié en réservant d'abord le code puis l'e-mail en LWT.
// Si l'e-mail est déjà pris, la réservation du code est relâchée.
func (s *AffiliateStore) Create(ctx context.Context, a *models.Affiliate) error {
	applied, err := s.session.Query(
		`INSERT INTO affiliates_by_code (code, affiliate_id) VALUES (?, ?) IF NOT EXISTS`,
		a.Code, a.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("code affilié %s déjà utilisé", a.Code)
	}

	applied, err = s.session.Query(
		`INSERT INTO affiliates_by_email (email, affiliate_id) VALUES (?, ?) IF NOT EXISTS`,
		a.Email, a.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		// Rollback de la réservation du code
		s.session.Query(`DELETE FROM affiliates_by_code WHERE code = ?`, a.Code).WithContext(ctx).Exec()
		if err != nil {
			return err
		}
		return fmt.Errorf("e-mail %s déjà utilisé", a.Email)
	}

	return s.session.Query(
		`INSERT INTO affiliates (`+affiliateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.Code, a.CommissionPercent, a.Status, a.CreatedAt, a.UpdatedAt).
		WithContext(ctx).Exec()
}

// Update réécrit la fiche. Si le code ou l'e-mail change, la nouvelle clé est
// réservée en LWT avant de supprimer l'ancienne.
func (s *AffiliateStore) Update(ctx context.Context, prev, next *models.Affiliate) error {
	if next.Code != prev.Code {
		applied, err := s.session.Query(
			`INSERT INTO affiliates_by_code (code, affiliate_id) VALUES (?, ?) IF NOT EXISTS`,
			next.Code, next.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("code affilié %s déjà utilisé", next.Code)
		}
		s.session.Query(`DELETE FROM affiliates_by_code WHERE code = ?`, prev.Code).WithContext(ctx).Exec()
	}
	if next.Email != prev.Email {
		applied, err := s.session.Query(
			`INSERT INTO affiliates_by_email (email, affiliate_id) VALUES (?, ?) IF NOT EXISTS`,
			next.Email, next.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("e-mail %s déjà utilisé", next.Email)
		}
		s.session.Query(`DELETE FROM affiliates_by_email WHERE email = ?`, prev.Email).WithContext(ctx).Exec()
	}

	next.UpdatedAt = time.Now().UTC()
	return s.session.Query(
		`UPDATE affiliates SET name = ?, email = ?, code = ?, commission_percent = ?, status = ?, updated_at = ?
		 WHERE affiliate_id = ?`,
		next.Name, next.Email, next.Code, next.CommissionPercent, next.Status, next.UpdatedAt, next.ID).
		WithContext(ctx).Exec()
}

// Delete supprime la fiche et ses index. Le contrôle « aucune commande liée »
// est fait par l'appelant avant.
func (s *AffiliateStore) Delete(ctx context.Context, a *models.Affiliate) error {
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM affiliates WHERE affiliate_id = ?`, a.ID)
	batch.Query(`DELETE FROM affiliates_by_code WHERE code = ?`, a.Code)
	batch.Query(`DELETE FROM affiliates_by_email WHERE email = ?`, a.Email)
	return s.session.ExecuteBatch(batch)
}

func (s *AffiliateStore) List(ctx context.Context) ([]*models.Affiliate, error) {
	iter := s.session.Query(`SELECT ` + affiliateColumns + ` FROM affiliates`).WithContext(ctx).Iter()

	var affiliates []*models.Affiliate
	for {
		a := &models.Affiliate{}
		if !iter.Scan(&a.ID, &a.Name, &a.Email, &a.Code, &a.CommissionPercent, &a.Status, &a.CreatedAt, &a.UpdatedAt) {
			break
		}
		affiliates = append(affiliates, a)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Slice(affiliates, func(i, j int) bool { return affiliates[i].CreatedAt.After(affiliates[j].CreatedAt) })
	return affiliates, nil
}

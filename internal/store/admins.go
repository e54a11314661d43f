package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

// AdminStore persiste les comptes du back-office et la configuration du site.
type AdminStore struct {
	session *gocql.Session
}

func NewAdminStore(session *gocql.Session) *AdminStore {
	return &AdminStore{session: session}
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var adminID string
	err := s.session.Query(`SELECT admin_id FROM admins_by_email WHERE email = ?`, email).
		WithContext(ctx).Scan(&adminID)
	if err != nil {
		return nil, err
	}

	var a models.AdminUser
	err = s.session.Query(`SELECT admin_id, email, name, password_hash, created_at FROM admins WHERE admin_id = ?`,
		adminID).WithContext(ctx).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create insère un admin, e-mail unique en LWT.
func (s *AdminStore) Create(ctx context.Context, a *models.AdminUser) error {
	applied, err := s.session.Query(
		`INSERT INTO admins_by_email (email, admin_id) VALUES (?, ?) IF NOT EXISTS`,
		a.Email, a.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("admin %s existe déjà", a.Email)
	}
	return s.session.Query(
		`INSERT INTO admins (admin_id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt).WithContext(ctx).Exec()
}

// Count sert au setup initial : la création libre du premier admin n'est
// permise que tant qu'il n'y en a aucun.
func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.session.Query(`SELECT COUNT(*) FROM admins`).WithContext(ctx).Scan(&count)
	return count, err
}

// --- Configuration du site (clé/valeur) ---

func (s *AdminStore) GetConfig(ctx context.Context, key string) (*models.SystemConfig, error) {
	var c models.SystemConfig
	err := s.session.Query(`SELECT key, value, updated_at FROM system_config WHERE key = ?`, key).
		WithContext(ctx).Scan(&c.Key, &c.Value, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *AdminStore) SetConfig(ctx context.Context, key, value string) error {
	return s.session.Query(`INSERT INTO system_config (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().UTC()).WithContext(ctx).Exec()
}

func (s *AdminStore) DeleteConfig(ctx context.Context, key string) error {
	return s.session.Query(`DELETE FROM system_config WHERE key = ?`, key).WithContext(ctx).Exec()
}

func (s *AdminStore) ListConfig(ctx context.Context) ([]*models.SystemConfig, error) {
	iter := s.session.Query(`SELECT key, value, updated_at FROM system_config`).WithContext(ctx).Iter()

	var configs []*models.SystemConfig
	for {
		c := &models.SystemConfig{}
		if !iter.Scan(&c.Key, &c.Value, &c.UpdatedAt) {
			break
		}
		configs = append(configs, c)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Key < configs[j].Key })
	return configs, nil
}

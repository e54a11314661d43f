package models

import "time"

// AdminUser est un compte du back-office. Le mot de passe est stocké en bcrypt.
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SystemConfig est une entrée clé/valeur de configuration du site (thème,
// textes, drapeaux) éditable depuis le back-office.
type SystemConfig struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

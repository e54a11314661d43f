package email

import (
	"strings"
	"testing"
	"time"

	"livrel_back_end/internal/config"
)

func TestBodiesRenderConfiguredPolicy(t *testing.T) {
	cfg := &config.Config{
		SMTPHost:            "smtp.example.com",
		EmailFrom:           "no-reply@livrel.store",
		SupportEmail:        "contact@livrel.store",
		DownloadExpiryHours: 48,
		DownloadMaxCount:    5,
	}
	m := NewSMTPMailer(cfg)
	e := OrderEmail{
		CustomerEmail: "client@example.com",
		EbookTitle:    "Guide Go",
		DownloadURL:   "https://livrel.store/download/abc123",
		OrderID:       "1234567890",
		OrderDate:     time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}

	// Les chiffres annoncés au client doivent suivre la politique configurée,
	// pas des littéraux figés
	for name, body := range map[string]string{"html": m.htmlBody(e), "texte": m.textBody(e)} {
		if !strings.Contains(body, "valable 48 heures") {
			t.Errorf("corps %s : la durée de validité configurée doit apparaître", name)
		}
		if !strings.Contains(body, "jusqu'à 5 fois") {
			t.Errorf("corps %s : la limite de téléchargements configurée doit apparaître", name)
		}
		if !strings.Contains(body, e.DownloadURL) {
			t.Errorf("corps %s : le lien de téléchargement doit apparaître", name)
		}
		if !strings.Contains(body, cfg.SupportEmail) {
			t.Errorf("corps %s : l'adresse de support doit apparaître", name)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("1234567890"); got != "12345678" {
		t.Errorf("identifiant tronqué attendu 12345678, obtenu %s", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("identifiant court inchangé attendu, obtenu %s", got)
	}
}

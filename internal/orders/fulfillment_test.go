package orders

import (
	"context"
	"testing"
	"time"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/email"
	"livrel_back_end/internal/models"
)

type stubIssuer struct {
	download *models.Download
	calls    int
}

func (s *stubIssuer) Issue(_ context.Context, orderID string) (*models.Download, error) {
	s.calls++
	d := *s.download
	d.OrderID = orderID
	return &d, nil
}

type stubEbooks struct{}

func (stubEbooks) GetByID(_ context.Context, ebookID string) (*models.Ebook, error) {
	return &models.Ebook{ID: ebookID, Title: "Guide Go"}, nil
}

type fakeMailer struct {
	configured bool
	sent       []email.OrderEmail
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) Send(_ context.Context, e email.OrderEmail) error {
	m.sent = append(m.sent, e)
	return nil
}

func TestSendDownloadEmail(t *testing.T) {
	ctx := context.Background()
	order := &models.Order{ID: "order-1", Email: "client@example.com", EbookID: "ebook-1", Status: models.OrderPaid}
	download := &models.Download{Token: "abc123", ExpiresAt: time.Now().Add(24 * time.Hour)}

	t.Run("SendsLinkBuiltOnFrontendURL", func(t *testing.T) {
		mailer := &fakeMailer{configured: true}
		issuer := &stubIssuer{download: download}
		f := NewFulfillment(issuer, stubEbooks{}, mailer, "https://livrel.store")

		d, err := f.SendDownloadEmail(ctx, order, false)
		if err != nil {
			t.Fatalf("SendDownloadEmail: %v", err)
		}
		if d == nil || d.Token != "abc123" {
			t.Fatalf("download inattendu: %+v", d)
		}
		if len(mailer.sent) != 1 {
			t.Fatalf("1 e-mail attendu, obtenu %d", len(mailer.sent))
		}
		sent := mailer.sent[0]
		if sent.DownloadURL != "https://livrel.store/download/abc123" {
			t.Errorf("URL de téléchargement inattendue: %s", sent.DownloadURL)
		}
		if sent.CustomerEmail != "client@example.com" || sent.EbookTitle != "Guide Go" {
			t.Errorf("contenu e-mail inattendu: %+v", sent)
		}
	})

	t.Run("UnconfiguredMailerIsSkippedInWebhookMode", func(t *testing.T) {
		mailer := &fakeMailer{configured: false}
		issuer := &stubIssuer{download: download}
		f := NewFulfillment(issuer, stubEbooks{}, mailer, "https://livrel.store")

		d, err := f.SendDownloadEmail(ctx, order, false)
		if err != nil {
			t.Fatalf("le mode webhook ne doit pas échouer sans SMTP: %v", err)
		}
		if d != nil {
			t.Error("aucun lien ne doit être émis quand l'envoi est sauté")
		}
		if issuer.calls != 0 {
			t.Error("l'émission de lien ne doit pas avoir lieu sans mailer")
		}
	})

	t.Run("UnconfiguredMailerFailsInStrictMode", func(t *testing.T) {
		mailer := &fakeMailer{configured: false}
		f := NewFulfillment(&stubIssuer{download: download}, stubEbooks{}, mailer, "https://livrel.store")

		_, err := f.SendDownloadEmail(ctx, order, true)
		if apperr.KindOf(err) != apperr.KindNotConfigured {
			t.Fatalf("le renvoi manuel doit échouer explicitement, obtenu %v", err)
		}
	})
}

package email

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"livrel_back_end/internal/config"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/wneessen/go-mail"
)

// OrderEmail porte tout ce qu'il faut pour l'e-mail « votre e-book est prêt ».
type OrderEmail struct {
	CustomerEmail string
	EbookTitle    string
	DownloadURL   string
	OrderID       string
	OrderDate     time.Time
}

// Mailer est le contrat consommé par la chaîne de fulfillment.
type Mailer interface {
	Send(ctx context.Context, e OrderEmail) error
	IsConfigured() bool
}

// SMTPMailer envoie les e-mails transactionnels via go-mail.
type SMTPMailer struct {
	cfg *config.Config
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// IsConfigured distingue « pas de SMTP » du reste : le webhook saute l'envoi
// sans broncher, le renvoi manuel depuis le back-office remonte l'erreur.
func (m *SMTPMailer) IsConfigured() bool {
	return m.cfg.EmailConfigured()
}

func (m *SMTPMailer) Send(ctx context.Context, e OrderEmail) error {
	if !m.IsConfigured() {
		return fmt.Errorf("service e-mail non configuré")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.EmailFrom); err != nil {
		return err
	}
	if err := msg.To(e.CustomerEmail); err != nil {
		return err
	}
	msg.Subject("Votre e-book est disponible au téléchargement – Livrel")
	msg.SetBodyString(mail.TypeTextPlain, m.textBody(e))
	msg.AddAlternativeString(mail.TypeTextHTML, m.htmlBody(e))

	// QR du lien de téléchargement, pratique pour récupérer le livre sur liseuse
	if png, err := qrcode.Encode(e.DownloadURL, qrcode.Medium, 256); err == nil {
		msg.AttachReader("telechargement_qr.png", bytes.NewReader(png))
	} else {
		log.Printf("⚠️  Génération QR impossible pour la commande %s: %v", e.OrderID, err)
	}

	client, err := mail.NewClient(m.cfg.SMTPHost,
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.SMTPUsername),
		mail.WithPassword(m.cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail de téléchargement à", e.CustomerEmail)
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *SMTPMailer) htmlBody(e OrderEmail) string {
	date := e.OrderDate.Format("02/01/2006 15:04")
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Votre e-book est prêt</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">🎉 Votre e-book est prêt !</h2>
		<p>Bonjour,</p>
		<p>Merci pour votre achat sur <strong>Livrel</strong>.</p>

		<div style="background-color: #f8fafc; border-left: 4px solid #2563eb; padding: 16px; margin: 24px 0; border-radius: 4px;">
			<p style="margin: 6px 0;"><strong>📚 E-book :</strong> %s</p>
			<p style="margin: 6px 0;"><strong>📅 Date d'achat :</strong> %s</p>
			<p style="margin: 6px 0;"><strong>🆔 Commande :</strong> %s...</p>
		</div>

		<p style="text-align: center;">
			<a href="%s" style="display: inline-block; background-color: #059669; color: #ffffff; text-decoration: none; padding: 14px 28px; border-radius: 8px; font-weight: bold;">
				📥 Télécharger mon e-book
			</a>
		</p>

		<div style="background-color: #fef3c7; border-left: 4px solid #f59e0b; padding: 12px; margin: 24px 0; border-radius: 4px; color: #92400e; font-size: 14px;">
			<p style="margin: 4px 0;"><strong>ℹ️ Informations importantes :</strong></p>
			<p style="margin: 4px 0;">• Le lien de téléchargement est valable %d heures</p>
			<p style="margin: 4px 0;">• Vous pouvez télécharger le fichier jusqu'à %d fois</p>
			<p style="margin: 4px 0;">• Conservez cet e-mail pour retrouver le lien</p>
		</div>

		<p>Un souci avec le téléchargement ? Écrivez-nous : <strong>%s</strong></p>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Livrel</strong>
		</p>
	</div>
</body>
</html>`, e.EbookTitle, date, shortID(e.OrderID), e.DownloadURL,
		m.cfg.DownloadExpiryHours, m.cfg.DownloadMaxCount, m.cfg.SupportEmail)
}

func (m *SMTPMailer) textBody(e OrderEmail) string {
	date := e.OrderDate.Format("02/01/2006 15:04")
	return fmt.Sprintf(`Bonjour,

Merci pour votre achat sur Livrel !

- E-book : %s
- Date d'achat : %s
- Commande : %s...

Téléchargez votre e-book ici :
%s

INFORMATIONS IMPORTANTES :
- Le lien de téléchargement est valable %d heures
- Vous pouvez télécharger le fichier jusqu'à %d fois
- Conservez cet e-mail pour retrouver le lien

Un souci avec le téléchargement ? Écrivez-nous : %s

L'équipe Livrel
`, e.EbookTitle, date, shortID(e.OrderID), e.DownloadURL,
		m.cfg.DownloadExpiryHours, m.cfg.DownloadMaxCount, m.cfg.SupportEmail)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

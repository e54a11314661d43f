package orders

import (
	"context"
	"log"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/email"
	"livrel_back_end/internal/models"
)

// DownloadIssuer émet (ou réutilise) le lien de téléchargement d'une commande.
type DownloadIssuer interface {
	Issue(ctx context.Context, orderID string) (*models.Download, error)
}

// EbookReader lit la fiche produit pour le titre de l'e-mail.
type EbookReader interface {
	GetByID(ctx context.Context, ebookID string) (*models.Ebook, error)
}

// Fulfillment enchaîne émission du lien puis e-mail de téléchargement.
type Fulfillment struct {
	downloads   DownloadIssuer
	ebooks      EbookReader
	mailer      email.Mailer
	frontendURL string
}

func NewFulfillment(downloads DownloadIssuer, ebooks EbookReader, mailer email.Mailer, frontendURL string) *Fulfillment {
	return &Fulfillment{downloads: downloads, ebooks: ebooks, mailer: mailer, frontendURL: frontendURL}
}

// SendDownloadEmail émet le lien puis envoie l'e-mail. En mode strict (renvoi
// manuel depuis le back-office), un service e-mail absent est une erreur ; en
// mode webhook, on saute l'envoi sans casser la réconciliation financière.
func (f *Fulfillment) SendDownloadEmail(ctx context.Context, order *models.Order, strict bool) (*models.Download, error) {
	if !f.mailer.IsConfigured() {
		if strict {
			return nil, apperr.New(apperr.KindNotConfigured, "Service e-mail non configuré")
		}
		log.Printf("⚠️  Service e-mail non configuré, envoi sauté pour la commande %s", order.ID)
		return nil, nil
	}

	download, err := f.downloads.Issue(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	ebook, err := f.ebooks.GetByID(ctx, order.EbookID)
	if err != nil {
		return nil, err
	}

	err = f.mailer.Send(ctx, email.OrderEmail{
		CustomerEmail: order.Email,
		EbookTitle:    ebook.Title,
		DownloadURL:   f.frontendURL + "/download/" + download.Token,
		OrderID:       order.ID,
		OrderDate:     order.CreatedAt,
	})
	if err != nil {
		return download, err
	}

	log.Printf("📧 E-mail de téléchargement envoyé à %s (commande %s)", order.Email, order.ID)
	return download, nil
}

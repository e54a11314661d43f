package downloads

import (
	"context"
	"errors"
	"testing"
	"time"

	"livrel_back_end/internal/apperr"
	"livrel_back_end/internal/models"

	"github.com/gocql/gocql"
)

type fakeDownloadRepo struct {
	byToken map[string]*models.Download
	// Fait échouer le premier CAS pour simuler une consommation concurrente
	casFailures int
}

func newFakeDownloadRepo() *fakeDownloadRepo {
	return &fakeDownloadRepo{byToken: make(map[string]*models.Download)}
}

func (r *fakeDownloadRepo) GetByToken(_ context.Context, token string) (*models.Download, error) {
	if d, ok := r.byToken[token]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, gocql.ErrNotFound
}

func (r *fakeDownloadRepo) GetActiveByOrder(_ context.Context, orderID string, now time.Time) (*models.Download, error) {
	for _, d := range r.byToken {
		if d.OrderID == orderID && d.ExpiresAt.After(now) {
			copy := *d
			return &copy, nil
		}
	}
	return nil, gocql.ErrNotFound
}

func (r *fakeDownloadRepo) Create(_ context.Context, d *models.Download) error {
	stored := *d
	r.byToken[d.Token] = &stored
	return nil
}

func (r *fakeDownloadRepo) IncrementCount(_ context.Context, token string, expected int) (bool, error) {
	d, ok := r.byToken[token]
	if !ok {
		return false, nil
	}
	if r.casFailures > 0 {
		r.casFailures--
		d.DownloadCount++ // le concurrent a consommé
		return false, nil
	}
	if d.DownloadCount != expected {
		return false, nil
	}
	d.DownloadCount = expected + 1
	return true, nil
}

type fakeOrderReader struct {
	orders map[string]*models.Order
}

func (r *fakeOrderReader) GetByID(_ context.Context, orderID string) (*models.Order, error) {
	if o, ok := r.orders[orderID]; ok {
		return o, nil
	}
	return nil, gocql.ErrNotFound
}

type fakeEbookReader struct {
	ebooks map[string]*models.Ebook
}

func (r *fakeEbookReader) GetByID(_ context.Context, ebookID string) (*models.Ebook, error) {
	if e, ok := r.ebooks[ebookID]; ok {
		return e, nil
	}
	return nil, gocql.ErrNotFound
}

type fakeAssets struct {
	url   string
	err   error
	calls int
}

func (a *fakeAssets) PresignedDownloadURL(_ context.Context, _, _ string) (string, error) {
	a.calls++
	return a.url, a.err
}

func testPolicy() Policy {
	return Policy{MaxDownloads: 3, Expiry: 24 * time.Hour}
}

func fixture() (*Service, *fakeDownloadRepo, *fakeAssets) {
	repo := newFakeDownloadRepo()
	orders := &fakeOrderReader{orders: map[string]*models.Order{
		"order-paid":    {ID: "order-paid", EbookID: "ebook-1", Status: models.OrderPaid},
		"order-pending": {ID: "order-pending", EbookID: "ebook-1", Status: models.OrderPending},
	}}
	ebooks := &fakeEbookReader{ebooks: map[string]*models.Ebook{
		"ebook-1": {ID: "ebook-1", Slug: "guide-go", Title: "Guide Go", PDFObjectKey: "pdfs/guide-go.pdf"},
		"ebook-2": {ID: "ebook-2", Slug: "sans-pdf", Title: "Sans PDF"},
	}}
	assets := &fakeAssets{url: "https://minio.example.com/signed"}
	return NewService(repo, orders, ebooks, assets, testPolicy()), repo, assets
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("PaidOrderGetsToken", func(t *testing.T) {
		svc, _, _ := fixture()
		d, err := svc.Issue(ctx, "order-paid")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if len(d.Token) != 64 {
			t.Errorf("jeton hex de 64 caractères attendu, obtenu %d", len(d.Token))
		}
		if d.MaxDownloads != 3 || d.DownloadCount != 0 {
			t.Errorf("compteurs initiaux inattendus: %d/%d", d.DownloadCount, d.MaxDownloads)
		}
		if remaining := time.Until(d.ExpiresAt); remaining < 23*time.Hour || remaining > 25*time.Hour {
			t.Errorf("expiration attendue à ~24h, obtenu %s", remaining)
		}
	})

	t.Run("ReusesActiveLink", func(t *testing.T) {
		svc, _, _ := fixture()
		first, err := svc.Issue(ctx, "order-paid")
		if err != nil {
			t.Fatalf("première émission: %v", err)
		}
		second, err := svc.Issue(ctx, "order-paid")
		if err != nil {
			t.Fatalf("seconde émission: %v", err)
		}
		if first.Token != second.Token {
			t.Error("le lien actif doit être réutilisé, pas refrappé")
		}
	})

	t.Run("UnpaidOrderIsRejected", func(t *testing.T) {
		svc, _, _ := fixture()
		_, err := svc.Issue(ctx, "order-pending")
		if apperr.KindOf(err) != apperr.KindPrecondition {
			t.Fatalf("précondition attendue, obtenu %v", err)
		}
	})

	t.Run("UnknownOrderIsNotFound", func(t *testing.T) {
		svc, _, _ := fixture()
		_, err := svc.Issue(ctx, "order-404")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("KindNotFound attendu, obtenu %v", err)
		}
	})
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, svc *Service) *models.Download {
		t.Helper()
		d, err := svc.Issue(ctx, "order-paid")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return d
	}

	t.Run("ConsumesOneUse", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)

		url, after, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "test-agent")
		if err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if url != "https://minio.example.com/signed" {
			t.Errorf("URL signée inattendue: %s", url)
		}
		if after.DownloadCount != 1 {
			t.Errorf("compteur attendu 1, obtenu %d", after.DownloadCount)
		}
		if repo.byToken[d.Token].DownloadCount != 1 {
			t.Error("le compteur doit être persisté")
		}
	})

	t.Run("UnknownTokenIsNotFound", func(t *testing.T) {
		svc, _, _ := fixture()
		_, _, err := svc.Redeem(ctx, "jeton-bidon", "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("KindNotFound attendu, obtenu %v", err)
		}
	})

	t.Run("ExpiredTokenIsGone", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.byToken[d.Token].ExpiresAt = time.Now().Add(-time.Minute)

		_, got, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindExpired {
			t.Fatalf("KindExpired attendu, obtenu %v", err)
		}
		if got == nil {
			t.Fatal("le Download doit être retourné pour détailler l'expiration")
		}
	})

	t.Run("ExhaustedTokenIsForbidden", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.byToken[d.Token].DownloadCount = 3

		_, got, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindLimitReached {
			t.Fatalf("KindLimitReached attendu, obtenu %v", err)
		}
		if got == nil || got.Remaining() != 0 {
			t.Errorf("compteurs attendus dans la réponse: %+v", got)
		}
	})

	t.Run("ExpiryTakesPrecedenceOverLimit", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.byToken[d.Token].ExpiresAt = time.Now().Add(-time.Minute)
		repo.byToken[d.Token].DownloadCount = 3

		_, _, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindExpired {
			t.Fatalf("l'expiration prime sur la limite, obtenu %v", err)
		}
	})

	t.Run("FailedDeliveryConsumesNothing", func(t *testing.T) {
		svc, repo, assets := fixture()
		d := issue(t, svc)
		assets.err = errors.New("minio indisponible")

		_, _, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if err == nil {
			t.Fatal("erreur attendue quand l'URL ne peut pas être signée")
		}
		if repo.byToken[d.Token].DownloadCount != 0 {
			t.Error("aucune utilisation ne doit être consommée si la livraison échoue")
		}
	})

	t.Run("MissingPDFIsNotConfigured", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.byToken[d.Token].EbookID = "ebook-2"

		_, _, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindNotConfigured {
			t.Fatalf("KindNotConfigured attendu, obtenu %v", err)
		}
	})

	t.Run("LostCASRaceRetriesThenSucceeds", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.casFailures = 1

		_, after, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if err != nil {
			t.Fatalf("la consommation doit réussir après relecture: %v", err)
		}
		// Le concurrent a pris 1, nous le 2e
		if after.DownloadCount != 2 {
			t.Errorf("compteur attendu 2 après la course, obtenu %d", after.DownloadCount)
		}
	})

	t.Run("LostRaceAtLastUseIsForbidden", func(t *testing.T) {
		svc, repo, _ := fixture()
		d := issue(t, svc)
		repo.byToken[d.Token].DownloadCount = 2
		repo.casFailures = 1

		_, _, err := svc.Redeem(ctx, d.Token, "1.2.3.4", "")
		if apperr.KindOf(err) != apperr.KindLimitReached {
			t.Fatalf("deux consommations à 1 restant : une seule doit passer, obtenu %v", err)
		}
	})
}

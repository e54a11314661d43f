package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livrel_back_end/internal/downloads"
	"livrel_back_end/internal/handlers"
	"livrel_back_end/internal/models"
	"livrel_back_end/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
)

type stubDownloadRepo struct {
	byToken map[string]*models.Download
}

func (r *stubDownloadRepo) GetByToken(_ context.Context, token string) (*models.Download, error) {
	if d, ok := r.byToken[token]; ok {
		return d, nil
	}
	return nil, gocql.ErrNotFound
}

func (r *stubDownloadRepo) GetActiveByOrder(_ context.Context, orderID string, now time.Time) (*models.Download, error) {
	for _, d := range r.byToken {
		if d.OrderID == orderID && d.ExpiresAt.After(now) {
			return d, nil
		}
	}
	return nil, gocql.ErrNotFound
}

func (r *stubDownloadRepo) Create(_ context.Context, d *models.Download) error {
	r.byToken[d.Token] = d
	return nil
}

func (r *stubDownloadRepo) IncrementCount(_ context.Context, token string, expected int) (bool, error) {
	d, ok := r.byToken[token]
	if !ok || d.DownloadCount != expected {
		return false, nil
	}
	d.DownloadCount = expected + 1
	return true, nil
}

type stubOrderReader struct {
	orders map[string]*models.Order
}

func (r *stubOrderReader) GetByID(_ context.Context, orderID string) (*models.Order, error) {
	if o, ok := r.orders[orderID]; ok {
		return o, nil
	}
	return nil, gocql.ErrNotFound
}

type stubEbookReader struct{}

func (stubEbookReader) GetByID(_ context.Context, ebookID string) (*models.Ebook, error) {
	return &models.Ebook{ID: ebookID, Slug: "guide-go", PDFObjectKey: "pdfs/guide-go.pdf"}, nil
}

type stubAssets struct{}

func (stubAssets) PresignedDownloadURL(_ context.Context, _, _ string) (string, error) {
	return "https://minio.example.com/signed", nil
}

// testEngine monte la vraie table de routes. Seul le handler de téléchargement
// est réel, les autres ne sont jamais atteints ; le client Redis pointe dans le
// vide, les rate limits passent en mode dégradé.
func testEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := downloads.NewService(
		&stubDownloadRepo{byToken: make(map[string]*models.Download)},
		&stubOrderReader{orders: map[string]*models.Order{
			"order-1": {ID: "order-1", EbookID: "ebook-1", Status: models.OrderPaid},
		}},
		stubEbookReader{},
		stubAssets{},
		downloads.Policy{MaxDownloads: 3, Expiry: 24 * time.Hour},
	)

	r := gin.New()
	routes.RegisterRoutes(r, routes.Handlers{
		Download:    handlers.NewDownloadHandler(svc),
		JWTSecret:   "secret-test",
		FrontendURL: "http://localhost:5173",
		Redis:       redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
	})
	return r
}

func TestDownloadGenerateIsPublic(t *testing.T) {
	r := testEngine()

	req := httptest.NewRequest(http.MethodPost, "/api/downloads/generate",
		strings.NewReader(`{"orderId":"order-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// La page de téléchargement du front appelle cette route sans aucun token
	if w.Code != http.StatusOK {
		t.Fatalf("statut attendu 200 sans Authorization, obtenu %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Token       string `json:"token"`
			DownloadURL string `json:"downloadUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("réponse illisible: %v", err)
	}
	if resp.Status != "success" || !strings.HasPrefix(resp.Data.DownloadURL, "/api/downloads/") {
		t.Errorf("réponse inattendue: %+v", resp)
	}
}

func TestAdminRoutesStayProtected(t *testing.T) {
	r := testEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("la liste des commandes doit rester derrière le JWT, obtenu %d", w.Code)
	}
}

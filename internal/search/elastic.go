package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"livrel_back_end/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const ebookIndex = "ebooks"

// EbookIndex indexe le catalogue dans Elasticsearch pour la recherche du
// back-office. Client nil = recherche désactivée, l'indexation devient un no-op.
type EbookIndex struct {
	client *elasticsearch.Client
}

func NewEbookIndex(client *elasticsearch.Client) *EbookIndex {
	return &EbookIndex{client: client}
}

// Index pousse (ou remplace) la fiche d'un e-book dans l'index.
func (idx *EbookIndex) Index(ctx context.Context, e *models.Ebook) {
	if idx.client == nil {
		return
	}

	data, _ := json.Marshal(e)
	req := esapi.IndexRequest{
		Index:      ebookIndex,
		DocumentID: e.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", e.Title, res.String())
	} else {
		log.Printf("✅ E-book indexé dans Elasticsearch: %s", e.Title)
	}
}

// Delete retire un e-book de l'index (désactivation catalogue).
func (idx *EbookIndex) Delete(ctx context.Context, ebookID string) {
	if idx.client == nil {
		return
	}

	req := esapi.DeleteRequest{Index: ebookIndex, DocumentID: ebookID}
	res, err := req.Do(ctx, idx.client)
	if err != nil {
		log.Println("❌ Erreur suppression Elastic:", err)
		return
	}
	res.Body.Close()
}

// Search cherche dans le titre, les descriptions et la catégorie.
func (idx *EbookIndex) Search(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if idx.client == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title", "subtitle", "shortDescription", "longDescription", "category"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{ebookIndex},
		Body:  &buf,
	}
	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		json.NewDecoder(res.Body).Decode(&e)
		log.Printf("❌ Elasticsearch erreur: %+v", e)
		return nil, errors.New("index non trouvé ou vide")
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %v", err)
	}

	hitsData, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("réponse Elastic invalide (pas de hits)")
	}
	hitsArray, _ := hitsData["hits"].([]interface{})

	results := make([]map[string]interface{}, 0, len(hitsArray))
	for _, hit := range hitsArray {
		hitMap, _ := hit.(map[string]interface{})
		if source, ok := hitMap["_source"].(map[string]interface{}); ok {
			results = append(results, source)
		}
	}
	return results, nil
}

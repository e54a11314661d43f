package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// AssetStore sert les PDF du bucket via des URLs signées à durée courte.
// Le client ne voit jamais le bucket directement : seul un lien présigné,
// valable quelques minutes, sort du serveur.
type AssetStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewAssetStore(client *minio.Client, bucket string, ttl time.Duration) *AssetStore {
	return &AssetStore{client: client, bucket: bucket, ttl: ttl}
}

// PresignedDownloadURL génère l'URL signée de l'objet, avec le nom de fichier
// imposé au navigateur.
func (s *AssetStore) PresignedDownloadURL(ctx context.Context, objectKey, filename string) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.ttl, reqParams)
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}

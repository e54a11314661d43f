package database

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"livrel_back_end/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// ScyllaManager gère une session par keyspace (catalog, commerce).
type ScyllaManager struct {
	sessions map[string]*gocql.Session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// Databases regroupe les connexions partagées du serveur.
type Databases struct {
	Scylla      *ScyllaManager
	Redis       *redis.Client
	Elastic     *elasticsearch.Client
	MinIO       *minio.Client
	MinIOBucket string

	catalogKeyspace  string
	commerceKeyspace string
}

// Connect initialise toutes les connexions. Échec fatal : sans base, le
// serveur n'a rien à servir.
func Connect(cfg *config.Config) *Databases {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := &Databases{
		catalogKeyspace:  cfg.ScyllaCatalogKeyspace,
		commerceKeyspace: cfg.ScyllaCommerceKeyspace,
	}

	// 1. ScyllaDB (multi-keyspaces)
	if err := db.initScylla(cfg); err != nil {
		log.Fatalf("❌ Échec initialisation ScyllaDB: %v", err)
	}

	// 2. Redis
	db.connectRedis(ctx, cfg)

	// 3. Elasticsearch
	db.connectElastic(cfg)

	// 4. MinIO
	db.connectMinIO(ctx, cfg)

	log.Println("✅ Toutes les bases de données sont connectées")
	return db
}

// =============================================
// SCYLLA DB (Multi-Keyspaces avec Rôles)
// =============================================

func (db *Databases) initScylla(cfg *config.Config) error {
	timeout := 5 * time.Second
	numConns := 10

	configs := map[string]ScyllaKeyspaceConfig{
		cfg.ScyllaCatalogKeyspace: {
			Hosts:       cfg.ScyllaHosts,
			Keyspace:    cfg.ScyllaCatalogKeyspace,
			Username:    cfg.ScyllaCatalogRole,
			Password:    cfg.ScyllaCatalogPassword,
			Timeout:     timeout,
			NumConns:    numConns,
			Consistency: gocql.Quorum,
		},
		cfg.ScyllaCommerceKeyspace: {
			Hosts:       cfg.ScyllaHosts,
			Keyspace:    cfg.ScyllaCommerceKeyspace,
			Username:    cfg.ScyllaCommerceRole,
			Password:    cfg.ScyllaCommercePassword,
			Timeout:     timeout,
			NumConns:    numConns,
			Consistency: gocql.Quorum,
		},
	}

	db.Scylla = &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  configs,
	}

	// Note: les tables sont créées via scripts/scylladb_init.cql
	for keyspace := range configs {
		if _, err := db.Scylla.GetSession(keyspace); err != nil {
			return fmt.Errorf("échec initialisation keyspace %s: %v", keyspace, err)
		}
	}
	return nil
}

func createScyllaCluster(config ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns
	cluster.ReconnectInterval = 1 * time.Second
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// GetSession retourne (ou crée) la session d'un keyspace donné.
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if err := session.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return session, nil
		}
		// Session invalide, on la recrée
		session.Close()
	}

	session, err := createScyllaCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %v", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)",
		keyspace, config.Username)
	return session, nil
}

// CloseScylla ferme toutes les sessions ScyllaDB.
func (db *Databases) CloseScylla() {
	db.Scylla.mu.Lock()
	defer db.Scylla.mu.Unlock()

	for keyspace, session := range db.Scylla.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
}

// CatalogSession retourne la session du keyspace catalogue (ebooks, admins, config).
func (db *Databases) CatalogSession() (*gocql.Session, error) {
	return db.Scylla.GetSession(db.catalogKeyspace)
}

// CommerceSession retourne la session du keyspace commerce (orders, affiliates, downloads).
func (db *Databases) CommerceSession() (*gocql.Session, error) {
	return db.Scylla.GetSession(db.commerceKeyspace)
}

// =============================================
// REDIS
// =============================================
func (db *Databases) connectRedis(ctx context.Context, cfg *config.Config) {
	db.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := db.Redis.Ping(ctx).Err(); err != nil {
		log.Fatal("❌ Erreur connexion Redis:", err)
	}
	log.Println("✅ Connecté à Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================
func (db *Databases) connectElastic(cfg *config.Config) {
	if cfg.ElasticURL == "" {
		log.Println("⚠️  ELASTIC_URL non configurée — recherche catalogue désactivée")
		return
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		log.Fatal("❌ Erreur création client Elasticsearch:", err)
	}

	res, err := client.Info()
	if err != nil {
		log.Fatal("❌ Erreur connexion Elasticsearch:", err)
	}
	defer res.Body.Close()

	db.Elastic = client
	log.Println("✅ Connecté à Elasticsearch")
}

// =============================================
// MINIO
// =============================================
func (db *Databases) connectMinIO(ctx context.Context, cfg *config.Config) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatal("❌ Erreur connexion MinIO:", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		log.Fatal("❌ Erreur vérification bucket MinIO:", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("❌ Erreur création bucket MinIO:", err)
		}
		log.Println("🪣 Bucket créé :", cfg.MinioBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.MinioBucket)
	}

	db.MinIO = client
	db.MinIOBucket = cfg.MinioBucket
	log.Println("✅ Connecté à MinIO :", cfg.MinioEndpoint)
}

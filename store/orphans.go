package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"profile-service/config"
	"profile-service/models"

	"github.com/redis/go-redis/v9"
)

// OrphanLedger remembers uploaded assets that no profile references and that
// could not be removed from the image store.
type OrphanLedger interface {
	Record(ctx context.Context, asset models.UploadedAsset, reason string) error
	Close() error
}

type OrphanRecord struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}

var newRedisClient = redis.NewClient

type ValkeyOrphanLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewValkeyOrphanLedger(cfg config.ValkeyConfig) (*ValkeyOrphanLedger, error) {
	client := newRedisClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}

	return &ValkeyOrphanLedger{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.OrphanTTL,
		now:    time.Now,
	}, nil
}

func (l *ValkeyOrphanLedger) Record(ctx context.Context, asset models.UploadedAsset, reason string) error {
	payload, err := json.Marshal(OrphanRecord{
		URL:        asset.URL,
		PublicID:   asset.PublicID,
		Reason:     reason,
		RecordedAt: l.now().UTC(),
	})
	if err != nil {
		return err
	}
	return l.client.Set(ctx, l.key(asset.PublicID), payload, l.ttl).Err()
}

func (l *ValkeyOrphanLedger) Close() error {
	return l.client.Close()
}

func (l *ValkeyOrphanLedger) key(publicID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, publicID)
}

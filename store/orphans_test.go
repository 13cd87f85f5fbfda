package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"profile-service/config"
	"profile-service/models"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestLedger(t *testing.T) (*ValkeyOrphanLedger, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	ledger := &ValkeyOrphanLedger{
		client: client,
		prefix: "profile:orphan",
		ttl:    time.Hour,
		now:    func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return ledger, mock
}

func TestRecordStoresOrphanWithTTL(t *testing.T) {
	ledger, mock := newTestLedger(t)
	asset := models.UploadedAsset{
		URL:      "https://res.cloudinary.com/demo/image/upload/v1/avatars/abc.jpg",
		PublicID: "avatars/abc",
	}
	payload := `{"url":"https://res.cloudinary.com/demo/image/upload/v1/avatars/abc.jpg","publicId":"avatars/abc","reason":"persist failed","recordedAt":"2024-05-01T12:00:00Z"}`

	mock.ExpectSet("profile:orphan:avatars/abc", []byte(payload), time.Hour).SetVal("OK")

	assert.NoError(t, ledger.Record(context.Background(), asset, "persist failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPropagatesErrors(t *testing.T) {
	ledger, mock := newTestLedger(t)
	asset := models.UploadedAsset{URL: "u", PublicID: "p"}
	payload := `{"url":"u","publicId":"p","reason":"r","recordedAt":"2024-05-01T12:00:00Z"}`

	mock.ExpectSet("profile:orphan:p", []byte(payload), time.Hour).SetErr(errors.New("READONLY"))

	assert.Error(t, ledger.Record(context.Background(), asset, "r"))
}

func TestNewValkeyOrphanLedger(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	original := newRedisClient
	newRedisClient = func(opt *redis.Options) *redis.Client {
		assert.Equal(t, "localhost:6379", opt.Addr)
		assert.Equal(t, 3, opt.DB)
		return client
	}
	defer func() { newRedisClient = original }()

	ledger, err := NewValkeyOrphanLedger(config.ValkeyConfig{
		Addr:      "localhost:6379",
		DB:        3,
		Prefix:    "profile:orphan",
		OrphanTTL: time.Hour,
	})
	assert.NoError(t, err)
	assert.Equal(t, "profile:orphan:x", ledger.key("x"))
	assert.Equal(t, time.Hour, ledger.ttl)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewValkeyOrphanLedgerPingError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	original := newRedisClient
	newRedisClient = func(opt *redis.Options) *redis.Client { return client }
	defer func() { newRedisClient = original }()

	_, err := NewValkeyOrphanLedger(config.ValkeyConfig{Addr: "localhost:6379"})
	assert.Error(t, err)
}

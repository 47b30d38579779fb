package share

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/config"
)

const keyPrefix = "comb:share:"

// RedisStore keeps every shared combination as a redis list of section ids
type RedisStore struct {
	rdb       *goredis.Client
	logger    *zap.Logger
	keyLength int
	ttl       time.Duration
}

// NewRedisStore connects to redis and checks the connection with a ping
func NewRedisStore(cfg *config.RedisConfig, share *config.ShareConfig, logger *zap.Logger) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))

	keyLength := share.KeyLength
	if keyLength <= 0 {
		keyLength = DefaultKeyLength
	}
	return &RedisStore{rdb: rdb, logger: logger, keyLength: keyLength, ttl: share.TTL}, nil
}

func (store *RedisStore) Save(ctx context.Context, ids []uint64) (string, error) {
	if len(ids) == 0 {
		return "", ErrEmpty
	}

	key, err := freshKey(ctx, store.keyLength, func(ctx context.Context, key string) (bool, error) {
		n, err := store.rdb.Exists(ctx, keyPrefix+key).Result()
		return n > 0, err
	})
	if err != nil {
		return "", err
	}

	values := lo.Map(ids, func(id uint64, _ int) any {
		return strconv.FormatUint(id, 10)
	})
	pipe := store.rdb.TxPipeline()
	pipe.RPush(ctx, keyPrefix+key, values...)
	if store.ttl > 0 {
		pipe.Expire(ctx, keyPrefix+key, store.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	store.logger.Debug("combination shared", zap.String("key", key), zap.Int("sections", len(ids)))
	return key, nil
}

func (store *RedisStore) Load(ctx context.Context, key string) ([]uint64, error) {
	values, err := store.rdb.LRange(ctx, keyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	ids := make([]uint64, 0, len(values))
	for _, value := range values {
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("shared combination %q holds an invalid section id %q: %w", key, value, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (store *RedisStore) Delete(ctx context.Context, key string) error {
	return store.rdb.Del(ctx, keyPrefix+key).Err()
}

func (store *RedisStore) Close() error {
	return store.rdb.Close()
}

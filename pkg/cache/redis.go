package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PriceStore keeps last traded prices where other instances can read them.
type PriceStore interface {
	SetPrice(ctx context.Context, key string, price float64, ttl time.Duration) error
	GetPrice(ctx context.Context, key string) (float64, bool, error)
	Close() error
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

type redisPriceStore struct {
	cli       *redis.Client
	namespace string
}

func NewRedisPriceStore(cfg RedisConfig) PriceStore {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &redisPriceStore{cli: rdb, namespace: cfg.Namespace}
}

func (r *redisPriceStore) SetPrice(ctx context.Context, key string, price float64, ttl time.Duration) error {
	return r.cli.Set(ctx, r.namespace+key, strconv.FormatFloat(price, 'f', -1, 64), ttl).Err()
}

func (r *redisPriceStore) GetPrice(ctx context.Context, key string) (float64, bool, error) {
	val, err := r.cli.Get(ctx, r.namespace+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *redisPriceStore) Close() error {
	return r.cli.Close()
}

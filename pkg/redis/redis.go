package redis

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultSentenceTTL = 24 * time.Hour

// IRedis caches generated sentences. It satisfies oracle.SentenceCache.
type IRedis interface {
	GetSentence(ctx context.Context, key string) (string, bool, error)
	SetSentence(ctx context.Context, key string, sentence string, ttl time.Duration) error
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

// New connects to REDIS_ADDRESS. It returns nil when no address is set.
func New(log *logrus.Logger) (IRedis, error) {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		return nil, nil
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	log.WithField("address", redisAddr).Info("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Info("Successfully connected to Redis")

	return NewFromClient(client, log), nil
}

func NewFromClient(client *redis.Client, log *logrus.Logger) IRedis {
	return &redisClient{client: client, log: log}
}

func (r *redisClient) GetSentence(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		r.log.WithField("key", key).Debug("Sentence cache miss")
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	r.log.WithField("key", key).Debug("Sentence cache hit")
	return val, true, nil
}

func (r *redisClient) SetSentence(ctx context.Context, key string, sentence string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSentenceTTL
	}
	return r.client.Set(ctx, key, sentence, ttl).Err()
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

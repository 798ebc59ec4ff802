package reputation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipKeyPrefix    = "fraudscope:rep:ip:"
	emailKeyPrefix = "fraudscope:rep:email:"

	redisPingTimeout = 5 * time.Second
)

// RedisConfig addresses the Redis instance holding reputation hashes.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps one Redis hash per IP and per e-mail hash.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IP(ctx context.Context, ip string) (IPReputation, bool, error) {
	h, err := s.client.HGetAll(ctx, ipKeyPrefix+ip).Result()
	if err != nil {
		return IPReputation{}, false, fmt.Errorf("ip reputation %s: %w", ip, err)
	}
	if len(h) == 0 {
		return IPReputation{}, false, nil
	}
	return IPReputation{
		RiskScore: parseFloat(h["risk_score"]),
		IsProxy:   parseBool(h["is_proxy"]),
		IsVPN:     parseBool(h["is_vpn"]),
	}, true, nil
}

func (s *RedisStore) Email(ctx context.Context, emailHash string) (EmailReputation, bool, error) {
	h, err := s.client.HGetAll(ctx, emailKeyPrefix+emailHash).Result()
	if err != nil {
		return EmailReputation{}, false, fmt.Errorf("email reputation: %w", err)
	}
	if len(h) == 0 {
		return EmailReputation{}, false, nil
	}
	return EmailReputation{
		RiskScore:    parseFloat(h["risk_score"]),
		IsDisposable: parseBool(h["is_disposable"]),
	}, true, nil
}

func (s *RedisStore) PutIP(ctx context.Context, ip string, rep IPReputation) error {
	return s.client.HSet(ctx, ipKeyPrefix+ip,
		"risk_score", rep.RiskScore,
		"is_proxy", rep.IsProxy,
		"is_vpn", rep.IsVPN,
		"updated_at", time.Now().Unix(),
	).Err()
}

func (s *RedisStore) PutEmail(ctx context.Context, email string, rep EmailReputation) error {
	return s.client.HSet(ctx, emailKeyPrefix+EmailHash(email),
		"risk_score", rep.RiskScore,
		"is_disposable", rep.IsDisposable,
		"updated_at", time.Now().Unix(),
	).Err()
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseBool accepts what go-redis writes for a bool ("1"/"0") and "true"/"false".
func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/subiekt-planner/backend/internal/config"
	"github.com/subiekt-planner/backend/internal/planner"
)

const (
	planKeyPrefix  = "plan:rows"
	scanBatchSize  = 100
	defaultPlanTTL = time.Minute
)

// PlanCache stores computed plans keyed by their parameters and the
// enrichment flag; a plain plan and an enriched plan for the same
// selection are different payloads and must never share an entry. Every
// ingest batch invalidates the whole prefix; plan inputs may have just
// changed under us.
type PlanCache interface {
	GetPlan(ctx context.Context, params planner.Params, enrich bool) ([]planner.EnrichedRow, bool, error)
	SetPlan(ctx context.Context, params planner.Params, enrich bool, rows []planner.EnrichedRow) error
	InvalidatePlans(ctx context.Context) error
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.PlanTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultPlanTTL
	}

	return &redisPlanCache{client: client, ttl: ttl}, nil
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) GetPlan(ctx context.Context, params planner.Params, enrich bool) ([]planner.EnrichedRow, bool, error) {
	payload, err := c.client.Get(ctx, buildPlanKey(params, enrich)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rows []planner.EnrichedRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}
	return rows, true, nil
}

func (c *redisPlanCache) SetPlan(ctx context.Context, params planner.Params, enrich bool, rows []planner.EnrichedRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}

	if err := c.client.Set(ctx, buildPlanKey(params, enrich), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisPlanCache) InvalidatePlans(ctx context.Context) error {
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, planKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (n *noopPlanCache) GetPlan(ctx context.Context, params planner.Params, enrich bool) ([]planner.EnrichedRow, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) SetPlan(ctx context.Context, params planner.Params, enrich bool, rows []planner.EnrichedRow) error {
	return nil
}

func (n *noopPlanCache) InvalidatePlans(ctx context.Context) error {
	return nil
}

func buildPlanKey(params planner.Params, enrich bool) string {
	payload, err := json.Marshal(struct {
		Params planner.Params `json:"params"`
		Enrich bool           `json:"enrich"`
	}{params, enrich})
	if err != nil {
		return planKeyPrefix + ":invalid"
	}
	sum := sha1.Sum(payload)
	return fmt.Sprintf("%s:%s", planKeyPrefix, hex.EncodeToString(sum[:]))
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

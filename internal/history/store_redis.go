package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/omok-client/internal/domain"
)

const ttlHistory = 90 * 24 * time.Hour

// RedisStore keeps a capped list of recent games and outcome counters per
// player.
type RedisStore struct {
	rdb    *redis.Client
	player string
	limit  int
}

func NewRedisStore(rdb *redis.Client, player string, limit int) *RedisStore {
	if limit <= 0 {
		limit = 50
	}
	p := strings.TrimSpace(player)
	if p == "" {
		p = "anonymous"
	}
	return &RedisStore{rdb: rdb, player: p, limit: limit}
}

// OpenRedis parses a redis:// URL and checks the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) keyResults() string { return "omok:results:" + s.player }
func (s *RedisStore) keyStats() string   { return "omok:stats:" + s.player }

func (s *RedisStore) Record(ctx context.Context, g domain.GameSummary) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, s.keyResults(), raw)
		p.LTrim(ctx, s.keyResults(), 0, int64(s.limit-1))
		p.Expire(ctx, s.keyResults(), ttlHistory)
		p.HIncrBy(ctx, s.keyStats(), "games", 1)
		p.HIncrBy(ctx, s.keyStats(), string(g.Outcome), 1)
		p.Expire(ctx, s.keyStats(), ttlHistory)
		return nil
	})
	return err
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]domain.GameSummary, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	rows, err := s.rdb.LRange(ctx, s.keyResults(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameSummary, 0, len(rows))
	for _, row := range rows {
		var g domain.GameSummary
		if err := json.Unmarshal([]byte(row), &g); err != nil {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	m, err := s.rdb.HGetAll(ctx, s.keyStats()).Result()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for field, v := range m {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		if field == "games" {
			continue
		}
		st.add(domain.Outcome(field), n)
	}
	return st, nil
}

package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RankingCache keeps a Redis ZSET per exam with each student's best
// percentage. MongoDB stays the source of truth; the cache only serves the
// leaderboard read path and is rebuilt lazily on writes.
type RankingCache interface {
	UpdateScore(ctx context.Context, examID, studentID string, percentage float64) error
	GetTop(ctx context.Context, examID string, limit int) ([]RankingEntry, error)
	GetRank(ctx context.Context, examID, studentID string) (int64, error)
}

type RankingEntry struct {
	StudentID  string  `json:"studentId"`
	Percentage float64 `json:"percentage"`
	Rank       int     `json:"rank"`
}

type rankingCache struct {
	client *redis.Client
}

func NewRankingCache(client *redis.Client) RankingCache {
	return &rankingCache{client: client}
}

func (c *rankingCache) key(examID string) string {
	return fmt.Sprintf("exam:%s:ranking", examID)
}

// UpdateScore keeps the best attempt: ZADD GT only moves a member up.
func (c *rankingCache) UpdateScore(ctx context.Context, examID, studentID string, percentage float64) error {
	return c.client.ZAddGT(ctx, c.key(examID), redis.Z{
		Score:  percentage,
		Member: studentID,
	}).Err()
}

func (c *rankingCache) GetTop(ctx context.Context, examID string, limit int) ([]RankingEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(examID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, len(results))
	for i, z := range results {
		entries[i] = RankingEntry{
			StudentID:  z.Member.(string),
			Percentage: z.Score,
			Rank:       i + 1,
		}
	}
	return entries, nil
}

func (c *rankingCache) GetRank(ctx context.Context, examID, studentID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(examID), studentID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err
}

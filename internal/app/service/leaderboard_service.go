package service

import (
	"context"
	"fmt"

	"codejudge/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:solved"

// LeaderboardService keeps per-user solve counts in a Redis sorted set.
type LeaderboardService struct {
	rdb *redis.Client
}

func NewLeaderboardService(rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{rdb: rdb}
}

func (s *LeaderboardService) IncrementSolved(ctx context.Context, userID string) error {
	if err := s.rdb.ZIncrBy(ctx, leaderboardKey, 1, userID).Err(); err != nil {
		return fmt.Errorf("LeaderboardService.IncrementSolved: %w", err)
	}
	return nil
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("LeaderboardService.Top: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(members))
	for i, member := range members {
		entries = append(entries, model.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         member.Member.(string),
			ProblemsSolved: int(member.Score),
		})
	}
	return entries, nil
}

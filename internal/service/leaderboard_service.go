package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codearena-api/internal/dto"
	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/observability"
	"github.com/noah-isme/codearena-api/internal/repository"
)

// LeaderboardCacheKey is the Redis key holding the rendered global leaderboard.
const LeaderboardCacheKey = "leaderboard:global"

// leaderboardVersionKey is bumped on every invalidation. A rebuilt leaderboard is only cached when
// the version is unchanged since the rebuild started.
const leaderboardVersionKey = LeaderboardCacheKey + ":version"

var errStaleLeaderboard = errors.New("leaderboard invalidated during rebuild")

// LeaderboardService ranks users by points earned from solved problems.
type LeaderboardService interface {
	Global(ctx context.Context, limit int) (dto.LeaderboardResponse, error)
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	progress repository.ProgressRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewLeaderboardService constructs the leaderboard service. A nil cache disables caching.
func NewLeaderboardService(progress repository.ProgressRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &leaderboardService{
		progress: progress,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "leaderboard_service").Logger(),
		now:      time.Now,
	}
}

func (s *leaderboardService) Global(ctx context.Context, limit int) (dto.LeaderboardResponse, error) {
	response, ok := s.fromCache(ctx)
	if !ok {
		version, versionOK := s.version(ctx)

		var err error
		response, err = s.build(ctx)
		if err != nil {
			return dto.LeaderboardResponse{}, err
		}
		if versionOK {
			s.store(ctx, response, version)
		}
	}

	if limit > 0 && len(response.Entries) > limit {
		response.Entries = response.Entries[:limit]
	}
	return response, nil
}

// Invalidate drops the cached leaderboard so the next read recomputes it.
func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, leaderboardVersionKey)
		pipe.Del(ctx, LeaderboardCacheKey)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *leaderboardService) version(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.Get(ctx, leaderboardVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		s.logger.Warn().Err(err).Msg("failed to read leaderboard cache version")
		return 0, false
	}
	return version, true
}

func (s *leaderboardService) fromCache(ctx context.Context) (dto.LeaderboardResponse, bool) {
	if s.cache == nil {
		return dto.LeaderboardResponse{}, false
	}

	cached, err := s.cache.Get(ctx, LeaderboardCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
		observability.LeaderboardCacheLookups().WithLabelValues("miss").Inc()
		return dto.LeaderboardResponse{}, false
	}

	var response dto.LeaderboardResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed leaderboard cache entry")
		observability.LeaderboardCacheLookups().WithLabelValues("miss").Inc()
		return dto.LeaderboardResponse{}, false
	}

	observability.LeaderboardCacheLookups().WithLabelValues("hit").Inc()
	response.Cached = true
	return response, true
}

func (s *leaderboardService) store(ctx context.Context, response dto.LeaderboardResponse, version int64) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, leaderboardVersionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleLeaderboard
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, LeaderboardCacheKey, payload, s.cacheTTL)
			return nil
		})
		return err
	}, leaderboardVersionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleLeaderboard), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug().Msg("skipping leaderboard cache store after invalidation")
	default:
		s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
	}
}

func (s *leaderboardService) build(ctx context.Context) (dto.LeaderboardResponse, error) {
	rows, err := s.progress.SolvedCounts(ctx)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	byUser := make(map[string]*dto.LeaderboardEntry)
	for _, row := range rows {
		entry, ok := byUser[row.UserID]
		if !ok {
			entry = &dto.LeaderboardEntry{UserID: row.UserID, Username: row.Username}
			byUser[row.UserID] = entry
		}

		count := int(row.Solved)
		switch row.Difficulty {
		case models.DifficultyEasy:
			entry.Easy += count
		case models.DifficultyMedium:
			entry.Medium += count
		case models.DifficultyHard:
			entry.Hard += count
		}
		entry.Solved += count
		entry.Points += count * models.DifficultyPoints(row.Difficulty)
	}

	entries := make([]dto.LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		if entry.Username == "" {
			entry.Username = entry.UserID
		}
		entry.DisplayName = models.User{Username: entry.Username}.DisplayName()
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return dto.LeaderboardResponse{
		Entries:     entries,
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}, nil
}

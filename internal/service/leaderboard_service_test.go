package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/repository"
)

func TestLeaderboardServiceRanksByPointsAndCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newArenaDB(t)
	easy := createProblem(t, db, "Easy", models.DifficultyEasy)
	medium := createProblem(t, db, "Medium", models.DifficultyMedium)
	hard := createProblem(t, db, "Hard", models.DifficultyHard)

	require.NoError(t, db.Create(&models.User{ID: "a", Username: "alice_user"}).Error)
	require.NoError(t, db.Create(&models.User{ID: "b", Username: "bob"}).Error)
	require.NoError(t, db.Create(&models.User{ID: "c", Username: "carol"}).Error)

	progress := repository.NewProgressRepository(db)
	ctx := context.Background()
	require.NoError(t, progress.UpsertSolved(ctx, "a", easy.ID, 1))
	require.NoError(t, progress.UpsertSolved(ctx, "a", medium.ID, 2))
	require.NoError(t, progress.UpsertSolved(ctx, "b", hard.ID, 3))
	require.NoError(t, progress.UpsertSolved(ctx, "c", easy.ID, 4))

	svc := NewLeaderboardService(progress, redisClient, time.Minute, zerolog.Nop())

	board, err := svc.Global(ctx, 0)
	require.NoError(t, err)
	require.False(t, board.Cached)
	require.Len(t, board.Entries, 3)

	require.Equal(t, "alice_user", board.Entries[0].Username)
	require.Equal(t, "alice", board.Entries[0].DisplayName)
	require.Equal(t, 3, board.Entries[0].Points)
	require.Equal(t, 1, board.Entries[0].Easy)
	require.Equal(t, 1, board.Entries[0].Medium)
	require.Equal(t, 2, board.Entries[0].Solved)
	require.Equal(t, 1, board.Entries[0].Rank)

	require.Equal(t, "bob", board.Entries[1].Username)
	require.Equal(t, 3, board.Entries[1].Points)
	require.Equal(t, 2, board.Entries[1].Rank)

	require.Equal(t, "carol", board.Entries[2].Username)
	require.Equal(t, 1, board.Entries[2].Points)

	require.True(t, mini.Exists(LeaderboardCacheKey))
	ttl := mini.TTL(LeaderboardCacheKey)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, progress.UpsertSolved(ctx, "c", hard.ID, 5))

	cached, err := svc.Global(ctx, 2)
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.Len(t, cached.Entries, 2)
	require.Equal(t, "alice_user", cached.Entries[0].Username)

	svc.Invalidate(ctx)
	fresh, err := svc.Global(ctx, 0)
	require.NoError(t, err)
	require.False(t, fresh.Cached)
	require.Equal(t, "carol", fresh.Entries[0].Username)
	require.Equal(t, 4, fresh.Entries[0].Points)
}

func TestLeaderboardServiceWithoutCache(t *testing.T) {
	db := newArenaDB(t)
	problem := createProblem(t, db, "Easy", models.DifficultyEasy)
	progress := repository.NewProgressRepository(db)
	require.NoError(t, progress.UpsertSolved(context.Background(), "ghost", problem.ID, 1))

	svc := NewLeaderboardService(progress, nil, 0, zerolog.Nop())
	board, err := svc.Global(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	require.Equal(t, "ghost", board.Entries[0].Username)

	svc.Invalidate(context.Background())
}

type invalidatingProgress struct {
	repository.ProgressRepository
	onCount func()
}

func (p *invalidatingProgress) SolvedCounts(ctx context.Context) ([]repository.SolvedCount, error) {
	rows, err := p.ProgressRepository.SolvedCounts(ctx)
	if p.onCount != nil {
		p.onCount()
		p.onCount = nil
	}
	return rows, err
}

func TestLeaderboardServiceSkipsCacheWhenInvalidatedDuringRebuild(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newArenaDB(t)
	easy := createProblem(t, db, "Easy", models.DifficultyEasy)
	hard := createProblem(t, db, "Hard", models.DifficultyHard)
	require.NoError(t, db.Create(&models.User{ID: "a", Username: "ada"}).Error)

	ctx := context.Background()
	base := repository.NewProgressRepository(db)
	require.NoError(t, base.UpsertSolved(ctx, "a", easy.ID, 1))

	progress := &invalidatingProgress{ProgressRepository: base}
	svc := NewLeaderboardService(progress, redisClient, time.Minute, zerolog.Nop())

	// A submission lands and invalidates after the rows were read but before the cache write.
	progress.onCount = func() {
		require.NoError(t, base.UpsertSolved(ctx, "a", hard.ID, 2))
		svc.Invalidate(ctx)
	}

	stale, err := svc.Global(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, stale.Entries[0].Points)
	require.False(t, mini.Exists(LeaderboardCacheKey))

	fresh, err := svc.Global(ctx, 0)
	require.NoError(t, err)
	require.False(t, fresh.Cached)
	require.Equal(t, 4, fresh.Entries[0].Points)
	require.True(t, mini.Exists(LeaderboardCacheKey))

	cached, err := svc.Global(ctx, 0)
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.Equal(t, 4, cached.Entries[0].Points)
}

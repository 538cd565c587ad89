package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codearena-api/internal/models"
)

func TestProgressRepositoryUpsertSolvedKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)
	problem := seedProblem(t, db, "Two Sum", models.DifficultyEasy)
	ctx := context.Background()

	require.NoError(t, repo.UpsertSolved(ctx, "u1", problem.ID, 10))
	require.NoError(t, repo.UpsertSolved(ctx, "u1", problem.ID, 11))

	var rows []models.UserProgress
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, models.ProgressStatusSolved, rows[0].Status)
	require.Equal(t, uint(11), rows[0].LastSubmissionID)
}

func TestProgressRepositoryListByUserPreloadsProblem(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)
	problem := seedProblem(t, db, "Reverse List", models.DifficultyMedium)
	ctx := context.Background()

	require.NoError(t, repo.UpsertSolved(ctx, "u2", problem.ID, 1))

	rows, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Reverse List", rows[0].Problem.Title)
	require.Equal(t, models.DifficultyMedium, rows[0].Problem.Difficulty)
}

func TestProgressRepositorySolvedCountsGroupsByDifficulty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	easy := seedProblem(t, db, "Easy one", models.DifficultyEasy)
	easy2 := seedProblem(t, db, "Easy two", models.DifficultyEasy)
	hard := seedProblem(t, db, "Hard one", models.DifficultyHard)
	require.NoError(t, db.Create(&models.User{ID: "alice", Username: "alice_user"}).Error)

	require.NoError(t, repo.UpsertSolved(ctx, "alice", easy.ID, 1))
	require.NoError(t, repo.UpsertSolved(ctx, "alice", easy2.ID, 2))
	require.NoError(t, repo.UpsertSolved(ctx, "alice", hard.ID, 3))
	require.NoError(t, repo.UpsertSolved(ctx, "bob", easy.ID, 4))

	rows, err := repo.SolvedCounts(ctx)
	require.NoError(t, err)

	byKey := map[string]SolvedCount{}
	for _, row := range rows {
		byKey[row.UserID+"/"+row.Difficulty] = row
	}
	require.Len(t, byKey, 3)
	require.Equal(t, int64(2), byKey["alice/Easy"].Solved)
	require.Equal(t, "alice_user", byKey["alice/Easy"].Username)
	require.Equal(t, int64(1), byKey["alice/Hard"].Solved)
	require.Equal(t, int64(1), byKey["bob/Easy"].Solved)
	require.Equal(t, "", byKey["bob/Easy"].Username)
}

package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Problem{}, &models.Submission{}, &models.UserProgress{}))
	return db
}

func seedProblem(t *testing.T, db *gorm.DB, title, difficulty string) models.Problem {
	t.Helper()
	problem := models.Problem{
		Title:       title,
		Description: title + " description",
		Difficulty:  difficulty,
		Inputs:      []byte(`[[1,2]]`),
		Outputs:     []byte(`[3]`),
	}
	require.NoError(t, db.Create(&problem).Error)
	return problem
}

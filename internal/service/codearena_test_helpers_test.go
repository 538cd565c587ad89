package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codearena-api/internal/models"
	"github.com/noah-isme/codearena-api/internal/sandbox"
)

func newArenaDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Problem{}, &models.Submission{}, &models.UserProgress{}))
	return db
}

func createProblem(t *testing.T, db *gorm.DB, title, difficulty string) models.Problem {
	t.Helper()
	problem := models.Problem{
		Title:       title,
		Description: title,
		Difficulty:  difficulty,
		Inputs:      []byte(`[[2,3],[1,4]]`),
		Outputs:     []byte(`[5,5]`),
	}
	require.NoError(t, db.Create(&problem).Error)
	return problem
}

type stubRunner struct {
	mu       sync.Mutex
	outcome  sandbox.Outcome
	err      error
	programs []string
}

func (s *stubRunner) Name() string { return "stub" }

func (s *stubRunner) Run(ctx context.Context, program string) (sandbox.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = append(s.programs, program)
	return s.outcome, s.err
}

func (s *stubRunner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.programs)
}

type stubRecorder struct {
	records []SubmissionRecord
	id      uint
	ok      bool
}

func (s *stubRecorder) Record(ctx context.Context, record SubmissionRecord) (uint, bool) {
	s.records = append(s.records, record)
	return s.id, s.ok
}

type stubPublisher struct {
	mu     sync.Mutex
	events []SubmissionEvent
}

func (s *stubPublisher) Publish(ctx context.Context, event SubmissionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(ctx context.Context) {
	s.calls++
}

func uintPtr(v uint) *uint {
	return &v
}

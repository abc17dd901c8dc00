package services

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/hiresense/internal/models"
	"alfredoptarigan/hiresense/internal/repositories"
	"alfredoptarigan/hiresense/internal/scoring"
)

func newTestRunRepo(t *testing.T) repositories.MatchRunRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.MatchRun{}, &models.MatchRunResume{}))
	return repositories.NewMatchRunRepository(db)
}

func TestMatchRun_SubmitValidates(t *testing.T) {
	svc := NewMatchRunService(newTestRunRepo(t), newTestMatcherService(nil, nil, MatcherOptions{}), 1, zap.NewNop())

	_, err := svc.Submit("", []Candidate{{Filename: "a.txt", Content: "x"}})
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)

	_, err = svc.Submit(testJD, nil)
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)

	_, err = svc.Submit(testJD, []Candidate{{Filename: "a.txt", Content: "x"}, {Filename: "b.txt", Content: "y"}})
	assert.ErrorIs(t, err, ErrTooManyResumes)
}

func TestMatchRun_ProcessStoresRankedResults(t *testing.T) {
	repo := newTestRunRepo(t)
	svc := NewMatchRunService(repo, newTestMatcherService(nil, nil, MatcherOptions{}), 0, zap.NewNop())

	run, err := svc.Submit(testJD, []Candidate{
		{Filename: "weak.txt", Content: "Gardening"},
		{Filename: "strong.txt", Content: "golang golang Python SQL AWS"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, run.Status)

	require.NoError(t, svc.ProcessRun(context.Background(), run.ID))

	got, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.RankedCount)
	assert.Zero(t, got.FailedCount)
	require.Len(t, got.Resumes, 2)

	weak, strong := got.Resumes[0], got.Resumes[1]
	assert.Equal(t, "weak.txt", weak.Filename)
	require.NotNil(t, strong.Rank)
	assert.Equal(t, 1, *strong.Rank)
	require.NotNil(t, weak.Rank)
	assert.Equal(t, 2, *weak.Rank)
	require.NotNil(t, strong.Prediction)
	assert.Equal(t, string(scoring.LabelFit), *strong.Prediction)
	assert.Empty(t, strong.MissingSkills)
	assert.Greater(t, *strong.Score, *weak.Score)
}

func TestMatchRun_ProcessSkipsClaimedRun(t *testing.T) {
	repo := newTestRunRepo(t)
	svc := NewMatchRunService(repo, newTestMatcherService(nil, nil, MatcherOptions{}), 0, zap.NewNop())

	run, err := svc.Submit(testJD, []Candidate{{Filename: "a.txt", Content: "python"}})
	require.NoError(t, err)

	claimed, err := repo.Claim(run.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, svc.ProcessRun(context.Background(), run.ID))

	got, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestMatchRun_ProcessRecordsFailure(t *testing.T) {
	repo := newTestRunRepo(t)
	svc := NewMatchRunService(repo, newTestMatcherService(nil, nil, MatcherOptions{MaxResumes: 1}), 0, zap.NewNop())

	run, err := svc.Submit(testJD, []Candidate{
		{Filename: "a.txt", Content: "python"},
		{Filename: "b.txt", Content: "sql"},
	})
	require.NoError(t, err)

	err = svc.ProcessRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, ErrTooManyResumes)

	got, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "too many resumes")
}

type failingSaveRepo struct {
	repositories.MatchRunRepository
}

func (failingSaveRepo) SaveResults(uuid.UUID, []models.RunResult) error {
	return errors.New("database is locked")
}

func TestMatchRun_ProcessFailsRunWhenSaveFails(t *testing.T) {
	repo := newTestRunRepo(t)
	svc := NewMatchRunService(failingSaveRepo{repo}, newTestMatcherService(nil, nil, MatcherOptions{}), 0, zap.NewNop())

	run, err := svc.Submit(testJD, []Candidate{{Filename: "a.txt", Content: "python"}})
	require.NoError(t, err)

	err = svc.ProcessRun(context.Background(), run.ID)
	assert.ErrorContains(t, err, "database is locked")

	got, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "internal error while matching", *got.ErrorMessage)
}

func TestMatchRun_ProcessUnknownRun(t *testing.T) {
	svc := NewMatchRunService(newTestRunRepo(t), newTestMatcherService(nil, nil, MatcherOptions{}), 0, zap.NewNop())

	assert.NoError(t, svc.ProcessRun(context.Background(), uuid.New()))
}

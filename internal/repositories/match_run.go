package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/hiresense/internal/models"
)

var ErrRunNotFound = errors.New("match run not found")

type MatchRunRepository interface {
	Create(run *models.MatchRun) error
	FindByID(id uuid.UUID) (*models.MatchRun, error)
	List(limit int) ([]models.MatchRun, error)
	Claim(id uuid.UUID) (bool, error)
	SaveResults(id uuid.UUID, results []models.RunResult) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.MatchRun, error)
	ResetProcessing() (int64, error)
}

type matchRunRepository struct {
	db *gorm.DB
}

func NewMatchRunRepository(db *gorm.DB) MatchRunRepository {
	return &matchRunRepository{db: db}
}

// Create inserts the run together with its resumes.
func (r *matchRunRepository) Create(run *models.MatchRun) error {
	run.ResumeCount = len(run.Resumes)
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create match run: %w", err)
	}
	return nil
}

// FindByID loads a run and its resumes in upload order.
func (r *matchRunRepository) FindByID(id uuid.UUID) (*models.MatchRun, error) {
	var run models.MatchRun
	err := r.db.
		Preload("Resumes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to find match run: %w", err)
	}
	return &run, nil
}

// List returns the most recent runs without their resumes.
func (r *matchRunRepository) List(limit int) ([]models.MatchRun, error) {
	var runs []models.MatchRun
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list match runs: %w", err)
	}
	return runs, nil
}

// Claim moves a queued run to processing. It returns false when another
// worker got there first or the run is no longer queued.
func (r *matchRunRepository) Claim(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.MatchRun{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim match run: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SaveResults writes per-resume outcomes and completes the run in one
// transaction.
func (r *matchRunRepository) SaveResults(id uuid.UUID, results []models.RunResult) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		ranked, failed := 0, 0
		for _, res := range results {
			updates := map[string]interface{}{}
			if res.FailureReason != "" {
				failed++
				updates["failure_reason"] = res.FailureReason
			} else {
				ranked++
				updates["rank"] = res.Rank
				updates["score"] = res.Score
				updates["prediction"] = string(res.Prediction)
				updates["matched_skills"] = serializedSkills(res.MatchedSkills)
				updates["missing_skills"] = serializedSkills(res.MissingSkills)
			}

			err := tx.Model(&models.MatchRunResume{}).
				Where("run_id = ? AND position = ?", id, res.Position).
				Updates(updates).Error
			if err != nil {
				return fmt.Errorf("failed to save result for position %d: %w", res.Position, err)
			}
		}

		now := time.Now()
		result := tx.Model(&models.MatchRun{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":       models.StatusCompleted,
				"ranked_count": ranked,
				"failed_count": failed,
				"completed_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete match run: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRunNotFound
		}
		return nil
	})
}

func (r *matchRunRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	now := time.Now()
	result := r.db.Model(&models.MatchRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"completed_at":  now,
			"updated_at":    now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *matchRunRepository) FindPendingJobs(limit int) ([]models.MatchRun, error) {
	var runs []models.MatchRun
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}

	return runs, nil
}

// ResetProcessing puts runs left in processing by a stopped worker back
// in the queue. It returns how many runs were re-queued.
func (r *matchRunRepository) ResetProcessing() (int64, error) {
	result := r.db.Model(&models.MatchRun{}).
		Where("status = ?", models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset processing runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// serializedSkills encodes skills the way the json serializer on
// MatchRunResume stores them; map updates bypass the serializer.
func serializedSkills(skills []string) string {
	if skills == nil {
		skills = []string{}
	}
	b, _ := json.Marshal(skills)
	return string(b)
}

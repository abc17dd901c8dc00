package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/models"
	"alfredoptarigan/hiresense/internal/repositories"
	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/services"
)

const listRunsLimit = 20

type MatchRunHandler struct {
	runRepo  repositories.MatchRunRepository
	runs     services.MatchRunService
	sessions services.SessionService
	worker   services.Worker
	log      *zap.Logger
}

func NewMatchRunHandler(
	runRepo repositories.MatchRunRepository,
	runs services.MatchRunService,
	sessions services.SessionService,
	worker services.Worker,
	log *zap.Logger,
) *MatchRunHandler {
	return &MatchRunHandler{
		runRepo:  runRepo,
		runs:     runs,
		sessions: sessions,
		worker:   worker,
		log:      log,
	}
}

// HandleCreate handles POST /match/async. The session is copied into a run
// and matched in the background.
func (h *MatchRunHandler) HandleCreate(c *fiber.Ctx) error {
	snap := h.sessions.Snapshot()
	if snap.JobDescription == nil {
		return respondError(c, h.log, &services.PrerequisiteError{Missing: services.NeedJobDescription})
	}

	run, err := h.runs.Submit(snap.JobDescription.Content, services.CandidatesFrom(snap.Resumes))
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.worker.EnqueueJob(run.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.MatchRunCreatedResponse{
		ID:     run.ID.String(),
		Status: string(run.Status),
	})
}

// HandleGet handles GET /match/runs/:id.
func (h *MatchRunHandler) HandleGet(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid match run ID format",
		})
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	resp := runResponse(run)

	if run.Status == models.StatusCompleted {
		resp.Result = runResult(run.Resumes)
	}

	return c.JSON(resp)
}

// HandleList handles GET /match/runs.
func (h *MatchRunHandler) HandleList(c *fiber.Ctx) error {
	runs, err := h.runRepo.List(listRunsLimit)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]models.MatchRunResponse, len(runs))
	for i := range runs {
		out[i] = runResponse(&runs[i])
	}
	return c.JSON(fiber.Map{"runs": out})
}

func runResponse(run *models.MatchRun) models.MatchRunResponse {
	return models.MatchRunResponse{
		ID:           run.ID.String(),
		Status:       string(run.Status),
		ResumeCount:  run.ResumeCount,
		CreatedAt:    run.CreatedAt,
		CompletedAt:  run.CompletedAt,
		ErrorMessage: run.ErrorMessage,
	}
}

// runResult rebuilds the ranking from stored rows.
func runResult(resumes []models.MatchRunResume) *models.MatchResponse {
	res := &models.MatchResponse{RankedResumes: []scoring.Ranked{}}

	ranked := make([]models.MatchRunResume, 0, len(resumes))
	for _, r := range resumes {
		switch {
		case r.FailureReason != nil:
			res.Failed = append(res.Failed, models.FailedResume{Filename: r.Filename, Reason: *r.FailureReason})
		case r.Rank != nil && r.Score != nil:
			ranked = append(ranked, r)
		}
	}

	rows := make([]scoring.Ranked, len(ranked))
	for _, r := range ranked {
		idx := *r.Rank - 1
		if idx < 0 || idx >= len(rows) {
			continue
		}
		row := scoring.Ranked{
			Filename:      r.Filename,
			Score:         *r.Score,
			MatchedSkills: r.MatchedSkills,
			MissingSkills: r.MissingSkills,
			Hybrid:        *r.Score / 100,
		}
		if r.Prediction != nil {
			row.Prediction = scoring.Label(*r.Prediction)
		}
		rows[idx] = row
	}
	res.RankedResumes = rows
	return res
}

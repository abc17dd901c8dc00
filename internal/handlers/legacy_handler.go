package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/services"
)

// LegacyHandler serves the embedding cosine-similarity ranking kept next
// to the hybrid matcher.
type LegacyHandler struct {
	sessions services.SessionService
	legacy   services.LegacySimilarityService
	log      *zap.Logger
}

func NewLegacyHandler(sessions services.SessionService, legacy services.LegacySimilarityService, log *zap.Logger) *LegacyHandler {
	return &LegacyHandler{
		sessions: sessions,
		legacy:   legacy,
		log:      log,
	}
}

// HandleMatch handles POST /match/legacy. The session is not modified.
func (h *LegacyHandler) HandleMatch(c *fiber.Ctx) error {
	snap := h.sessions.Snapshot()
	if snap.JobDescription == nil {
		return respondError(c, h.log, &services.PrerequisiteError{Missing: services.NeedJobDescription})
	}

	scores, err := h.legacy.Rank(c.UserContext(), snap.JobDescription.Content, services.CandidatesFrom(snap.Resumes))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{"ranked_resumes": scores})
}

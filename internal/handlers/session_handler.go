package handlers

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/models"
	"alfredoptarigan/hiresense/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
	log      *zap.Logger
}

func NewSessionHandler(sessions services.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log,
	}
}

// HandleUploadJD handles POST /upload-jd. The job description comes either
// as the form field jd_text or as the file jd_upload.
func (h *SessionHandler) HandleUploadJD(c *fiber.Ctx) error {
	if text := c.FormValue("jd_text"); text != "" {
		jd, err := h.sessions.SetJobDescriptionText(text)
		if err != nil {
			return respondError(c, h.log, err)
		}
		return c.JSON(models.JobDescriptionResponse{Source: jd.Source, Content: jd.Content})
	}

	file, err := c.FormFile("jd_upload")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either JD text or JD file must be provided.",
		})
	}

	jd, err := h.sessions.SetJobDescriptionFile(file)
	if err != nil {
		if errors.Is(err, services.ErrExtractionFailure) {
			h.log.Warn("⚠️  Job description extraction failed", zap.String("filename", file.Filename), zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Error extracting text from file",
			})
		}
		return respondError(c, h.log, err)
	}

	return c.JSON(models.JobDescriptionResponse{
		Source:   jd.Source,
		Filename: jd.Filename,
		Content:  jd.Content,
	})
}

// HandleUploadResumes handles POST /upload-resumes/.
func (h *SessionHandler) HandleUploadResumes(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files uploaded. Send one or more resumes as 'files'.",
		})
	}

	outcome, err := h.sessions.UploadResumes(files)
	if err != nil && outcome == nil {
		return respondError(c, h.log, err)
	}

	resp := models.UploadResumesResponse{
		Uploaded: make([]models.UploadedResume, len(outcome.Uploaded)),
		Failed:   failedResumes(outcome.Failed),
	}
	for i, r := range outcome.Uploaded {
		resp.Uploaded[i] = models.UploadedResume{Filename: r.Filename, Content: r.Content}
	}

	if err != nil {
		resp.Message = "No resumes could be read."
		return c.Status(statusFor(err)).JSON(resp)
	}

	resp.Message = fmt.Sprintf("%d resume(s) uploaded", len(resp.Uploaded))
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleMatch handles POST /match/.
func (h *SessionHandler) HandleMatch(c *fiber.Ctx) error {
	outcome, err := h.sessions.Match(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.MatchResponse{
		RankedResumes: outcome.Ranked,
		Failed:        failedResumes(outcome.Failed),
	})
}

// HandleReset handles POST /reset/.
func (h *SessionHandler) HandleReset(c *fiber.Ctx) error {
	removed := h.sessions.Reset()
	return c.JSON(fiber.Map{
		"message": "Session reset.",
		"removed": removed,
	})
}

// HandleInsights handles GET /insights/:filename.
func (h *SessionHandler) HandleInsights(c *fiber.Ctx) error {
	filename, err := filenameParam(c)
	if err != nil {
		return err
	}

	res, err := h.sessions.Insights(c.UserContext(), filename)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.InsightsResponse{
		Filename:      filename,
		MatchedSkills: res.MatchedSkills,
		MissingSkills: res.MissingSkills,
	})
}

// HandleAnalytics handles GET /analytics.
func (h *SessionHandler) HandleAnalytics(c *fiber.Ctx) error {
	summary, err := h.sessions.Analytics()
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}

// HandleAccept handles POST /accept-resume/:filename.
func (h *SessionHandler) HandleAccept(c *fiber.Ctx) error {
	filename, err := filenameParam(c)
	if err != nil {
		return err
	}

	if _, err := h.sessions.Accept(filename); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Resume '%s' has been accepted and moved.", filename),
	})
}

// HandleViewResume handles GET /resumes/:filename and streams the stored
// file inline.
func (h *SessionHandler) HandleViewResume(c *fiber.Ctx) error {
	filename, err := filenameParam(c)
	if err != nil {
		return err
	}

	r, err := h.sessions.ResumeFile(filename)
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentDisposition, "inline")
	if err := c.SendFile(r.Path); err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": fmt.Sprintf("File not found: %s", filename),
			})
		}
		return respondError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, r.ContentType)
	return nil
}

func filenameParam(c *fiber.Ctx) (string, error) {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil || name == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid filename")
	}
	return name, nil
}

func failedResumes(failed []services.FailedFile) []models.FailedResume {
	if len(failed) == 0 {
		return nil
	}
	out := make([]models.FailedResume, len(failed))
	for i, f := range failed {
		out[i] = models.FailedResume{Filename: f.Filename, Reason: f.Reason}
	}
	return out
}

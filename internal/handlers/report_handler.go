package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/services"
)

type ReportHandler struct {
	sessions services.SessionService
	reports  services.ReportService
	log      *zap.Logger
}

func NewReportHandler(sessions services.SessionService, reports services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		sessions: sessions,
		reports:  reports,
		log:      log,
	}
}

// HandleExportExcel handles GET /reports/export-excel.
func (h *ReportHandler) HandleExportExcel(c *fiber.Ctx) error {
	rows, err := h.sessions.Report(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}

	var buf bytes.Buffer
	if err := h.reports.WriteExcel(&buf, rows); err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment("resume_rankings_insights.xlsx")
	return c.Send(buf.Bytes())
}

// HandleExportCSV handles GET /reports/export-csv.
func (h *ReportHandler) HandleExportCSV(c *fiber.Ctx) error {
	rows, err := h.sessions.Report(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}

	var buf bytes.Buffer
	if err := h.reports.WriteCSV(&buf, rows); err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment("resume_rankings_insights.csv")
	return c.Send(buf.Bytes())
}

// HandleDownloadZip handles GET /reports/download-resumes-zip.
func (h *ReportHandler) HandleDownloadZip(c *fiber.Ctx) error {
	snap := h.sessions.Snapshot()
	if len(snap.Resumes) == 0 {
		return respondError(c, h.log, &services.PrerequisiteError{Missing: services.NeedResumes})
	}

	files := make([]services.ArchiveFile, 0, len(snap.Resumes))
	for _, r := range snap.Resumes {
		files = append(files, services.ArchiveFile{Name: r.Filename, Path: r.Path})
	}

	var buf bytes.Buffer
	if _, err := h.reports.WriteResumesZip(&buf, files); err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Attachment("ranked_resumes_original.zip")
	return c.Send(buf.Bytes())
}

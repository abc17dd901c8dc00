package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const appName = "HireSense AI Resume Shortlister"

// Handlers groups everything the router mounts. Legacy and Runs are
// optional.
type Handlers struct {
	Session *SessionHandler
	Reports *ReportHandler
	Runs    *MatchRunHandler
	Legacy  *LegacyHandler
}

type AppOptions struct {
	BodyLimit    int
	RequestLog   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewApp(h Handlers, opts AppOptions, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BodyLimit:    opts.BodyLimit,
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	endpoints := []string{
		"POST /upload-jd",
		"POST /upload-resumes/",
		"POST /match/",
		"POST /reset/",
		"GET /insights/:filename",
		"GET /analytics",
		"GET /reports/export-excel",
		"GET /reports/export-csv",
		"GET /reports/download-resumes-zip",
		"GET /resumes/:filename",
		"POST /accept-resume/:filename",
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	app.Post("/upload-jd", h.Session.HandleUploadJD)
	app.Post("/upload-resumes", h.Session.HandleUploadResumes)
	app.Post("/match", h.Session.HandleMatch)
	app.Post("/reset", h.Session.HandleReset)
	app.Get("/insights/:filename", h.Session.HandleInsights)
	app.Get("/analytics", h.Session.HandleAnalytics)
	app.Get("/resumes/:filename", h.Session.HandleViewResume)
	app.Post("/accept-resume/:filename", h.Session.HandleAccept)

	app.Get("/reports/export-excel", h.Reports.HandleExportExcel)
	app.Get("/reports/export-csv", h.Reports.HandleExportCSV)
	app.Get("/reports/download-resumes-zip", h.Reports.HandleDownloadZip)

	if h.Runs != nil {
		app.Post("/match/async", h.Runs.HandleCreate)
		app.Get("/match/runs", h.Runs.HandleList)
		app.Get("/match/runs/:id", h.Runs.HandleGet)
		endpoints = append(endpoints, "POST /match/async", "GET /match/runs", "GET /match/runs/:id")
	}

	if h.Legacy != nil {
		app.Post("/match/legacy", h.Legacy.HandleMatch)
		endpoints = append(endpoints, "POST /match/legacy")
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Hiresense backend is running 🚀",
			"version":   "1.0.0",
			"endpoints": endpoints,
		})
	})

	return app
}

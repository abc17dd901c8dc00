package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/repositories"
	"alfredoptarigan/hiresense/internal/services"
	"alfredoptarigan/hiresense/internal/session"
)

const internalErrorMessage = "An internal error occurred while processing the request."

// statusFor maps service errors to HTTP status codes. Anything unknown is
// an internal error.
func statusFor(err error) int {
	var prereq *services.PrerequisiteError
	switch {
	case errors.As(err, &prereq):
		if prereq.Missing == services.NeedMatchResults {
			return fiber.StatusBadRequest
		}
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnsupportedFormat):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrExtractionFailure),
		errors.Is(err, services.ErrTooManyResumes):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrResumeNotFound),
		errors.Is(err, repositories.ErrRunNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrStale):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

func messageFor(err error, status int) string {
	switch status {
	case fiber.StatusInternalServerError:
		return internalErrorMessage
	case fiber.StatusGatewayTimeout:
		return "Matching took too long and was cancelled."
	case fiber.StatusConflict:
		return "The session changed while matching. Run the match again."
	}
	if errors.Is(err, session.ErrResumeNotFound) {
		return "Resume not found."
	}
	return err.Error()
}

// respondError writes the JSON error body for err. Internal failures are
// logged and replaced by a generic message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("❌ Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": messageFor(err, status),
	})
}

// ErrorHandler is the fiber fallback for errors returned by handlers and
// middleware.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := internalErrorMessage

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			if code < fiber.StatusInternalServerError {
				msg = e.Message
			}
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("❌ Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": msg,
			"code":  code,
		})
	}
}

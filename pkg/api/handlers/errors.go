package handlers

import (
	"errors"

	"github.com/ethpandaops/reportviewer/pkg/api/openapi"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/gofiber/fiber/v3"
)

// ErrInvalidID is returned when a path id is not a positive integer
var ErrInvalidID = fiber.NewError(fiber.StatusBadRequest, "invalid id, expected a positive integer")

// ErrChartNotInSession is returned for a chart missing from a session layout
var ErrChartNotInSession = fiber.NewError(fiber.StatusNotFound, "chart is not placed in the session")

// statusOf maps domain errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, reportviewer.ErrNotFound),
		errors.Is(err, reportviewer.ErrChartNotFound),
		errors.Is(err, keyvalue.ErrNotFound),
		errors.Is(err, sessions.ErrNotFound),
		errors.Is(err, tasks.ErrResultNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, reportviewer.ErrSlugTaken),
		errors.Is(err, reportviewer.ErrOverwriteConflict):
		return fiber.StatusConflict
	case errors.Is(err, reportviewer.ErrInvalidSaveType),
		errors.Is(err, reportviewer.ErrInvalidPositions),
		errors.Is(err, reportviewer.ErrInvalidMetadata),
		errors.Is(err, keyvalue.ErrInvalidValue),
		errors.Is(err, sessions.ErrPermalinkMismatch),
		errors.Is(err, state.ErrUnknownAction),
		errors.Is(err, state.ErrInvalidAction),
		errors.Is(err, openapi.ErrInvalidBody):
		return fiber.StatusBadRequest
	case errors.Is(err, sessions.ErrTooManySessions):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// apiError converts a domain error into a fiber error. Unknown errors keep
// their message out of the response.
func apiError(err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr
	}

	code := statusOf(err)
	if code == fiber.StatusInternalServerError {
		return err
	}

	return fiber.NewError(code, err.Error())
}

package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethpandaops/reportviewer/pkg/api/openapi"
	"github.com/ethpandaops/reportviewer/pkg/keyvalue"
	"github.com/ethpandaops/reportviewer/pkg/reportviewer"
	"github.com/ethpandaops/reportviewer/pkg/sessions"
	"github.com/ethpandaops/reportviewer/pkg/state"
	"github.com/ethpandaops/reportviewer/pkg/tasks"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: reportviewer.ErrNotFound, want: fiber.StatusNotFound},
		{err: fmt.Errorf("wrapped: %w", keyvalue.ErrNotFound), want: fiber.StatusNotFound},
		{err: sessions.ErrNotFound, want: fiber.StatusNotFound},
		{err: tasks.ErrResultNotFound, want: fiber.StatusNotFound},
		{err: reportviewer.ErrSlugTaken, want: fiber.StatusConflict},
		{err: &reportviewer.OverwriteConflictError{}, want: fiber.StatusConflict},
		{err: reportviewer.ErrInvalidMetadata, want: fiber.StatusBadRequest},
		{err: state.ErrUnknownAction, want: fiber.StatusBadRequest},
		{err: openapi.ErrInvalidBody, want: fiber.StatusBadRequest},
		{err: sessions.ErrPermalinkMismatch, want: fiber.StatusBadRequest},
		{err: sessions.ErrTooManySessions, want: fiber.StatusServiceUnavailable},
		{err: errBoom, want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestAPIError(t *testing.T) {
	var fiberErr *fiber.Error

	require.ErrorAs(t, apiError(reportviewer.ErrNotFound), &fiberErr)
	assert.Equal(t, fiber.StatusNotFound, fiberErr.Code)
	assert.Equal(t, reportviewer.ErrNotFound.Error(), fiberErr.Message)

	assert.Same(t, ErrInvalidID, apiError(ErrInvalidID))
	assert.ErrorIs(t, apiError(errBoom), errBoom)
}

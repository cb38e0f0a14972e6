package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/frontdesk/internal/domain"
)

// toHumaError maps domain sentinels onto HTTP statuses. Anything unrecognised
// is a 500 carrying msg.
func toHumaError(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("help request not found")
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		return huma.Error501NotImplemented(err.Error())
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/emrecanisildak/diet/internal/domain"
	pkglog "github.com/emrecanisildak/diet/pkg/log"
	"github.com/emrecanisildak/diet/pkg/response"
)

// respondError maps a service error onto the response envelope. Anything
// unclassified is logged and reported as "failed to <op>".
func respondError(c *gin.Context, err error, op string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Validation(c, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, "not enough permissions")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(c, "could not validate credentials")
	default:
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(op + " failed")
		response.InternalError(c, "failed to "+op)
	}
}

// frameError builds the error frame for a rejected live message.
func frameError(err error) *domain.ErrorMessage {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return domain.NewErrorMessage(domain.ErrCodeValidation, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewErrorMessage(domain.ErrCodeNotFound, err.Error())
	default:
		return domain.NewErrorMessage(domain.ErrCodeInternalError, "failed to send message")
	}
}

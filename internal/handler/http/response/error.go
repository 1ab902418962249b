package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var conflict *apperror.ConflictError
	if errors.As(err, &conflict) {
		Conflict(w, string(conflict.Reason), conflict.Error(), conflict.RowIDs)
		return
	}

	var notFound *apperror.NotFoundError
	if errors.As(err, &notFound) {
		NotFound(w, notFound.Error())
		return
	}

	var permission *apperror.PermissionError
	if errors.As(err, &permission) {
		Forbidden(w, permission.Error())
		return
	}

	var calculation *apperror.CalculationError
	if errors.As(err, &calculation) {
		UnprocessableEntity(w, string(calculation.Reason), calculation.Error(),
			map[string]string{"user_id": calculation.UserID})
		return
	}

	switch {
	case errors.Is(err, user.ErrActorMissing):
		Unauthorized(w, "Authentication required")
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

package api

import (
	"errors"

	"StockPulse/internal/domain/models"
	xhttp "StockPulse/pkg/http"
)

// toAppError maps use case errors onto HTTP errors. Failures keep their
// user-facing message.
func toAppError(err error) *xhttp.AppError {
	if f, ok := models.AsFailure(err); ok {
		var appErr *xhttp.AppError
		switch f.Kind {
		case models.FailureCooldown:
			appErr = xhttp.ServiceUnavailableError(f.Message)
			appErr.Code = "ERR_COOLDOWN"
		case models.FailureQuota:
			appErr = xhttp.TooManyRequestsError(f.Message)
			appErr.Code = "ERR_QUOTA"
		case models.FailureCredential:
			appErr = xhttp.UnauthorizedError(f.Message)
			appErr.Code = "ERR_CREDENTIAL"
		case models.FailureParse, models.FailureRemote:
			appErr = xhttp.BadGatewayError(f.Message)
		case models.FailureInput:
			appErr = xhttp.BadRequestError(f.Message)
		case models.FailureBusy, models.FailureConflict:
			appErr = xhttp.ConflictError(f.Message)
			appErr.Code = "ERR_BUSY"
		case models.FailureNotFound:
			appErr = xhttp.NotFoundError(f.Message)
		default:
			appErr = xhttp.InternalError(f.Message)
		}
		return appErr.WithError(f.Err)
	}

	switch {
	case errors.Is(err, models.ErrDuplicateTicker):
		return xhttp.ConflictError("Ticker is already on the watchlist.").WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError("Not found.").WithError(err)
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidCredential):
		return xhttp.UnauthorizedError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/internal/ledger"
)

// Status maps a ledger error kind to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyRegistered),
		errors.Is(err, ledger.ErrAlreadyVerified),
		errors.Is(err, ledger.ErrListingNotActive):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance),
		errors.Is(err, ledger.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes the error as a JSON body with the mapped status.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(Status(err), gin.H{"error": err.Error()})
}

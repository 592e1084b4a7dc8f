package handlers

import (
	"errors"
	"net/http"

	"cargo-connect-api-server/internal/lifecycle"
)

// statusForLifecycleErr maps lifecycle sentinel errors onto HTTP statuses.
func statusForLifecycleErr(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrOfferNotFound),
		errors.Is(err, lifecycle.ErrBidNotFound),
		errors.Is(err, lifecycle.ErrDeliveryNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrOfferNotActive),
		errors.Is(err, lifecycle.ErrBidNotPending),
		errors.Is(err, lifecycle.ErrBidNotCountered),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrCodeMismatch),
		errors.Is(err, lifecycle.ErrCodeLocked):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

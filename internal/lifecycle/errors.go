package lifecycle

import "errors"

// Sentinel errors surfaced to the API layer. Handlers map them onto HTTP
// statuses: not-found -> 404, conflicts -> 409, code failures -> 403.
var (
	ErrOfferNotFound    = errors.New("offer not found")
	ErrBidNotFound      = errors.New("bid not found")
	ErrDeliveryNotFound = errors.New("delivery not found")

	ErrOfferNotActive = errors.New("offer is no longer active")
	ErrBidNotPending  = errors.New("bid is not pending")
	ErrBidNotCountered = errors.New("bid has no outstanding counter-offer")

	ErrInvalidTransition = errors.New("invalid delivery status transition")

	ErrCodeMismatch = errors.New("confirmation code does not match")
	ErrCodeLocked   = errors.New("confirmation code attempts exhausted")

	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

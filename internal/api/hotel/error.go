package hotel

import "HotelClaimBot/pkg/response"

var (
	ErrStoreUnavailable   = response.NewError(503, "record store unavailable")
	ErrStoreFormat        = response.NewError(500, "record store row could not be parsed")
	ErrStoreWriteConflict = response.NewError(409, "record store write conflict")
	ErrSessionUnavailable = response.NewError(503, "session store unavailable")
	ErrInvalidInput       = response.NewError(400, "invalid input for current state")
	ErrInvalidEvent       = response.NewError(400, "invalid inbound event")
	ErrMissingHeader      = response.NewError(500, "record store header is missing a required column")
)

package presale

import "errors"

var (
	ErrZeroAddress            = errors.New("presale: zero address")
	ErrInvalidAmount          = errors.New("presale: amount must not be negative")
	ErrSaleClosed             = errors.New("presale: sale window closed")
	ErrCapExceeded            = errors.New("presale: sale cap exceeded")
	ErrContributionOutOfRange = errors.New("presale: contribution out of range")
	ErrClaimNotOpen           = errors.New("presale: claims not open")
	ErrNothingToClaim         = errors.New("presale: nothing to claim")
	ErrTransferFailed         = errors.New("presale: token transfer failed")
	ErrNotAuthorized          = errors.New("presale: unauthorized")
)

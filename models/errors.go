package models

import "errors"

// Error kinds shared by the indicator library, the gateway and the loops.
var (
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrGateway             = errors.New("gateway error")
	ErrInsufficientHistory = errors.New("insufficient history")
)

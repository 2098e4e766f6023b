package vehicle

import "errors"

var (
	ErrVehicleIDRequired = errors.New("vehicle id is required")
	ErrVehicleNotFound   = errors.New("vehicle not found")
)

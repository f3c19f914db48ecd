// Package repository defines error types that are reused across the
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios without inspecting
// error strings. Row absence is reported with sql.ErrNoRows, following the
// database/sql convention.
package repository

import "errors"

// ErrInvalidState is returned when an operation is not legal for the
// target's current status, such as updating or deleting a reservation that
// has already left SCHEDULED. Handlers should translate this into an HTTP
// 400 response.
var ErrInvalidState = errors.New("invalid state")

// ErrVehicleInUse is returned when a trip is started for a vehicle that
// already has an open driving log. Handlers should translate this into an
// HTTP 409 response.
var ErrVehicleInUse = errors.New("vehicle already in use")

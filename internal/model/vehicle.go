package model

import "time"

// VehicleStatus enumerates the states a fleet vehicle can be in.  The value
// stored on the vehicle row is a cached projection of the latest driving-log
// state: an open driving log forces IN_USE, closing the last open log
// reverts the vehicle to AVAILABLE.  MAINTENANCE is set administratively and
// is never overwritten by the trip flow.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInUse       VehicleStatus = "IN_USE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
)

// Valid reports whether s is one of the known vehicle statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleInUse, VehicleMaintenance:
		return true
	}
	return false
}

// Vehicle represents a row in the `vehicles` table.  Display metadata
// (icon name and the two gradient colors) is carried through verbatim for
// the presentation layer; the service never interprets it.
//
// Fields:
//  ID             – primary key (UUID string).
//  LicensePlate   – unique human-readable registration string.
//  Make           – manufacturer name.
//  Model          – model name.
//  Year           – model year.
//  Status         – cached projection of the vehicle's current usage state.
//  NextInspection – date of the next scheduled inspection.
//  Icon           – icon name for the UI lookup table.
//  IconColorFrom  – gradient start color class.
//  IconColorTo    – gradient end color class.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Vehicle struct {
	ID             string        // vehicles.id
	LicensePlate   string        // vehicles.license_plate
	Make           string        // vehicles.make
	Model          string        // vehicles.model
	Year           int           // vehicles.year
	Status         VehicleStatus // vehicles.status
	NextInspection time.Time     // vehicles.next_inspection
	Icon           string        // vehicles.icon
	IconColorFrom  string        // vehicles.icon_color_from
	IconColorTo    string        // vehicles.icon_color_to
	CreatedAt      time.Time     // vehicles.created_at
	UpdatedAt      time.Time     // vehicles.updated_at
}

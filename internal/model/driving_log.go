package model

import "time"

// DrivingLog represents a row in the `driving_logs` table.  A log with a
// NULL end_time is the vehicle's trip currently in progress; at most one
// such row may exist per vehicle at any time, and its existence is what
// backs the vehicle's IN_USE status.
//
// Fields:
//  ID          – primary key (UUID string).
//  VehicleID   – vehicle the trip was taken in.
//  UserID      – driver.
//  StartTime   – when the trip started (UTC).
//  EndTime     – when the trip ended; nil while the trip is open.
//  StartMeter  – odometer reading at departure, if recorded.
//  EndMeter    – odometer reading at return; must be >= StartMeter when both are present.
//  Destination – optional free-text destination.
//  Notes       – optional free-text notes.
//  IsRefueling – whether the vehicle was refueled during the trip.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type DrivingLog struct {
	ID          string     // driving_logs.id
	VehicleID   string     // driving_logs.vehicle_id
	UserID      string     // driving_logs.user_id
	StartTime   time.Time  // driving_logs.start_time
	EndTime     *time.Time // driving_logs.end_time (nullable)
	StartMeter  *int       // driving_logs.start_meter (nullable)
	EndMeter    *int       // driving_logs.end_meter (nullable)
	Destination *string    // driving_logs.destination (nullable)
	Notes       *string    // driving_logs.notes (nullable)
	IsRefueling bool       // driving_logs.is_refueling
	CreatedAt   time.Time  // driving_logs.created_at
	UpdatedAt   time.Time  // driving_logs.updated_at
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationBookedEvent is published when a reservation is successfully
// created.  It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type ReservationBookedEvent struct {
	ReservationID string `json:"reservation_id"`
	VehicleID     string `json:"vehicle_id"`
	UserID        string `json:"user_id"`
	LicensePlate  string `json:"license_plate"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Destination   string `json:"destination,omitempty"`
	BookedAt      string `json:"booked_at"`
}

// TripCompletedEvent is published when an open driving log is closed.  The
// odometer fields are -1 when the reading was not recorded.
type TripCompletedEvent struct {
	DrivingLogID string `json:"driving_log_id"`
	VehicleID    string `json:"vehicle_id"`
	UserID       string `json:"user_id"`
	LicensePlate string `json:"license_plate"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	StartMeter   int    `json:"start_meter"`
	EndMeter     int    `json:"end_meter"`
	IsRefueling  bool   `json:"is_refueling"`
}

package model

import "time"

// ReservationStatus enumerates the states of a reservation.  A reservation
// starts SCHEDULED; trip start moves it to IN_PROGRESS, trip end to
// COMPLETED, and an explicit cancel to CANCELLED.  COMPLETED and CANCELLED
// are terminal.
type ReservationStatus string

const (
	ReservationScheduled  ReservationStatus = "SCHEDULED"
	ReservationInProgress ReservationStatus = "IN_PROGRESS"
	ReservationCompleted  ReservationStatus = "COMPLETED"
	ReservationCancelled  ReservationStatus = "CANCELLED"
)

// allowedTransitions is the directed graph of legal status changes.
// Terminal states map to empty slices so that no transition out of them is
// ever permitted.
var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationScheduled:  {ReservationInProgress, ReservationCancelled},
	ReservationInProgress: {ReservationCompleted},
	ReservationCompleted:  {},
	ReservationCancelled:  {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to ReservationStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// reservationStatuses lists every status in a fixed order for callers that
// need a deterministic enumeration.
var reservationStatuses = []ReservationStatus{
	ReservationScheduled,
	ReservationInProgress,
	ReservationCompleted,
	ReservationCancelled,
}

// Active reports whether the status counts for conflict detection.  Only
// SCHEDULED and IN_PROGRESS reservations block a vehicle's time window;
// COMPLETED and CANCELLED ones never conflict.
func (s ReservationStatus) Active() bool {
	return s == ReservationScheduled || s == ReservationInProgress
}

// ActiveReservationStatuses returns, in declaration order, the statuses
// that count for conflict detection.  The conflict query builds its status
// filter from this list so the SQL can never drift from Active.
func ActiveReservationStatuses() []ReservationStatus {
	out := make([]ReservationStatus, 0, len(reservationStatuses))
	for _, s := range reservationStatuses {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// Editable reports whether the reservation may still be updated or deleted.
// Once the status leaves SCHEDULED the row is immutable to the CRUD path.
func (s ReservationStatus) Editable() bool {
	return s == ReservationScheduled
}

// Overlaps is the half-open interval overlap test used for conflict
// detection: [aStart, aEnd) and [bStart, bEnd) overlap when each starts
// before the other ends.  Back-to-back windows (one ending exactly when the
// other starts) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Reservation represents a row in the `reservations` table.  The pair
// (StartTime, EndTime) is a half-open window [start, end); for any two
// rows on the same vehicle whose statuses are active, the windows must not
// overlap.
//
// Fields:
//  ID          – primary key (UUID string).
//  VehicleID   – vehicle being reserved.
//  UserID      – user who made the reservation.
//  StartTime   – start of the reserved window (UTC, inclusive).
//  EndTime     – end of the reserved window (UTC, exclusive).
//  Destination – optional free-text destination, at most 200 characters.
//  Status      – current state of the reservation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          string            // reservations.id
	VehicleID   string            // reservations.vehicle_id
	UserID      string            // reservations.user_id
	StartTime   time.Time         // reservations.start_time
	EndTime     time.Time         // reservations.end_time
	Destination *string           // reservations.destination (nullable)
	Status      ReservationStatus // reservations.status
	CreatedAt   time.Time         // reservations.created_at
	UpdatedAt   time.Time         // reservations.updated_at
}

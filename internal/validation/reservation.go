// Package validation contains pure input validators.  They have no side
// effects and never touch the database; handlers run them before opening a
// transaction and translate the returned field errors into 400 responses.
package validation

import (
	"time"
	"unicode/utf8"
)

// MaxDestinationLen is the maximum number of characters accepted for the
// free-text destination field.
const MaxDestinationLen = 200

// timestampLayouts lists the accepted wire formats for the start and end
// fields.  RFC3339 covers API clients; the layouts without a zone cover the
// browser's datetime-local inputs and are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ReservationInput is the raw request body shared by the create and update
// endpoints.
type ReservationInput struct {
	VehicleID     string `json:"vehicleId"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	Destination   string `json:"destination"`
}

// ReservationValues is the normalized result of a successful validation.
// Timestamps are UTC instants; Destination is nil when the field was left
// empty.
type ReservationValues struct {
	VehicleID   string
	StartTime   time.Time
	EndTime     time.Time
	Destination *string
}

// FieldErrors maps a field name to the messages recorded for it.  The map
// is returned verbatim inside the `details` object of a 400 response.
type FieldErrors map[string][]string

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// ValidateReservation checks the shape and temporal sanity of a proposed
// reservation against the given current instant.  On success it returns the
// normalized values and a nil error map; on failure it returns nil values
// and one or more messages per offending field.
//
// Rules:
//   - vehicleId, startDateTime and endDateTime are required.
//   - timestamps must parse with one of the accepted layouts.
//   - startDateTime must be strictly after now.  This applies to edits as
//     well: edited reservations are re-submitted as new times.
//   - destination is optional but limited to MaxDestinationLen characters.
//   - endDateTime must be strictly after startDateTime.
func ValidateReservation(in ReservationInput, now time.Time) (*ReservationValues, FieldErrors) {
	errs := FieldErrors{}

	if in.VehicleID == "" {
		errs.add("vehicleId", "vehicle is required")
	}

	start, ok := parseField(errs, "startDateTime", in.StartDateTime, "start time is required")
	if ok && !start.After(now) {
		errs.add("startDateTime", "start time must be in the future")
	}
	end, _ := parseField(errs, "endDateTime", in.EndDateTime, "end time is required")

	var destination *string
	if in.Destination != "" {
		if utf8.RuneCountInString(in.Destination) > MaxDestinationLen {
			errs.add("destination", "destination must be 200 characters or less")
		} else {
			d := in.Destination
			destination = &d
		}
	}

	// Cross-field rule only makes sense once both timestamps parsed.
	if len(errs["startDateTime"]) == 0 && len(errs["endDateTime"]) == 0 && !end.After(start) {
		errs.add("endDateTime", "end time must be after start time")
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &ReservationValues{
		VehicleID:   in.VehicleID,
		StartTime:   start,
		EndTime:     end,
		Destination: destination,
	}, nil
}

// parseField records a missing or malformed timestamp on errs and reports
// whether the value parsed cleanly.
func parseField(errs FieldErrors, field, raw, missingMsg string) (time.Time, bool) {
	if raw == "" {
		errs.add(field, missingMsg)
		return time.Time{}, false
	}
	t, err := parseTimestamp(raw)
	if err != nil {
		errs.add(field, "invalid timestamp format")
		return time.Time{}, false
	}
	return t, true
}

func parseTimestamp(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.August, 18, 12, 0, 0, 0, time.UTC)

func validInput() ReservationInput {
	return ReservationInput{
		VehicleID:     "veh-1",
		StartDateTime: "2025-08-19T09:00:00Z",
		EndDateTime:   "2025-08-19T11:00:00Z",
		Destination:   "本社",
	}
}

func TestValidateReservation_OK(t *testing.T) {
	values, errs := ValidateReservation(validInput(), testNow)
	require.Nil(t, errs)
	require.NotNil(t, values)

	assert.Equal(t, "veh-1", values.VehicleID)
	assert.Equal(t, time.Date(2025, time.August, 19, 9, 0, 0, 0, time.UTC), values.StartTime)
	assert.Equal(t, time.Date(2025, time.August, 19, 11, 0, 0, 0, time.UTC), values.EndTime)
	require.NotNil(t, values.Destination)
	assert.Equal(t, "本社", *values.Destination)
}

func TestValidateReservation_EmptyDestinationIsNil(t *testing.T) {
	in := validInput()
	in.Destination = ""

	values, errs := ValidateReservation(in, testNow)
	require.Nil(t, errs)
	assert.Nil(t, values.Destination)
}

func TestValidateReservation_RequiredFields(t *testing.T) {
	values, errs := ValidateReservation(ReservationInput{}, testNow)
	assert.Nil(t, values)
	require.NotNil(t, errs)

	assert.Contains(t, errs, "vehicleId")
	assert.Contains(t, errs, "startDateTime")
	assert.Contains(t, errs, "endDateTime")
}

func TestValidateReservation_MalformedTimestamps(t *testing.T) {
	in := validInput()
	in.StartDateTime = "tomorrow morning"
	in.EndDateTime = "2025/08/19 11:00"

	values, errs := ValidateReservation(in, testNow)
	assert.Nil(t, values)
	require.NotNil(t, errs)
	assert.Equal(t, []string{"invalid timestamp format"}, errs["startDateTime"])
	assert.Equal(t, []string{"invalid timestamp format"}, errs["endDateTime"])
}

func TestValidateReservation_AcceptsLocalLayouts(t *testing.T) {
	// datetime-local values carry no zone and are read as UTC.
	in := validInput()
	in.StartDateTime = "2025-08-19T09:00"
	in.EndDateTime = "2025-08-19T11:00:00"

	values, errs := ValidateReservation(in, testNow)
	require.Nil(t, errs)
	assert.Equal(t, time.Date(2025, time.August, 19, 9, 0, 0, 0, time.UTC), values.StartTime)
	assert.Equal(t, time.Date(2025, time.August, 19, 11, 0, 0, 0, time.UTC), values.EndTime)
}

func TestValidateReservation_StartMustBeFuture(t *testing.T) {
	in := validInput()
	in.StartDateTime = "2025-08-18T12:00:00Z" // exactly now

	values, errs := ValidateReservation(in, testNow)
	assert.Nil(t, values)
	require.NotNil(t, errs)
	assert.Equal(t, []string{"start time must be in the future"}, errs["startDateTime"])
}

func TestValidateReservation_EndMustBeAfterStart(t *testing.T) {
	in := validInput()
	in.EndDateTime = in.StartDateTime // zero-length window

	values, errs := ValidateReservation(in, testNow)
	assert.Nil(t, values)
	require.NotNil(t, errs)
	assert.Equal(t, []string{"end time must be after start time"}, errs["endDateTime"])
}

func TestValidateReservation_CrossFieldSkippedWhenUnparseable(t *testing.T) {
	in := validInput()
	in.EndDateTime = "nonsense"

	_, errs := ValidateReservation(in, testNow)
	require.NotNil(t, errs)
	// Only the parse failure is reported, not a bogus ordering error.
	assert.Equal(t, []string{"invalid timestamp format"}, errs["endDateTime"])
}

func TestValidateReservation_DestinationLength(t *testing.T) {
	in := validInput()
	in.Destination = strings.Repeat("あ", MaxDestinationLen)

	values, errs := ValidateReservation(in, testNow)
	require.Nil(t, errs)
	assert.Equal(t, MaxDestinationLen, len([]rune(*values.Destination)))

	in.Destination = strings.Repeat("あ", MaxDestinationLen+1)
	values, errs = ValidateReservation(in, testNow)
	assert.Nil(t, values)
	require.NotNil(t, errs)
	assert.Equal(t, []string{"destination must be 200 characters or less"}, errs["destination"])
}

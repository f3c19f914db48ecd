package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ReservationStatus
		want     bool
	}{
		{ReservationScheduled, ReservationInProgress, true},
		{ReservationScheduled, ReservationCancelled, true},
		{ReservationScheduled, ReservationCompleted, false},
		{ReservationInProgress, ReservationCompleted, true},
		{ReservationInProgress, ReservationCancelled, false},
		{ReservationInProgress, ReservationScheduled, false},
		// Terminal states accept nothing.
		{ReservationCompleted, ReservationScheduled, false},
		{ReservationCompleted, ReservationInProgress, false},
		{ReservationCompleted, ReservationCancelled, false},
		{ReservationCancelled, ReservationScheduled, false},
		{ReservationCancelled, ReservationInProgress, false},
		{ReservationCancelled, ReservationCompleted, false},
		// Self transitions are not allowed either.
		{ReservationScheduled, ReservationScheduled, false},
		{ReservationInProgress, ReservationInProgress, false},
		// Unknown statuses never transition.
		{"GARBAGE", ReservationCancelled, false},
		{ReservationScheduled, "GARBAGE", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, ReservationScheduled.Active())
	assert.True(t, ReservationInProgress.Active())
	assert.False(t, ReservationCompleted.Active())
	assert.False(t, ReservationCancelled.Active())

	assert.True(t, ReservationScheduled.Editable())
	assert.False(t, ReservationInProgress.Editable())
	assert.False(t, ReservationCompleted.Editable())
	assert.False(t, ReservationCancelled.Editable())
}

func TestOverlaps(t *testing.T) {
	at := func(h int) time.Time {
		return time.Date(2025, time.August, 19, h, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical windows", at(9), at(11), at(9), at(11), true},
		{"contained", at(9), at(12), at(10), at(11), true},
		{"partial head", at(9), at(11), at(10), at(12), true},
		{"partial tail", at(10), at(12), at(9), at(11), true},
		// Half-open intervals: sharing a boundary instant is not a conflict.
		{"back to back", at(9), at(11), at(11), at(13), false},
		{"back to back reversed", at(11), at(13), at(9), at(11), false},
		{"disjoint", at(9), at(10), at(12), at(13), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// Overlap is symmetric in the two windows.
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

func TestVehicleStatusValid(t *testing.T) {
	assert.True(t, VehicleAvailable.Valid())
	assert.True(t, VehicleInUse.Valid())
	assert.True(t, VehicleMaintenance.Valid())
	assert.False(t, VehicleStatus("PARKED").Valid())
	assert.False(t, VehicleStatus("").Valid())
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiromu1018ks/official-car-app/internal/model"
	"github.com/hiromu1018ks/official-car-app/internal/queue"
	"github.com/hiromu1018ks/official-car-app/internal/repository"
)

var (
	vehicleTestColumns = []string{
		"id", "license_plate", "make", "model", "year", "status", "next_inspection",
		"icon", "icon_color_from", "icon_color_to", "created_at", "updated_at",
	}
	reservationTestColumns = []string{
		"id", "vehicle_id", "user_id", "start_time", "end_time", "destination",
		"status", "created_at", "updated_at",
	}
	drivingLogTestColumns = []string{
		"id", "vehicle_id", "user_id", "start_time", "end_time", "start_meter",
		"end_meter", "destination", "notes", "is_refueling", "created_at", "updated_at",
	}
)

func at(h, m int) time.Time {
	return time.Date(2030, time.May, 1, h, m, 0, 0, time.UTC)
}

func vehicleRow(id string, status model.VehicleStatus) *sqlmock.Rows {
	now := at(0, 0)
	return sqlmock.NewRows(vehicleTestColumns).
		AddRow(id, "品川 500 あ 1234", "トヨタ", "プリウス", 2022, string(status), now,
			"Car", "from-purple-500", "to-indigo-600", now, now)
}

func reservationRow(id string, start, end time.Time, status model.ReservationStatus) *sqlmock.Rows {
	return sqlmock.NewRows(reservationTestColumns).
		AddRow(id, "veh-1", "user-1", start, end, nil, string(status), start, start)
}

func openLogRow(id string) *sqlmock.Rows {
	now := at(9, 0)
	return sqlmock.NewRows(drivingLogTestColumns).
		AddRow(id, "veh-1", "user-1", now, nil, nil, nil, nil, nil, false, now, now)
}

func newReservationHandler(t *testing.T) (*ReservationHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewReservationHandler(repository.NewVehicleRepo(db), repository.NewReservationRepo(db))
	h.publishBooked = func(context.Context, queue.ReservationBookedEvent) error { return nil }
	return h, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func newTripHandler(t *testing.T) (*TripHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := NewTripHandler(repository.NewVehicleRepo(db),
		repository.NewDrivingLogRepo(db), repository.NewReservationRepo(db))
	h.publishCompleted = func(context.Context, queue.TripCompletedEvent) error { return nil }
	return h, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func doJSON(t *testing.T, fn echo.HandlerFunc, method, body, paramID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "user-1")
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}
	require.NoError(t, fn(c))
	return rec
}

const createBody = `{"vehicleId":"veh-1","startDateTime":"2030-05-01T10:30:00Z","endDateTime":"2030-05-01T11:30:00Z"}`

func TestReservationCreateConflict(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", model.VehicleAvailable))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations(.|\n)+FOR UPDATE`).
		WillReturnRows(reservationRow("res-blocking", at(10, 0), at(11, 0), model.ReservationScheduled))
	mock.ExpectRollback()

	rec := doJSON(t, h.Create, http.MethodPost, createBody, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "res-blocking")
}

func TestReservationCreateAdjacentWindowSucceeds(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	// A window starting exactly when another ends is not a conflict, so
	// the checked insert goes through.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", model.VehicleAvailable))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations(.|\n)+FOR UPDATE`).
		WithArgs("veh-1",
			string(model.ReservationScheduled), string(model.ReservationInProgress),
			"", at(11, 30), at(10, 30)).
		WillReturnRows(sqlmock.NewRows(reservationTestColumns))
	mock.ExpectExec(`INSERT INTO reservations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doJSON(t, h.Create, http.MethodPost, createBody, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestReservationCreateUnknownVehicle(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows(vehicleTestColumns))
	mock.ExpectRollback()

	rec := doJSON(t, h.Create, http.MethodPost, createBody, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown vehicle")
}

func TestReservationUpdateLocksVehicleFirstAndExcludesSelf(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	// Expectations are matched in order: the vehicle lock must be the
	// transaction's first statement, before any plain SELECT fixes the
	// snapshot, and the conflict query must carry the edited id.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", model.VehicleAvailable))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations WHERE id = \?`).
		WithArgs("res-edit").
		WillReturnRows(reservationRow("res-edit", at(9, 0), at(10, 0), model.ReservationScheduled))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations(.|\n)+FOR UPDATE`).
		WithArgs("veh-1",
			string(model.ReservationScheduled), string(model.ReservationInProgress),
			"res-edit", at(11, 30), at(10, 30)).
		WillReturnRows(sqlmock.NewRows(reservationTestColumns))
	mock.ExpectExec(`UPDATE reservations(.|\n)+SET vehicle_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := doJSON(t, h.Update, http.MethodPut, createBody, "res-edit")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReservationUpdateNotEditable(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", model.VehicleInUse))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations WHERE id = \?`).
		WithArgs("res-edit").
		WillReturnRows(reservationRow("res-edit", at(9, 0), at(10, 0), model.ReservationInProgress))
	mock.ExpectRollback()

	rec := doJSON(t, h.Update, http.MethodPut, createBody, "res-edit")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer be edited")
}

func TestReservationDeleteRacedPromotion(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	// The load sees SCHEDULED but the delete matches nothing because a
	// concurrent trip start promoted the row; the client gets the same
	// answer as if the check had caught it.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations WHERE id = \?`).
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", at(9, 0), at(10, 0), model.ReservationScheduled))
	mock.ExpectExec(`DELETE FROM reservations`).
		WithArgs("res-1", string(model.ReservationScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := doJSON(t, h.Delete, http.MethodDelete, "", "res-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer be deleted")
}

func TestReservationCancelRacedPromotion(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations WHERE id = \?`).
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", at(9, 0), at(10, 0), model.ReservationScheduled))
	mock.ExpectExec(`UPDATE reservations SET status`).
		WithArgs(string(model.ReservationCancelled), "res-1", string(model.ReservationScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := doJSON(t, h.Cancel, http.MethodPost, "", "res-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be cancelled")
}

func TestReservationCancelCompleted(t *testing.T) {
	h, mock, done := newReservationHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM reservations WHERE id = \?`).
		WithArgs("res-1").
		WillReturnRows(reservationRow("res-1", at(9, 0), at(10, 0), model.ReservationCompleted))
	mock.ExpectRollback()

	rec := doJSON(t, h.Cancel, http.MethodPost, "", "res-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be cancelled")
}

func TestTripStartVehicleBusy(t *testing.T) {
	h, mock, done := newTripHandler(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.|\n)+ FROM vehicles WHERE id = \? FOR UPDATE`).
		WithArgs("veh-1").
		WillReturnRows(vehicleRow("veh-1", model.VehicleInUse))
	mock.ExpectQuery(`SELECT (.|\n)+ FROM driving_logs(.|\n)+end_time IS NULL`).
		WithArgs("veh-1").
		WillReturnRows(openLogRow("log-open"))
	mock.ExpectRollback()

	rec := doJSON(t, h.Start, http.MethodPost, `{"vehicleId":"veh-1"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in use")
}

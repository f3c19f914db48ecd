package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hiromu1018ks/official-car-app/internal/model"
	"github.com/hiromu1018ks/official-car-app/internal/queue"
	"github.com/hiromu1018ks/official-car-app/internal/repository"
	queue_publisher "github.com/hiromu1018ks/official-car-app/internal/service"
)

// TripHandler implements trip start and trip end.  Both operations write
// the driving log and the vehicle status projection in the same
// transaction, holding the vehicle row lock, so the vehicle's status can
// never contradict its open driving log.  Trip start and end also drive
// the reservation state machine: the caller's matching SCHEDULED
// reservation becomes IN_PROGRESS, and the IN_PROGRESS one COMPLETED.
type TripHandler struct {
	VehicleRepo     *repository.VehicleRepo
	DrivingLogRepo  *repository.DrivingLogRepo
	ReservationRepo *repository.ReservationRepo

	publishCompleted func(context.Context, queue.TripCompletedEvent) error
}

// NewTripHandler constructs a TripHandler with the provided repositories.
// All dependencies must be non-nil.
func NewTripHandler(vehicleRepo *repository.VehicleRepo, drivingLogRepo *repository.DrivingLogRepo, reservationRepo *repository.ReservationRepo) *TripHandler {
	if vehicleRepo == nil || drivingLogRepo == nil || reservationRepo == nil {
		panic("nil repository passed to NewTripHandler")
	}
	return &TripHandler{
		VehicleRepo:      vehicleRepo,
		DrivingLogRepo:   drivingLogRepo,
		ReservationRepo:  reservationRepo,
		publishCompleted: queue_publisher.PublishTripCompleted,
	}
}

// Start handles POST /v1/trips/start.  It opens a driving log for the
// vehicle and sets the vehicle status to IN_USE in one transaction.  A
// vehicle with an open log cannot start a second trip.  Responses: 200
// with the new driving log id, 404 unknown vehicle, 409 already in use,
// 500 unexpected.
func (h *TripHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	var body struct {
		VehicleID   string  `json:"vehicleId"`
		StartMeter  *int    `json:"startMeter"`
		Destination *string `json:"destination"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.VehicleID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicleId is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.VehicleRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The row lock makes the one-open-log check race-free against a
	// concurrent trip start for the same vehicle.
	if _, err := h.VehicleRepo.LockByIDTx(ctx, tx, body.VehicleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		log.Printf("trip start: lock vehicle: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}

	open, err := h.DrivingLogRepo.FindOpenByVehicleTx(ctx, tx, body.VehicleID)
	if err != nil {
		log.Printf("trip start: open-log check: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}
	if open != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": repository.ErrVehicleInUse.Error()})
	}

	now := time.Now().UTC()
	dl := &model.DrivingLog{
		ID:          uuid.NewString(),
		VehicleID:   body.VehicleID,
		UserID:      userID,
		StartTime:   now,
		StartMeter:  body.StartMeter,
		Destination: body.Destination,
	}
	if err := h.DrivingLogRepo.OpenTx(ctx, tx, dl); err != nil {
		log.Printf("trip start: insert log: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}
	if err := h.VehicleRepo.UpdateStatusTx(ctx, tx, body.VehicleID, model.VehicleInUse); err != nil {
		log.Printf("trip start: project status: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}

	// Promote the caller's reservation covering this instant, if any.  A
	// trip without a reservation is a legal ad-hoc drive.
	res, err := h.ReservationRepo.FindScheduledForTripTx(ctx, tx, body.VehicleID, userID, now)
	if err != nil {
		log.Printf("trip start: reservation lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}
	if res != nil && model.CanTransition(res.Status, model.ReservationInProgress) {
		err := h.ReservationRepo.UpdateStatusTx(ctx, tx, res.ID, res.Status, model.ReservationInProgress)
		if err != nil && !errors.Is(err, repository.ErrInvalidState) {
			log.Printf("trip start: reservation transition: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
		}
		// ErrInvalidState means another writer moved the reservation
		// first; the trip proceeds without it.
	}

	if err := tx.Commit(); err != nil {
		log.Printf("trip start: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip start failed, please try again"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"success": true, "driving_log_id": dl.ID})
}

// End handles POST /v1/trips/end.  It closes the vehicle's open driving
// log, reverts the vehicle status to AVAILABLE (unless it is flagged
// MAINTENANCE) and completes the caller's IN_PROGRESS reservation, all in
// one transaction.  Responses: 200, 404 unknown vehicle or no open trip,
// 400 bad odometer reading, 500 unexpected.
func (h *TripHandler) End(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	var body struct {
		VehicleID   string  `json:"vehicleId"`
		EndMeter    *int    `json:"endMeter"`
		Notes       *string `json:"notes"`
		IsRefueling bool    `json:"isRefueling"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.VehicleID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicleId is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.VehicleRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	vehicle, err := h.VehicleRepo.LockByIDTx(ctx, tx, body.VehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		log.Printf("trip end: lock vehicle: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
	}

	open, err := h.DrivingLogRepo.FindOpenByVehicleTx(ctx, tx, body.VehicleID)
	if err != nil {
		log.Printf("trip end: open-log lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
	}
	if open == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no trip in progress for this vehicle"})
	}
	if body.EndMeter != nil && open.StartMeter != nil && *body.EndMeter < *open.StartMeter {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end meter must not be less than start meter"})
	}

	now := time.Now().UTC()
	if err := h.DrivingLogRepo.CloseTx(ctx, tx, open.ID, now, body.EndMeter, body.Notes, body.IsRefueling); err != nil {
		log.Printf("trip end: close log: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
	}

	// The closed log was the vehicle's only open one, so the vehicle is
	// free again; an administrative MAINTENANCE flag is left alone.
	if vehicle.Status != model.VehicleMaintenance {
		if err := h.VehicleRepo.UpdateStatusTx(ctx, tx, body.VehicleID, model.VehicleAvailable); err != nil {
			log.Printf("trip end: project status: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
		}
	}

	res, err := h.ReservationRepo.FindInProgressTx(ctx, tx, body.VehicleID, userID)
	if err != nil {
		log.Printf("trip end: reservation lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
	}
	if res != nil && model.CanTransition(res.Status, model.ReservationCompleted) {
		err := h.ReservationRepo.UpdateStatusTx(ctx, tx, res.ID, res.Status, model.ReservationCompleted)
		if err != nil && !errors.Is(err, repository.ErrInvalidState) {
			log.Printf("trip end: reservation transition: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("trip end: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trip end failed, please try again"})
	}
	committed = true

	ev := queue.TripCompletedEvent{
		DrivingLogID: open.ID,
		VehicleID:    vehicle.ID,
		UserID:       userID,
		LicensePlate: vehicle.LicensePlate,
		StartTime:    open.StartTime.Format(time.RFC3339),
		EndTime:      now.Format(time.RFC3339),
		StartMeter:   -1,
		EndMeter:     -1,
		IsRefueling:  body.IsRefueling,
	}
	if open.StartMeter != nil {
		ev.StartMeter = *open.StartMeter
	}
	if body.EndMeter != nil {
		ev.EndMeter = *body.EndMeter
	}
	_ = h.publishCompleted(ctx, ev)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

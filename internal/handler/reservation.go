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
	"github.com/hiromu1018ks/official-car-app/internal/validation"
)

// ReservationHandler implements the reservation lifecycle: create, list,
// update, delete and cancel.  For every mutation the conflict check and the
// write run in one transaction that first takes the vehicle row lock, so
// two concurrent operations on the same vehicle are serialized and can
// never both pass the overlap check.
type ReservationHandler struct {
	VehicleRepo     *repository.VehicleRepo
	ReservationRepo *repository.ReservationRepo

	publishBooked func(context.Context, queue.ReservationBookedEvent) error
}

// NewReservationHandler constructs a ReservationHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewReservationHandler(vehicleRepo *repository.VehicleRepo, reservationRepo *repository.ReservationRepo) *ReservationHandler {
	if vehicleRepo == nil || reservationRepo == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{
		VehicleRepo:     vehicleRepo,
		ReservationRepo: reservationRepo,
		publishBooked:   queue_publisher.PublishReservationBooked,
	}
}

// conflictBody describes the blocking reservation in a 409 response so the
// client can show which window is already taken.
func conflictBody(res *model.Reservation) echo.Map {
	return echo.Map{
		"error": "this time window is already reserved",
		"conflict": echo.Map{
			"reservation_id": res.ID,
			"start_time":     res.StartTime.Format(time.RFC3339),
			"end_time":       res.EndTime.Format(time.RFC3339),
		},
	}
}

// Create handles POST /v1/reservations.  It validates the input, checks for
// an overlapping active reservation of the same vehicle and inserts the new
// row with status SCHEDULED, all inside one transaction holding the vehicle
// row lock.  Responses: 200 {"success":true}, 400 validation details,
// 409 conflict, 500 unexpected.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	var in validation.ReservationInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	values, fieldErrs := validation.ValidateReservation(in, time.Now().UTC())
	if fieldErrs != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": fieldErrs})
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

	// The row lock serializes the conflict check and the insert against
	// every other create/update for the same vehicle.
	vehicle, err := h.VehicleRepo.LockByIDTx(ctx, tx, values.VehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation failed",
				"details": validation.FieldErrors{"vehicleId": {"unknown vehicle"}},
			})
		}
		log.Printf("reservation create: lock vehicle: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed, please try again"})
	}

	conflict, err := h.ReservationRepo.FindConflictTx(ctx, tx, values.VehicleID, values.StartTime, values.EndTime, "")
	if err != nil {
		// An indeterminate check must never silently allow a double booking.
		log.Printf("reservation create: conflict check: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed, please try again"})
	}
	if conflict != nil {
		return c.JSON(http.StatusConflict, conflictBody(conflict))
	}

	res := &model.Reservation{
		ID:          uuid.NewString(),
		VehicleID:   values.VehicleID,
		UserID:      userID,
		StartTime:   values.StartTime,
		EndTime:     values.EndTime,
		Destination: values.Destination,
		Status:      model.ReservationScheduled,
	}
	if err := h.ReservationRepo.CreateTx(ctx, tx, res); err != nil {
		log.Printf("reservation create: insert: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed, please try again"})
	}
	if err := tx.Commit(); err != nil {
		log.Printf("reservation create: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed, please try again"})
	}
	committed = true

	// Best effort; a broker outage must not fail a committed booking.
	ev := queue.ReservationBookedEvent{
		ReservationID: res.ID,
		VehicleID:     vehicle.ID,
		UserID:        userID,
		LicensePlate:  vehicle.LicensePlate,
		Make:          vehicle.Make,
		Model:         vehicle.Model,
		StartTime:     res.StartTime.Format(time.RFC3339),
		EndTime:       res.EndTime.Format(time.RFC3339),
		BookedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if res.Destination != nil {
		ev.Destination = *res.Destination
	}
	_ = h.publishBooked(ctx, ev)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "reservation_id": res.ID})
}

// List handles GET /v1/reservations.  It returns every non-cancelled
// reservation starting today or later, joined with vehicle and user display
// fields and ordered ascending by start time.  The read takes no locks.
func (h *ReservationHandler) List(c echo.Context) error {
	// Reservations already underway today stay visible, so the window
	// starts at midnight UTC rather than the current instant.
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	details, err := h.ReservationRepo.ListUpcoming(c.Request().Context(), asOf)
	if err != nil {
		log.Printf("reservation list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservations"})
	}
	return c.JSON(http.StatusOK, details)
}

// Update handles PUT /v1/reservations/:id.  Only SCHEDULED reservations may
// be edited; the new values are validated like a create (including the
// future-start rule) and conflict-checked with the reservation's own id
// excluded, so editing only the destination never trips a self-conflict.
// Responses: 200, 404 not found, 400 not editable / validation, 409
// conflict, 500 unexpected.
func (h *ReservationHandler) Update(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var in validation.ReservationInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	values, fieldErrs := validation.ValidateReservation(in, time.Now().UTC())
	if fieldErrs != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": fieldErrs})
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

	// The vehicle lock must be the transaction's first statement.  A plain
	// SELECT first would fix the snapshot before the lock is acquired, and
	// a reservation committed while waiting on the lock would be invisible
	// to the rest of the transaction's reads.
	if _, err := h.VehicleRepo.LockByIDTx(ctx, tx, values.VehicleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation failed",
				"details": validation.FieldErrors{"vehicleId": {"unknown vehicle"}},
			})
		}
		log.Printf("reservation update: lock vehicle: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed, please try again"})
	}

	existing, err := h.ReservationRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		log.Printf("reservation update: load: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed, please try again"})
	}
	if !existing.Status.Editable() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation can no longer be edited"})
	}

	conflict, err := h.ReservationRepo.FindConflictTx(ctx, tx, values.VehicleID, values.StartTime, values.EndTime, id)
	if err != nil {
		log.Printf("reservation update: conflict check: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed, please try again"})
	}
	if conflict != nil {
		return c.JSON(http.StatusConflict, conflictBody(conflict))
	}

	if err := h.ReservationRepo.UpdateTx(ctx, tx, id, values.VehicleID, values.StartTime, values.EndTime, values.Destination); err != nil {
		if errors.Is(err, repository.ErrInvalidState) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation can no longer be edited"})
		}
		log.Printf("reservation update: write: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed, please try again"})
	}
	if err := tx.Commit(); err != nil {
		log.Printf("reservation update: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed, please try again"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Delete handles DELETE /v1/reservations/:id.  Only SCHEDULED reservations
// may be removed; once a trip has started (or finished) the row is kept and
// cancellation is the only way out.  Responses: 200, 404 not found, 400 not
// deletable, 500 unexpected.
func (h *ReservationHandler) Delete(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
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

	existing, err := h.ReservationRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		log.Printf("reservation delete: load: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed, please try again"})
	}
	if !existing.Status.Editable() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation can no longer be deleted"})
	}

	if err := h.ReservationRepo.DeleteTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrInvalidState) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation can no longer be deleted"})
		}
		log.Printf("reservation delete: write: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed, please try again"})
	}
	if err := tx.Commit(); err != nil {
		log.Printf("reservation delete: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed, please try again"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Cancel handles POST /v1/reservations/:id/cancel.  Cancellation is a state
// transition, not a delete: the row is kept with status CANCELLED and stops
// counting for conflict detection.  Only SCHEDULED reservations can be
// cancelled.  Responses: 200, 404 not found, 400 invalid state, 500
// unexpected.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
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

	existing, err := h.ReservationRepo.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		log.Printf("reservation cancel: load: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed, please try again"})
	}
	if !model.CanTransition(existing.Status, model.ReservationCancelled) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation cannot be cancelled"})
	}

	// The status pin in the write catches a trip start that promoted the
	// reservation after the non-locking read above.
	if err := h.ReservationRepo.UpdateStatusTx(ctx, tx, id, existing.Status, model.ReservationCancelled); err != nil {
		if errors.Is(err, repository.ErrInvalidState) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "this reservation cannot be cancelled"})
		}
		log.Printf("reservation cancel: write: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed, please try again"})
	}
	if err := tx.Commit(); err != nil {
		log.Printf("reservation cancel: commit: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed, please try again"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiromu1018ks/official-car-app/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  All writes
// run inside a caller-owned transaction through the ...Tx methods so the
// conflict check and the insert/update always share one commit boundary
// with the vehicle row lock taken by the handler.  Timestamps are stored
// and compared in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, vehicle_id, user_id, start_time, end_time, destination,
                           status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var destination sql.NullString
	if err := row.Scan(
		&res.ID, &res.VehicleID, &res.UserID, &res.StartTime, &res.EndTime, &destination,
		&res.Status, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if destination.Valid {
		d := destination.String
		res.Destination = &d
	}
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	return &res, nil
}

// GetByIDTx loads a single reservation inside a transaction.  Returns
// sql.ErrNoRows when no reservation with the given id exists.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// FindConflictTx returns a reservation of the given vehicle whose
// half-open window overlaps [start, end) and whose status counts for
// conflict detection.  The SELECT is a locking read (FOR UPDATE): a plain
// SELECT would read the transaction's snapshot and miss a conflicting row
// committed while this transaction waited on the vehicle row lock.
// excludeID names the reservation being edited and is skipped; pass "" for
// a create.  Returns (nil, nil) when no conflict exists; a query error is
// returned as-is and must never be treated as "no conflict".
func (r *ReservationRepo) FindConflictTx(ctx context.Context, tx *sql.Tx, vehicleID string, start, end time.Time, excludeID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE vehicle_id = ?
                 AND status IN (?, ?)
                 AND id <> ?
                 AND start_time < ?
                 AND end_time > ?
               FOR UPDATE`
	statuses := model.ActiveReservationStatuses()
	rows, err := tx.QueryContext(ctx, q,
		vehicleID, statuses[0], statuses[1], excludeID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	// The range conditions prefilter on the (vehicle_id, start_time)
	// index; Overlaps makes the final call.
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		if model.Overlaps(res.StartTime, res.EndTime, start, end) {
			return res, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// CreateTx inserts a new reservation row within the caller's transaction.
// The record must carry an application-generated id and a status; the
// caller commits or rolls back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (id, vehicle_id, user_id, start_time, end_time, destination, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		res.ID, res.VehicleID, res.UserID, res.StartTime, res.EndTime, nullableString(res.Destination), res.Status)
	return err
}

// UpdateTx overwrites the editable fields of a reservation (vehicle, time
// window, destination) within the caller's transaction.  Status is not
// touched here; state transitions go through UpdateStatusTx.  The status
// guard catches a reservation that left SCHEDULED after the caller's
// non-locking read, reported as ErrInvalidState.  Matched-rows counting
// (ClientFoundRows in the DSN) keeps a no-change edit from tripping the
// guard.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id string, vehicleID string, start, end time.Time, destination *string) error {
	const q = `UPDATE reservations
               SET vehicle_id = ?, start_time = ?, end_time = ?, destination = ?
               WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q,
		vehicleID, start, end, nullableString(destination), id, model.ReservationScheduled)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdateStatusTx performs the from -> to status transition for a
// reservation within the caller's transaction.  Legality of the transition
// is checked by the caller via model.CanTransition; the WHERE clause pins
// the expected current status so a transition raced by a concurrent writer
// fails with ErrInvalidState instead of silently overwriting it.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, from, to model.ReservationStatus) error {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// requireAffected maps a zero-row write to ErrInvalidState.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

// DeleteTx permanently removes a reservation row within the caller's
// transaction.  The status guard in the query catches a reservation that
// left SCHEDULED after the caller loaded it; that case is reported as
// ErrInvalidState.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `DELETE FROM reservations WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q, id, model.ReservationScheduled)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// FindScheduledForTripTx returns the caller's SCHEDULED reservation on the
// vehicle whose window contains the given instant, if any.  It is used by
// trip start to promote the matching reservation to IN_PROGRESS.  Returns
// (nil, nil) when no such reservation exists.
func (r *ReservationRepo) FindScheduledForTripTx(ctx context.Context, tx *sql.Tx, vehicleID, userID string, at time.Time) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE vehicle_id = ? AND user_id = ? AND status = ?
                 AND start_time <= ? AND end_time > ?
               ORDER BY start_time
               LIMIT 1`
	res, err := scanReservation(tx.QueryRowContext(ctx, q,
		vehicleID, userID, model.ReservationScheduled, at, at))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FindInProgressTx returns the caller's IN_PROGRESS reservation on the
// vehicle, if any.  It is used by trip end to complete the reservation the
// trip was driven under.  Returns (nil, nil) when no such reservation
// exists.
func (r *ReservationRepo) FindInProgressTx(ctx context.Context, tx *sql.Tx, vehicleID, userID string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE vehicle_id = ? AND user_id = ? AND status = ?
               ORDER BY start_time
               LIMIT 1`
	res, err := scanReservation(tx.QueryRowContext(ctx, q,
		vehicleID, userID, model.ReservationInProgress))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReservationDetail is a reservation joined with the vehicle and user
// display fields needed by the calendar and list views.  The shape matches
// the JSON the frontend consumes.
type ReservationDetail struct {
	ID          string  `json:"id"`
	VehicleID   string  `json:"vehicle_id"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Destination *string `json:"destination"`
	Status      string  `json:"status"`
	Vehicle     struct {
		Make          string `json:"make"`
		Model         string `json:"model"`
		LicensePlate  string `json:"license_plate"`
		Icon          string `json:"icon"`
		IconColorFrom string `json:"icon_color_from"`
		IconColorTo   string `json:"icon_color_to"`
	} `json:"vehicle"`
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// ListUpcoming returns all non-cancelled reservations starting at or after
// asOf, joined with vehicle and user display fields and ordered ascending
// by start time.  This is a plain read; it takes no locks and tolerates
// concurrent writes.
func (r *ReservationRepo) ListUpcoming(ctx context.Context, asOf time.Time) ([]ReservationDetail, error) {
	const q = `SELECT r.id, r.vehicle_id, r.start_time, r.end_time, r.destination, r.status,
                      v.make, v.model, v.license_plate, v.icon, v.icon_color_from, v.icon_color_to,
                      u.name, u.email
               FROM reservations r
               JOIN vehicles v ON v.id = r.vehicle_id
               JOIN users u ON u.id = r.user_id
               WHERE r.start_time >= ? AND r.status <> ?
               ORDER BY r.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, asOf, model.ReservationCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var start, end time.Time
		var destination sql.NullString
		if err := rows.Scan(
			&d.ID, &d.VehicleID, &start, &end, &destination, &d.Status,
			&d.Vehicle.Make, &d.Vehicle.Model, &d.Vehicle.LicensePlate,
			&d.Vehicle.Icon, &d.Vehicle.IconColorFrom, &d.Vehicle.IconColorTo,
			&d.User.Name, &d.User.Email,
		); err != nil {
			return nil, err
		}
		d.StartTime = start.UTC().Format(time.RFC3339)
		d.EndTime = end.UTC().Format(time.RFC3339)
		if destination.Valid {
			dest := destination.String
			d.Destination = &dest
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

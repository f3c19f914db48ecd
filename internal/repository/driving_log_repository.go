package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiromu1018ks/official-car-app/internal/model"
)

// DrivingLogRepo provides access to trip records.  Opening and closing a
// log are ...Tx methods because every such write must share a transaction
// with the vehicle status projection; a log is never deleted.
type DrivingLogRepo struct {
	db *sql.DB
}

// NewDrivingLogRepo returns a new DrivingLogRepo bound to the given database.
func NewDrivingLogRepo(db *sql.DB) *DrivingLogRepo { return &DrivingLogRepo{db: db} }

const drivingLogColumns = `id, vehicle_id, user_id, start_time, end_time, start_meter,
                          end_meter, destination, notes, is_refueling, created_at, updated_at`

func scanDrivingLog(row interface{ Scan(...any) error }) (*model.DrivingLog, error) {
	var l model.DrivingLog
	var endTime sql.NullTime
	var startMeter, endMeter sql.NullInt64
	var destination, notes sql.NullString
	if err := row.Scan(
		&l.ID, &l.VehicleID, &l.UserID, &l.StartTime, &endTime, &startMeter,
		&endMeter, &destination, &notes, &l.IsRefueling, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.StartTime = l.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		l.EndTime = &t
	}
	if startMeter.Valid {
		n := int(startMeter.Int64)
		l.StartMeter = &n
	}
	if endMeter.Valid {
		n := int(endMeter.Int64)
		l.EndMeter = &n
	}
	if destination.Valid {
		d := destination.String
		l.Destination = &d
	}
	if notes.Valid {
		s := notes.String
		l.Notes = &s
	}
	return &l, nil
}

// FindOpenByVehicleTx returns the vehicle's driving log with a NULL
// end_time, i.e. the trip currently in progress.  At most one such row may
// exist per vehicle; the caller holds the vehicle row lock while checking.
// Returns (nil, nil) when no trip is open.
func (r *DrivingLogRepo) FindOpenByVehicleTx(ctx context.Context, tx *sql.Tx, vehicleID string) (*model.DrivingLog, error) {
	const q = `SELECT ` + drivingLogColumns + `
               FROM driving_logs
               WHERE vehicle_id = ? AND end_time IS NULL
               LIMIT 1`
	l, err := scanDrivingLog(tx.QueryRowContext(ctx, q, vehicleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// OpenTx inserts a new driving log with a NULL end_time within the
// caller's transaction.
func (r *DrivingLogRepo) OpenTx(ctx context.Context, tx *sql.Tx, l *model.DrivingLog) error {
	const q = `INSERT INTO driving_logs (id, vehicle_id, user_id, start_time, start_meter, destination, is_refueling)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		l.ID, l.VehicleID, l.UserID, l.StartTime, nullableInt(l.StartMeter),
		nullableString(l.Destination), l.IsRefueling)
	return err
}

// CloseTx sets the end of a trip: end time, odometer reading, notes and
// the refueling flag.  The end_time IS NULL guard makes closing
// idempotent-safe; a log that is already closed is not touched.
func (r *DrivingLogRepo) CloseTx(ctx context.Context, tx *sql.Tx, id string, endTime time.Time, endMeter *int, notes *string, isRefueling bool) error {
	const q = `UPDATE driving_logs
               SET end_time = ?, end_meter = ?, notes = ?, is_refueling = ?
               WHERE id = ? AND end_time IS NULL`
	_, err := tx.ExecContext(ctx, q, endTime, nullableInt(endMeter), nullableString(notes), isRefueling, id)
	return err
}

// DrivingLogStats holds the counters shown in the driving-log section of
// the dashboard.
type DrivingLogStats struct {
	InUseVehicles int `json:"in_use_vehicles"`
	TodayLogs     int `json:"today_logs"`
}

// Stats returns the number of vehicles currently in use and the number of
// driving logs created today (UTC day boundaries).
func (r *DrivingLogRepo) Stats(ctx context.Context, now time.Time) (DrivingLogStats, error) {
	var stats DrivingLogStats
	const vehicleQ = `SELECT COUNT(*) FROM vehicles WHERE status = ?`
	if err := r.db.QueryRowContext(ctx, vehicleQ, model.VehicleInUse).Scan(&stats.InUseVehicles); err != nil {
		return DrivingLogStats{}, err
	}
	today := now.UTC().Truncate(24 * time.Hour)
	tomorrow := today.Add(24 * time.Hour)
	const logQ = `SELECT COUNT(*) FROM driving_logs WHERE created_at >= ? AND created_at < ?`
	if err := r.db.QueryRowContext(ctx, logQ, today, tomorrow).Scan(&stats.TodayLogs); err != nil {
		return DrivingLogStats{}, err
	}
	return stats, nil
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

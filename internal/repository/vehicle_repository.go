package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hiromu1018ks/official-car-app/internal/model"
)

// VehicleRepo provides read access to the vehicle inventory and the status
// writes performed by the trip flow.  Vehicle rows are created by fleet
// onboarding outside this service and are never deleted here; the only
// mutation is the cached status projection, and that is restricted to the
// ...Tx methods so it always happens inside the transaction of the
// triggering driving-log write.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo returns a new VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

const vehicleColumns = `id, license_plate, make, model, year, status, next_inspection,
                       icon, icon_color_from, icon_color_to, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (*model.Vehicle, error) {
	var v model.Vehicle
	if err := row.Scan(
		&v.ID, &v.LicensePlate, &v.Make, &v.Model, &v.Year, &v.Status, &v.NextInspection,
		&v.Icon, &v.IconColorFrom, &v.IconColorTo, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns every vehicle ordered by license plate.
func (r *VehicleRepo) List(ctx context.Context) ([]model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY license_plate`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vehicles := make([]model.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// VehicleStats holds the per-status vehicle counts shown on the dashboard.
type VehicleStats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	InUse       int `json:"in_use"`
	Maintenance int `json:"maintenance"`
}

// Stats counts vehicles grouped by status in a single query.
func (r *VehicleRepo) Stats(ctx context.Context) (VehicleStats, error) {
	const q = `SELECT status, COUNT(*) FROM vehicles GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return VehicleStats{}, err
	}
	defer rows.Close()
	var stats VehicleStats
	for rows.Next() {
		var status model.VehicleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return VehicleStats{}, err
		}
		stats.Total += n
		switch status {
		case model.VehicleAvailable:
			stats.Available = n
		case model.VehicleInUse:
			stats.InUse = n
		case model.VehicleMaintenance:
			stats.Maintenance = n
		}
	}
	if err := rows.Err(); err != nil {
		return VehicleStats{}, err
	}
	return stats, nil
}

// InUseVehicleDetail is an IN_USE vehicle joined with its open driving log
// and the driver, as shown on the "currently out" dashboard cards.
type InUseVehicleDetail struct {
	ID            string `json:"id"`
	LicensePlate  string `json:"license_plate"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	CurrentUser   string `json:"current_user"`
	StartTime     string `json:"start_time"`
	Icon          string `json:"icon"`
	IconColorFrom string `json:"icon_color_from"`
	IconColorTo   string `json:"icon_color_to"`
}

// ListInUse returns all IN_USE vehicles along with the driver name and
// start time of the trip currently in progress.  A vehicle whose status was
// flipped without an open log (which the write discipline should prevent)
// is still returned, with empty driver fields.
func (r *VehicleRepo) ListInUse(ctx context.Context) ([]InUseVehicleDetail, error) {
	const q = `SELECT v.id, v.license_plate, v.make, v.model,
                      v.icon, v.icon_color_from, v.icon_color_to,
                      u.name, dl.start_time
               FROM vehicles v
               LEFT JOIN driving_logs dl ON dl.vehicle_id = v.id AND dl.end_time IS NULL
               LEFT JOIN users u ON u.id = dl.user_id
               WHERE v.status = ?
               ORDER BY v.license_plate`
	rows, err := r.db.QueryContext(ctx, q, model.VehicleInUse)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]InUseVehicleDetail, 0)
	for rows.Next() {
		var d InUseVehicleDetail
		var userName sql.NullString
		var start sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.LicensePlate, &d.Make, &d.Model,
			&d.Icon, &d.IconColorFrom, &d.IconColorTo,
			&userName, &start,
		); err != nil {
			return nil, err
		}
		if userName.Valid {
			d.CurrentUser = userName.String
		}
		if start.Valid {
			d.StartTime = start.Time.UTC().Format(time.RFC3339)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// LockByIDTx loads a vehicle row with SELECT ... FOR UPDATE, serializing
// every reservation create/update and trip start for the same vehicle on
// the row lock until the surrounding transaction commits.  Returns
// sql.ErrNoRows when the vehicle does not exist.
func (r *VehicleRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ? FOR UPDATE`
	return scanVehicle(tx.QueryRowContext(ctx, q, id))
}

// UpdateStatusTx writes the cached status projection for a vehicle within
// the caller's transaction.  The status is validated before the write so a
// bad value can never reach the ENUM column.
func (r *VehicleRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.VehicleStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown vehicle status %q", status)
	}
	const q = `UPDATE vehicles SET status = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, status, id)
	return err
}

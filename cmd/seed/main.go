// Command seed loads a small development fleet into the database: four
// vehicles, two drivers and a handful of driving logs (two of them still
// open, which is what drives the IN_USE rows on the dashboard).  Every
// insert is idempotent, so the command can be re-run after schema resets
// without duplicating rows.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hiromu1018ks/official-car-app/internal/config"
	"github.com/hiromu1018ks/official-car-app/internal/database"
	"github.com/hiromu1018ks/official-car-app/internal/model"
)

// seedUser pairs a user row with the plaintext password to hash at insert
// time.
type seedUser struct {
	user     model.User
	password string
}

// seedLog pairs a driving-log row with the natural keys of its vehicle and
// driver; the UUIDs are resolved against the database at insert time.
type seedLog struct {
	log          model.DrivingLog
	licensePlate string
	userEmail    string
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ts(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func tsp(y int, m time.Month, d, hh, mm int) *time.Time {
	t := ts(y, m, d, hh, mm)
	return &t
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

var vehicles = []model.Vehicle{
	{
		LicensePlate:   "品川 500 あ 1234",
		Make:           "トヨタ",
		Model:          "プリウス",
		Year:           2022,
		Status:         model.VehicleAvailable,
		NextInspection: date(2024, time.March, 15),
		Icon:           "Car",
		IconColorFrom:  "from-purple-500",
		IconColorTo:    "to-indigo-600",
	},
	{
		LicensePlate:   "品川 500 か 5678",
		Make:           "日産",
		Model:          "セレナ",
		Year:           2021,
		Status:         model.VehicleInUse,
		NextInspection: date(2024, time.April, 20),
		Icon:           "Truck",
		IconColorFrom:  "from-blue-500",
		IconColorTo:    "to-cyan-600",
	},
	{
		LicensePlate:   "品川 500 さ 9012",
		Make:           "ホンダ",
		Model:          "フリード",
		Year:           2020,
		Status:         model.VehicleMaintenance,
		NextInspection: date(2024, time.February, 28),
		Icon:           "CarFront",
		IconColorFrom:  "from-orange-500",
		IconColorTo:    "to-red-600",
	},
	{
		LicensePlate:   "品川 500 た 9999",
		Make:           "トヨタ",
		Model:          "アクア",
		Year:           2023,
		Status:         model.VehicleInUse,
		NextInspection: date(2024, time.May, 30),
		Icon:           "Car",
		IconColorFrom:  "from-purple-500",
		IconColorTo:    "to-indigo-600",
	},
}

var users = []seedUser{
	{model.User{Name: "佐藤花子", Email: "sato.hanako@company.com", Role: "general"}, "password1"},
	{model.User{Name: "田中太郎", Email: "tanaka.taro@company.com", Role: "general"}, "password2"},
}

var logs = []seedLog{
	{
		log:          model.DrivingLog{ID: "1", StartTime: ts(2025, time.August, 18, 9, 30)},
		licensePlate: "品川 500 か 5678",
		userEmail:    "sato.hanako@company.com",
	},
	{
		log:          model.DrivingLog{ID: "2", StartTime: ts(2025, time.August, 18, 14, 15)},
		licensePlate: "品川 500 た 9999",
		userEmail:    "tanaka.taro@company.com",
	},
	{
		log: model.DrivingLog{
			ID:          "3",
			StartTime:   ts(2025, time.August, 17, 10, 0),
			EndTime:     tsp(2025, time.August, 17, 16, 30),
			StartMeter:  intp(13999),
			EndMeter:    intp(14120),
			Destination: strp("東京都千代田区丸の内1-1-1"),
			IsRefueling: true,
			Notes:       strp("定期巡回完了。給油しました。"),
		},
		licensePlate: "品川 500 あ 1234",
		userEmail:    "tanaka.taro@company.com",
	},
	{
		log: model.DrivingLog{
			ID:          "4",
			StartTime:   ts(2025, time.August, 16, 8, 45),
			EndTime:     tsp(2025, time.August, 16, 12, 0),
			StartMeter:  intp(8520),
			EndMeter:    intp(8580),
			Destination: strp("東京都渋谷区道玄坂2-1-1"),
			Notes:       strp("会議参加のため使用。"),
		},
		licensePlate: "品川 500 か 5678",
		userEmail:    "sato.hanako@company.com",
	},
	{
		log: model.DrivingLog{
			ID:          "5",
			StartTime:   ts(2025, time.August, 15, 13, 20),
			EndTime:     tsp(2025, time.August, 15, 17, 45),
			StartMeter:  intp(25100),
			EndMeter:    intp(25240),
			Destination: strp("神奈川県横浜市西区みなとみらい2-2-1"),
			Notes:       strp("クライアント訪問完了。"),
		},
		licensePlate: "品川 500 た 9999",
		userEmail:    "tanaka.taro@company.com",
	},
}

func main() {
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, config.LoadDBPoolConfig())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	for _, v := range vehicles {
		v.ID = uuid.NewString()
		const q = `INSERT INTO vehicles
            (id, license_plate, make, model, year, status, next_inspection, icon, icon_color_from, icon_color_to)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON DUPLICATE KEY UPDATE id = id`
		if _, err := db.ExecContext(ctx, q,
			v.ID, v.LicensePlate, v.Make, v.Model, v.Year,
			v.Status, v.NextInspection, v.Icon, v.IconColorFrom, v.IconColorTo); err != nil {
			log.Fatalf("seed vehicle %s: %v", v.LicensePlate, err)
		}
	}

	for _, s := range users {
		u := s.user
		u.ID = uuid.NewString()
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password for %s: %v", u.Email, err)
		}
		u.PasswordHash = string(hash)
		const q = `INSERT INTO users (id, name, email, password, role)
            VALUES (?, ?, ?, ?, ?)
            ON DUPLICATE KEY UPDATE id = id`
		if _, err := db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Role); err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
	}

	for _, s := range logs {
		l := s.log
		l.VehicleID, err = lookupID(ctx, db, `SELECT id FROM vehicles WHERE license_plate = ?`, s.licensePlate)
		if err != nil {
			log.Fatalf("seed log %s: vehicle %s: %v", l.ID, s.licensePlate, err)
		}
		l.UserID, err = lookupID(ctx, db, `SELECT id FROM users WHERE email = ?`, s.userEmail)
		if err != nil {
			log.Fatalf("seed log %s: user %s: %v", l.ID, s.userEmail, err)
		}
		const q = `INSERT INTO driving_logs
            (id, vehicle_id, user_id, start_time, end_time, start_meter, end_meter, destination, is_refueling, notes)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON DUPLICATE KEY UPDATE id = id`
		if _, err := db.ExecContext(ctx, q,
			l.ID, l.VehicleID, l.UserID, l.StartTime, nullableTime(l.EndTime),
			nullableInt(l.StartMeter), nullableInt(l.EndMeter),
			nullableString(l.Destination), l.IsRefueling, nullableString(l.Notes)); err != nil {
			log.Fatalf("seed log %s: %v", l.ID, err)
		}
	}

	log.Printf("seeded %d vehicles, %d users, %d driving logs", len(vehicles), len(users), len(logs))
}

func lookupID(ctx context.Context, db *sql.DB, query, arg string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, query, arg).Scan(&id)
	return id, err
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

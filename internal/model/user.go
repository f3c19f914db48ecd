package model

import "time"

// User represents a row in the `users` table.  Users are created by fleet
// onboarding and only ever referenced by this service; reservation and
// driving-log rows point at them via user_id.  The json tags are omitted
// because these structs are used internally by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key (UUID string).
//  Name         – display name shown next to reservations.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password, written by the seeder only.
//  Role         – role name (e.g. "general", "admin").
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

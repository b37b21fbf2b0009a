package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles stored on the users table.
const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
)

// User maps to the users table.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   *string    `db:"password_hash" json:"-"`
	FullName       string     `db:"full_name" json:"full_name"`
	PhoneNumber    *string    `db:"phone_number" json:"phone_number,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profile_picture,omitempty"`
	Role           string     `db:"role" json:"role"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	IsVerified     bool       `db:"is_verified" json:"is_verified"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Doctor maps to the doctors table. A doctor row is the professional profile
// attached one-to-one to a user account. The account's is_verified flag, not
// the doctor row, gates whether the doctor may take bookings.
type Doctor struct {
	ID                uuid.UUID `db:"id" json:"id"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	Specialization    string    `db:"specialization" json:"specialization"`
	LicenseNumber     string    `db:"license_number" json:"license_number"`
	YearsOfExperience int       `db:"years_of_experience" json:"years_of_experience"`
	DegreeUploadURL   *string   `db:"degree_upload_url" json:"degree_upload_url,omitempty"`
	ConsultationFee   float64   `db:"consultation_fee" json:"consultation_fee"`
	Bio               *string   `db:"bio" json:"bio,omitempty"`
	IsAvailable       bool      `db:"is_available" json:"is_available"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// DoctorWithUser joins a doctor profile with its owning account for listing
// and search responses.
type DoctorWithUser struct {
	Doctor
	FullName   string `db:"full_name" json:"full_name"`
	Email      string `db:"email" json:"email"`
	IsVerified bool   `db:"is_verified" json:"is_verified"`
}

package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// SetVerified flips the verification flag and role in one write.
	SetVerified(ctx context.Context, id uuid.UUID, verified bool, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

// DoctorRepository persists doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPending(ctx context.Context) ([]*DoctorWithUser, error)
	// Search returns verified doctors, optionally filtered by name and
	// specialization substrings.
	Search(ctx context.Context, name, specialization string) ([]*DoctorWithUser, error)
}

package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(subject, role string, verified bool) (string, error)
}

// Notifier delivers a notification to a user. Implementations must not fail
// the caller's operation.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, title, message, notificationType string)
}

type Service struct {
	users    UserRepository
	doctors  DoctorRepository
	tokens   TokenIssuer
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(users UserRepository, doctors DoctorRepository, tokens TokenIssuer, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// RegisterInput carries a new account registration.
type RegisterInput struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FullName       string  `json:"full_name"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if in.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	hashStr := string(hash)

	u := &User{
		Email:          in.Email,
		PasswordHash:   &hashStr,
		FullName:       in.FullName,
		PhoneNumber:    in.PhoneNumber,
		ProfilePicture: in.ProfilePicture,
		Role:           RoleUser,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and returns a signed access token with the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if u.PasswordHash == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return "", nil, ErrAccountDisabled
	}

	token, err := s.tokens.Issue(u.ID.String(), u.Role, u.IsVerified)
	if err != nil {
		return "", nil, fmt.Errorf("issuing token: %w", err)
	}
	return token, u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ApplyInput carries a doctor application.
type ApplyInput struct {
	Specialization    string  `json:"specialization"`
	LicenseNumber     string  `json:"license_number"`
	YearsOfExperience int     `json:"years_of_experience"`
	ConsultationFee   float64 `json:"consultation_fee"`
	Bio               *string `json:"bio,omitempty"`
	DegreeUploadURL   *string `json:"degree_upload_url,omitempty"`
}

// ApplyAsDoctor files a doctor application for the user. The account keeps
// the plain user role until an admin approves it.
func (s *Service) ApplyAsDoctor(ctx context.Context, userID uuid.UUID, in ApplyInput) (*Doctor, error) {
	if in.Specialization == "" {
		return nil, fmt.Errorf("specialization is required")
	}
	if in.LicenseNumber == "" {
		return nil, fmt.Errorf("license_number is required")
	}

	if _, err := s.doctors.GetByUserID(ctx, userID); err == nil {
		return nil, ErrAlreadyApplied
	}

	d := &Doctor{
		UserID:            userID,
		Specialization:    in.Specialization,
		LicenseNumber:     in.LicenseNumber,
		YearsOfExperience: in.YearsOfExperience,
		ConsultationFee:   in.ConsultationFee,
		Bio:               in.Bio,
		DegreeUploadURL:   in.DegreeUploadURL,
		IsAvailable:       true,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) PendingDoctors(ctx context.Context) ([]*DoctorWithUser, error) {
	return s.doctors.ListPending(ctx)
}

// VerifyDoctor approves a pending application, promoting the owning account
// to the doctor role.
func (s *Service) VerifyDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.users.SetVerified(ctx, u.ID, true, RoleDoctor); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, d.UserID,
		"Profile Verified",
		"Congratulations! Your medical profile is approved. You can now accept bookings.",
		"SUCCESS")
	return d, nil
}

// RejectDoctor declines a pending application and removes the doctor row so
// the user can reapply.
func (s *Service) RejectDoctor(ctx context.Context, doctorID uuid.UUID, reason string) error {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, d.UserID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}

	s.notifier.Notify(ctx, d.UserID,
		"Application Declined",
		fmt.Sprintf("Your application to join as a doctor was not approved. Reason: %s", reason),
		"WARNING")

	return s.doctors.Delete(ctx, doctorID)
}

// SearchDoctors returns verified doctors matching the optional name and
// specialization filters.
func (s *Service) SearchDoctors(ctx context.Context, name, specialization string) ([]*DoctorWithUser, error) {
	return s.doctors.Search(ctx, name, specialization)
}

// DoctorProfile returns the doctor profile owned by the given account.
func (s *Service) DoctorProfile(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// LookupDoctor resolves a doctor profile by its own ID.
func (s *Service) LookupDoctor(ctx context.Context, doctorID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, doctorID)
}

// LookupOwningDoctor resolves the doctor profile linked to a user account,
// used to decide whether a caller acts as the doctor-of-record.
func (s *Service) LookupOwningDoctor(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// IsVerifiedDoctor reports whether the doctor's owning account is approved.
func (s *Service) IsVerifiedDoctor(ctx context.Context, d *Doctor) (bool, error) {
	u, err := s.users.GetByID(ctx, d.UserID)
	if err != nil {
		return false, err
	}
	return u.IsVerified, nil
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

// DeleteUser removes an account and everything cascading from it. Admins may
// not delete themselves.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	if adminID == userID {
		return fmt.Errorf("%w: cannot delete your own admin account", ErrForbidden)
	}
	return s.users.Delete(ctx, userID)
}

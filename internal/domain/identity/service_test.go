package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repositories --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) SetVerified(_ context.Context, id uuid.UUID, verified bool, role string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsVerified = verified
	u.Role = role
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, len(result), nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
	users   *mockUserRepo
}

func newMockDoctorRepo(users *mockUserRepo) *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor), users: users}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.LicenseNumber == d.LicenseNumber {
			return ErrLicenseTaken
		}
		if existing.UserID == d.UserID {
			return ErrAlreadyApplied
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

func (m *mockDoctorRepo) ListPending(_ context.Context) ([]*DoctorWithUser, error) {
	var result []*DoctorWithUser
	for _, d := range m.doctors {
		u := m.users.users[d.UserID]
		if u != nil && !u.IsVerified {
			result = append(result, &DoctorWithUser{Doctor: *d, FullName: u.FullName, Email: u.Email})
		}
	}
	return result, nil
}

func (m *mockDoctorRepo) Search(_ context.Context, name, specialization string) ([]*DoctorWithUser, error) {
	var result []*DoctorWithUser
	for _, d := range m.doctors {
		u := m.users.users[d.UserID]
		if u == nil || !u.IsVerified || !u.IsActive {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(u.FullName), strings.ToLower(name)) {
			continue
		}
		if specialization != "" && !strings.Contains(strings.ToLower(d.Specialization), strings.ToLower(specialization)) {
			continue
		}
		result = append(result, &DoctorWithUser{Doctor: *d, FullName: u.FullName, Email: u.Email, IsVerified: true})
	}
	return result, nil
}

// -- Mock Collaborators --

type fakeTokens struct{}

func (fakeTokens) Issue(subject, role string, verified bool) (string, error) {
	return "token:" + subject + ":" + role, nil
}

type recordedNotification struct {
	RecipientID uuid.UUID
	Title       string
	Message     string
	Type        string
}

type fakeNotifier struct {
	sent []recordedNotification
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID uuid.UUID, title, message, notificationType string) {
	f.sent = append(f.sent, recordedNotification{recipientID, title, message, notificationType})
}

func newTestService() (*Service, *mockUserRepo, *mockDoctorRepo, *fakeNotifier) {
	users := newMockUserRepo()
	doctors := newMockDoctorRepo(users)
	notifier := &fakeNotifier{}
	svc := NewService(users, doctors, fakeTokens{}, notifier, zerolog.New(os.Stderr))
	return svc, users, doctors, notifier
}

// -- Tests --

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Password: "s3cret",
		FullName: "Alice Smith",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != RoleUser {
		t.Errorf("expected role user, got %s", u.Role)
	}
	if u.PasswordHash == nil || *u.PasswordHash == "s3cret" {
		t.Error("password must be stored hashed")
	}

	token, got, err := svc.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("expected access token")
	}
	if got.ID != u.ID {
		t.Error("login returned wrong user")
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	in := RegisterInput{Email: "bob@example.com", Password: "pw", FullName: "Bob"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, users, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Email: "banned@example.com", Password: "pw", FullName: "B"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	users.users[u.ID].IsActive = false

	if _, _, err := svc.Login(ctx, "banned@example.com", "pw"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("expected ErrAccountDisabled, got %v", err)
	}
}

func registerUser(t *testing.T, svc *Service, email string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "pw",
		FullName: "Dr " + email,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestApplyAsDoctor(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	u := registerUser(t, svc, "doc@example.com")

	d, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{
		Specialization: "Cardiologist",
		LicenseNumber:  "LIC-1",
	})
	if err != nil {
		t.Fatalf("ApplyAsDoctor: %v", err)
	}
	if d.UserID != u.ID {
		t.Error("doctor not linked to applicant")
	}

	if _, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{Specialization: "Dentist", LicenseNumber: "LIC-2"}); !errors.Is(err, ErrAlreadyApplied) {
		t.Errorf("expected ErrAlreadyApplied, got %v", err)
	}
}

func TestVerifyDoctor(t *testing.T) {
	svc, users, _, notifier := newTestService()
	ctx := context.Background()
	u := registerUser(t, svc, "doc@example.com")
	d, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{Specialization: "Cardiologist", LicenseNumber: "LIC-1"})
	if err != nil {
		t.Fatalf("ApplyAsDoctor: %v", err)
	}

	if _, err := svc.VerifyDoctor(ctx, d.ID); err != nil {
		t.Fatalf("VerifyDoctor: %v", err)
	}

	got := users.users[u.ID]
	if !got.IsVerified {
		t.Error("expected user verified")
	}
	if got.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %s", got.Role)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Title != "Profile Verified" {
		t.Errorf("unexpected notification title %q", notifier.sent[0].Title)
	}
	if notifier.sent[0].RecipientID != u.ID {
		t.Error("notification sent to wrong user")
	}

	if _, err := svc.VerifyDoctor(ctx, d.ID); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestRejectDoctor(t *testing.T) {
	svc, _, doctors, notifier := newTestService()
	ctx := context.Background()
	u := registerUser(t, svc, "doc@example.com")
	d, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{Specialization: "Dentist", LicenseNumber: "LIC-1"})
	if err != nil {
		t.Fatalf("ApplyAsDoctor: %v", err)
	}

	if err := svc.RejectDoctor(ctx, d.ID, "incomplete documents"); err != nil {
		t.Fatalf("RejectDoctor: %v", err)
	}

	if _, ok := doctors.doctors[d.ID]; ok {
		t.Error("expected doctor row removed so the user can reapply")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0].Message, "incomplete documents") {
		t.Errorf("expected reason in message, got %q", notifier.sent[0].Message)
	}

	// Reapplying after rejection works.
	if _, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{Specialization: "Dentist", LicenseNumber: "LIC-1"}); err != nil {
		t.Errorf("reapply after rejection: %v", err)
	}
}

func TestRejectDoctor_AlreadyVerified(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	u := registerUser(t, svc, "doc@example.com")
	d, err := svc.ApplyAsDoctor(ctx, u.ID, ApplyInput{Specialization: "Dentist", LicenseNumber: "LIC-1"})
	if err != nil {
		t.Fatalf("ApplyAsDoctor: %v", err)
	}
	if _, err := svc.VerifyDoctor(ctx, d.ID); err != nil {
		t.Fatalf("VerifyDoctor: %v", err)
	}

	if err := svc.RejectDoctor(ctx, d.ID, "nope"); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestSearchDoctors_OnlyVerified(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	verified := registerUser(t, svc, "v@example.com")
	dv, _ := svc.ApplyAsDoctor(ctx, verified.ID, ApplyInput{Specialization: "Cardiologist", LicenseNumber: "L1"})
	if _, err := svc.VerifyDoctor(ctx, dv.ID); err != nil {
		t.Fatalf("VerifyDoctor: %v", err)
	}

	pending := registerUser(t, svc, "p@example.com")
	if _, err := svc.ApplyAsDoctor(ctx, pending.ID, ApplyInput{Specialization: "Cardiologist", LicenseNumber: "L2"}); err != nil {
		t.Fatalf("ApplyAsDoctor: %v", err)
	}

	items, err := svc.SearchDoctors(ctx, "", "cardio")
	if err != nil {
		t.Fatalf("SearchDoctors: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the verified doctor, got %d", len(items))
	}
	if items[0].UserID != verified.ID {
		t.Error("wrong doctor returned")
	}
}

func TestDeleteUser_SelfForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()
	admin := registerUser(t, svc, "admin@example.com")

	if err := svc.DeleteUser(context.Background(), admin.ID, admin.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

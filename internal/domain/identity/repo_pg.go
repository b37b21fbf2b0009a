package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhelp/medhelp/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const uniqueViolation = "23505"

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, password_hash, full_name, phone_number, profile_picture,
	role, is_active, is_verified, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.PhoneNumber, &u.ProfilePicture,
		&u.Role, &u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone_number, profile_picture, role, is_active, is_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.PhoneNumber, u.ProfilePicture,
		u.Role, u.IsActive, u.IsVerified)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) SetVerified(ctx context.Context, id uuid.UUID, verified bool, role string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET is_verified=$2, role=$3, updated_at=NOW() WHERE id = $1`,
		id, verified, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, nil
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, user_id, specialization, license_number, years_of_experience,
	degree_upload_url, consultation_fee, bio, is_available, created_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Specialization, &d.LicenseNumber, &d.YearsOfExperience,
		&d.DegreeUploadURL, &d.ConsultationFee, &d.Bio, &d.IsAvailable, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, user_id, specialization, license_number, years_of_experience,
			degree_upload_url, consultation_fee, bio, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.UserID, d.Specialization, d.LicenseNumber, d.YearsOfExperience,
		d.DegreeUploadURL, d.ConsultationFee, d.Bio, d.IsAvailable)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "doctors_user_id_key" {
			return ErrAlreadyApplied
		}
		return ErrLicenseTaken
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const doctorJoinCols = `d.id, d.user_id, d.specialization, d.license_number, d.years_of_experience,
	d.degree_upload_url, d.consultation_fee, d.bio, d.is_available, d.created_at,
	u.full_name, u.email, u.is_verified`

func (r *doctorRepoPG) scanDoctorWithUser(row pgx.Row) (*DoctorWithUser, error) {
	var d DoctorWithUser
	err := row.Scan(&d.ID, &d.UserID, &d.Specialization, &d.LicenseNumber, &d.YearsOfExperience,
		&d.DegreeUploadURL, &d.ConsultationFee, &d.Bio, &d.IsAvailable, &d.CreatedAt,
		&d.FullName, &d.Email, &d.IsVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *doctorRepoPG) ListPending(ctx context.Context) ([]*DoctorWithUser, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doctorJoinCols+`
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE u.is_verified = FALSE
		ORDER BY d.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorWithUser
	for rows.Next() {
		d, err := r.scanDoctorWithUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *doctorRepoPG) Search(ctx context.Context, name, specialization string) ([]*DoctorWithUser, error) {
	query := `
		SELECT ` + doctorJoinCols + `
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE u.is_verified = TRUE AND u.is_active = TRUE`
	var args []interface{}
	idx := 1

	if name != "" {
		query += ` AND u.full_name ILIKE '%' || $1 || '%'`
		args = append(args, name)
		idx++
	}
	if specialization != "" {
		if idx == 1 {
			query += ` AND d.specialization ILIKE '%' || $1 || '%'`
		} else {
			query += ` AND d.specialization ILIKE '%' || $2 || '%'`
		}
		args = append(args, specialization)
	}
	query += ` ORDER BY u.full_name ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoctorWithUser
	for rows.Next() {
		d, err := r.scanDoctorWithUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

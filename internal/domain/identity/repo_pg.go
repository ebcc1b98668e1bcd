package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// -- User Repository --

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userColumns = `id, subject, phone, email, first_name, middle_name, last_name,
	health_id, roles, created_at, updated_at`

func (r *userRepoPG) Create(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, subject, phone, email, roles)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.ExternalSubject, user.Phone, user.Email, rolesToStrings(user.Roles),
	)
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetBySubject(ctx context.Context, subject string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE subject = $1`, subject))
}

func (r *userRepoPG) AddRole(ctx context.Context, id uuid.UUID, role Role) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET roles = array_append(roles, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(roles))`,
		id, string(role),
	)
	return err
}

func (r *userRepoPG) UpdateFields(ctx context.Context, id uuid.UUID, upd *ProfileUpdate) error {
	var sets []string
	var args []interface{}
	args = append(args, id)
	idx := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.MiddleName != nil {
		add("middle_name", *upd.MiddleName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.HealthID != nil {
		add("health_id", *upd.HealthID)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE users SET `
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += `, updated_at = NOW() WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

func (r *userRepoPG) SearchPatients(ctx context.Context, q string) ([]*User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE 'PATIENT' = ANY(roles) AND (first_name ILIKE $1 OR last_name ILIKE $1)
		ORDER BY last_name, first_name`,
		"%"+q+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	var roles []string
	err := row.Scan(
		&u.ID, &u.ExternalSubject, &u.Phone, &u.Email, &u.FirstName, &u.MiddleName, &u.LastName,
		&u.HealthID, &roles, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Roles = rolesFromStrings(roles)
	return &u, nil
}

func (r *userRepoPG) scanUserRow(rows pgx.Rows) (*User, error) {
	var u User
	var roles []string
	err := rows.Scan(
		&u.ID, &u.ExternalSubject, &u.Phone, &u.Email, &u.FirstName, &u.MiddleName, &u.LastName,
		&u.HealthID, &roles, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Roles = rolesFromStrings(roles)
	return &u, nil
}

func rolesToStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func rolesFromStrings(roles []string) []Role {
	out := make([]Role, len(roles))
	for i, r := range roles {
		out[i] = Role(r)
	}
	return out
}

// -- Patient Profile Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientProfileRepo(pool *pgxpool.Pool) PatientProfileRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) CreateIfAbsent(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_profiles (user_id, status)
		VALUES ($1, 'PROFILE_INCOMPLETE')
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	return err
}

func (r *patientRepoPG) Get(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	var p PatientProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, status, date_of_birth, sex_assigned_at_birth, gender_identity, blood_type, created_at, updated_at
		FROM patient_profiles WHERE user_id = $1`, userID).Scan(
		&p.UserID, &p.Status, &p.DateOfBirth, &p.SexAssignedAtBirth, &p.GenderIdentity, &p.BloodType, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) UpdateFields(ctx context.Context, userID uuid.UUID, upd *ProfileUpdate) error {
	var sets []string
	var args []interface{}
	args = append(args, userID)
	idx := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.DateOfBirth != nil {
		add("date_of_birth", *upd.DateOfBirth)
	}
	if upd.SexAssignedAtBirth != nil {
		add("sex_assigned_at_birth", *upd.SexAssignedAtBirth)
	}
	if upd.GenderIdentity != nil {
		add("gender_identity", *upd.GenderIdentity)
	}
	if upd.BloodType != nil {
		add("blood_type", *upd.BloodType)
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE patient_profiles SET `
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	// Any patient-specific write promotes the profile to ACTIVE.
	query += `, status = 'ACTIVE', updated_at = NOW() WHERE user_id = $1`

	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

// -- Doctor Profile Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorProfileRepo(pool *pgxpool.Pool) DoctorProfileRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) CreateIfAbsent(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_profiles (user_id, status)
		VALUES ($1, 'PROFILE_INCOMPLETE')
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	return err
}

func (r *doctorRepoPG) Get(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	var d DoctorProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, status, license_number, specialization, qualifications, clinic_address, created_at, updated_at
		FROM doctor_profiles WHERE user_id = $1`, userID).Scan(
		&d.UserID, &d.Status, &d.LicenseNumber, &d.Specialization, &d.Qualifications, &d.ClinicAddress, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) UpdateFields(ctx context.Context, userID uuid.UUID, upd *ProfileUpdate) error {
	var sets []string
	var args []interface{}
	args = append(args, userID)
	idx := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.LicenseNumber != nil {
		add("license_number", *upd.LicenseNumber)
	}
	if upd.Specialization != nil {
		add("specialization", *upd.Specialization)
	}
	if upd.Qualifications != nil {
		add("qualifications", upd.Qualifications)
	}
	if upd.ClinicAddress != nil {
		add("clinic_address", *upd.ClinicAddress)
	}
	if len(sets) == 0 {
		return nil
	}

	query := `UPDATE doctor_profiles SET `
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += `, status = 'ACTIVE', updated_at = NOW() WHERE user_id = $1`

	_, err := r.pool.Exec(ctx, query, args...)
	return err
}

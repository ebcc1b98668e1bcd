package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository stores the core user records.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
	// AddRole appends role to the user's role set if not already present.
	AddRole(ctx context.Context, id uuid.UUID, role Role) error
	// UpdateFields writes only the non-nil common fields of upd and stamps
	// updated_at. A no-op when upd carries no common fields.
	UpdateFields(ctx context.Context, id uuid.UUID, upd *ProfileUpdate) error
	// SearchPatients returns users holding the PATIENT role whose first or
	// last name contains q, case-insensitively.
	SearchPatients(ctx context.Context, q string) ([]*User, error)
}

// PatientProfileRepository stores the PATIENT sub-profiles.
type PatientProfileRepository interface {
	// CreateIfAbsent inserts an empty PROFILE_INCOMPLETE sub-profile unless
	// one already exists. Safe under concurrent role attachment.
	CreateIfAbsent(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	// UpdateFields writes only the non-nil patient fields of upd, stamps
	// updated_at and promotes status to ACTIVE.
	UpdateFields(ctx context.Context, userID uuid.UUID, upd *ProfileUpdate) error
}

// DoctorProfileRepository stores the DOCTOR sub-profiles.
type DoctorProfileRepository interface {
	CreateIfAbsent(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	UpdateFields(ctx context.Context, userID uuid.UUID, upd *ProfileUpdate) error
}

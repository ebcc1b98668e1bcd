package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is a capability a user holds. A user may hold both roles at once, e.g.
// a doctor who is also registered as a patient.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// ProfileStatus tracks whether a role-specific sub-profile has been filled in.
// A sub-profile starts PROFILE_INCOMPLETE when the role is granted and is
// promoted to ACTIVE on the first update carrying a role-specific field. It
// never reverts.
type ProfileStatus string

const (
	StatusIncomplete ProfileStatus = "PROFILE_INCOMPLETE"
	StatusActive     ProfileStatus = "ACTIVE"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrForbidden = errors.New("doctor role required")
)

// User is the core identity record. ID is immutable once assigned and the
// external subject maps to at most one internal id.
type User struct {
	ID              uuid.UUID
	ExternalSubject string
	Phone           *string
	Email           *string
	FirstName       *string
	MiddleName      *string
	LastName        *string
	HealthID        *string
	Roles           []Role
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// PatientProfile is the PATIENT sub-profile, keyed by the internal user id.
type PatientProfile struct {
	UserID             uuid.UUID
	Status             ProfileStatus
	DateOfBirth        *string
	SexAssignedAtBirth *string
	GenderIdentity     *string
	BloodType          *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DoctorProfile is the DOCTOR sub-profile, keyed by the internal user id.
type DoctorProfile struct {
	UserID         uuid.UUID
	Status         ProfileStatus
	LicenseNumber  *string
	Specialization *string
	Qualifications []string
	ClinicAddress  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullProfile is the read-side denormalization: one logical profile assembled
// from up to three stored records.
type FullProfile struct {
	InternalUserID  string              `json:"internal_user_id"`
	ExternalSubject string              `json:"external_subject,omitempty"`
	Phone           *string             `json:"phone_number,omitempty"`
	Email           *string             `json:"email,omitempty"`
	FirstName       *string             `json:"first_name,omitempty"`
	MiddleName      *string             `json:"middle_name,omitempty"`
	LastName        *string             `json:"last_name,omitempty"`
	HealthID        *string             `json:"health_id,omitempty"`
	Roles           []Role              `json:"roles"`
	PatientProfile  *PatientProfileView `json:"patient_profile,omitempty"`
	DoctorProfile   *DoctorProfileView  `json:"doctor_profile,omitempty"`
}

type PatientProfileView struct {
	Status             ProfileStatus `json:"status"`
	DateOfBirth        *string       `json:"date_of_birth,omitempty"`
	SexAssignedAtBirth *string       `json:"sex_assigned_at_birth,omitempty"`
	GenderIdentity     *string       `json:"gender_identity,omitempty"`
	BloodType          *string       `json:"blood_type,omitempty"`
}

type DoctorProfileView struct {
	Status         ProfileStatus `json:"status"`
	LicenseNumber  *string       `json:"license_number,omitempty"`
	Specialization *string       `json:"specialization,omitempty"`
	Qualifications []string      `json:"qualifications,omitempty"`
	ClinicAddress  *string       `json:"clinic_address,omitempty"`
}

// ProfileUpdate carries a partial update. Nil means "leave unchanged"; only
// non-nil fields are written.
type ProfileUpdate struct {
	// Common user fields.
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	HealthID   *string `json:"health_id"`
	Phone      *string `json:"phone_number"`

	// Patient fields.
	DateOfBirth        *string `json:"date_of_birth"`
	SexAssignedAtBirth *string `json:"sex_assigned_at_birth"`
	GenderIdentity     *string `json:"gender_identity"`
	BloodType          *string `json:"blood_type"`

	// Doctor fields.
	LicenseNumber  *string  `json:"license_number"`
	Specialization *string  `json:"specialization"`
	Qualifications []string `json:"qualifications"`
	ClinicAddress  *string  `json:"clinic_address"`
}

func (p *ProfileUpdate) HasUserFields() bool {
	return p.FirstName != nil || p.MiddleName != nil || p.LastName != nil ||
		p.Email != nil || p.HealthID != nil || p.Phone != nil
}

func (p *ProfileUpdate) HasPatientFields() bool {
	return p.DateOfBirth != nil || p.SexAssignedAtBirth != nil ||
		p.GenderIdentity != nil || p.BloodType != nil
}

func (p *ProfileUpdate) HasDoctorFields() bool {
	return p.LicenseNumber != nil || p.Specialization != nil ||
		p.Qualifications != nil || p.ClinicAddress != nil
}

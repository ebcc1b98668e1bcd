package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type Service struct {
	users    UserRepository
	patients PatientProfileRepository
	doctors  DoctorProfileRepository
}

func NewService(users UserRepository, patients PatientProfileRepository, doctors DoctorProfileRepository) *Service {
	return &Service{users: users, patients: patients, doctors: doctors}
}

// ResolveOrCreate maps an external subject to the internal user record,
// creating the user and the role-specific sub-profile on first sight. Calling
// it again with the same (subject, role) pair is a no-op: the role is never
// duplicated and the sub-profile insert is conditional on absence.
func (s *Service) ResolveOrCreate(ctx context.Context, subject, phone, email string, role Role) (*User, error) {
	user, err := s.users.GetBySubject(ctx, subject)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if user != nil {
		if !user.HasRole(role) {
			if err := s.users.AddRole(ctx, user.ID, role); err != nil {
				return nil, err
			}
			user.Roles = append(user.Roles, role)
			if err := s.createSubProfile(ctx, user.ID, role); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	user = &User{
		ID:              uuid.New(),
		ExternalSubject: subject,
		Phone:           optional(phone),
		Email:           optional(email),
		Roles:           []Role{role},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.createSubProfile(ctx, user.ID, role); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) createSubProfile(ctx context.Context, userID uuid.UUID, role Role) error {
	switch role {
	case RolePatient:
		return s.patients.CreateIfAbsent(ctx, userID)
	case RoleDoctor:
		return s.doctors.CreateIfAbsent(ctx, userID)
	}
	return nil
}

// User returns the core user record for id.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UserExists reports whether id still resolves to a stored user. Used by the
// session verifier's liveness check.
func (s *Service) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FullProfile assembles the nested profile from the user record and whichever
// sub-profiles the role set calls for. A missing sub-profile row is presented
// as an empty PROFILE_INCOMPLETE profile rather than omitted.
func (s *Service) FullProfile(ctx context.Context, id uuid.UUID) (*FullProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, user)
}

func (s *Service) assemble(ctx context.Context, user *User) (*FullProfile, error) {
	full := &FullProfile{
		InternalUserID:  user.ID.String(),
		ExternalSubject: user.ExternalSubject,
		Phone:           user.Phone,
		Email:           user.Email,
		FirstName:       user.FirstName,
		MiddleName:      user.MiddleName,
		LastName:        user.LastName,
		HealthID:        user.HealthID,
		Roles:           user.Roles,
	}

	if user.HasRole(RolePatient) {
		p, err := s.patients.Get(ctx, user.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			full.PatientProfile = &PatientProfileView{Status: StatusIncomplete}
		case err != nil:
			return nil, err
		default:
			full.PatientProfile = &PatientProfileView{
				Status:             p.Status,
				DateOfBirth:        p.DateOfBirth,
				SexAssignedAtBirth: p.SexAssignedAtBirth,
				GenderIdentity:     p.GenderIdentity,
				BloodType:          p.BloodType,
			}
		}
	}

	if user.HasRole(RoleDoctor) {
		d, err := s.doctors.Get(ctx, user.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			full.DoctorProfile = &DoctorProfileView{Status: StatusIncomplete}
		case err != nil:
			return nil, err
		default:
			full.DoctorProfile = &DoctorProfileView{
				Status:         d.Status,
				LicenseNumber:  d.LicenseNumber,
				Specialization: d.Specialization,
				Qualifications: d.Qualifications,
				ClinicAddress:  d.ClinicAddress,
			}
		}
	}

	return full, nil
}

// UpdateProfile applies a partial update. The user-table step and each
// role-table step are attempted independently: submitting only role-specific
// fields still updates the sub-profile, and vice versa. Fields absent from
// upd are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd *ProfileUpdate) (*FullProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.HasUserFields() {
		if err := s.users.UpdateFields(ctx, id, upd); err != nil {
			return nil, err
		}
	}
	if user.HasRole(RolePatient) && upd.HasPatientFields() {
		if err := s.patients.UpdateFields(ctx, id, upd); err != nil {
			return nil, err
		}
	}
	if user.HasRole(RoleDoctor) && upd.HasDoctorFields() {
		if err := s.doctors.UpdateFields(ctx, id, upd); err != nil {
			return nil, err
		}
	}

	return s.FullProfile(ctx, id)
}

// SearchPatients returns full profiles of patients whose name contains q.
// Restricted to callers holding the DOCTOR role.
func (s *Service) SearchPatients(ctx context.Context, callerID uuid.UUID, q string) ([]*FullProfile, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(RoleDoctor) {
		return nil, ErrForbidden
	}

	users, err := s.users.SearchPatients(ctx, q)
	if err != nil {
		return nil, err
	}

	profiles := make([]*FullProfile, 0, len(users))
	for _, u := range users {
		full, err := s.assemble(ctx, u)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, full)
	}
	return profiles, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medrx/medrx/internal/domain/identity"
)

// Directory resolves internal user ids. Implemented by identity.Service.
type Directory interface {
	User(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	repo  Repository
	users Directory
}

func NewService(repo Repository, users Directory) *Service {
	return &Service{repo: repo, users: users}
}

// CreateInput carries the doctor-supplied prescription content.
type CreateInput struct {
	PatientID   uuid.UUID
	ExpiresAt   time.Time
	Diagnosis   *string
	Medications []MedicationItem
}

// Create issues a new prescription. The caller must hold the DOCTOR role and
// the target must be an existing PATIENT. Medication items are normalized
// before persisting.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, in *CreateInput) (*Prescription, error) {
	doctor, err := s.users.User(ctx, doctorID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrNotDoctor
	}
	if err != nil {
		return nil, err
	}
	if !doctor.HasRole(identity.RoleDoctor) {
		return nil, ErrNotDoctor
	}

	patient, err := s.users.User(ctx, in.PatientID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	if !patient.HasRole(identity.RolePatient) {
		return nil, ErrPatientNotFound
	}

	meds := make([]MedicationItem, len(in.Medications))
	for i, m := range in.Medications {
		m.Normalize()
		meds[i] = m
	}

	p := &Prescription{
		ID:          uuid.New(),
		PatientID:   in.PatientID,
		DoctorID:    doctorID,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   in.ExpiresAt,
		Status:      StatusActive,
		Diagnosis:   in.Diagnosis,
		Medications: meds,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListFor returns the caller's prescriptions: those they issued if they hold
// DOCTOR, plus those issued to them if they hold PATIENT, deduplicated by
// prescription id. A self-issued prescription appears once. Results are
// enriched with both parties' names; merged order across the two lookups is
// not guaranteed.
func (s *Service) ListFor(ctx context.Context, userID uuid.UUID) ([]*Response, error) {
	user, err := s.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	var all []*Prescription
	if user.HasRole(identity.RoleDoctor) {
		issued, err := s.repo.ListByDoctor(ctx, userID)
		if err != nil {
			return nil, err
		}
		all = append(all, issued...)
	}
	if user.HasRole(identity.RolePatient) {
		received, err := s.repo.ListByPatient(ctx, userID)
		if err != nil {
			return nil, err
		}
		all = append(all, received...)
	}

	seen := make(map[uuid.UUID]bool, len(all))
	names := make(map[uuid.UUID]*identity.User)
	out := make([]*Response, 0, len(all))
	for _, p := range all {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		resp := toResponse(p)
		if patient := s.lookup(ctx, names, p.PatientID); patient != nil {
			resp.PatientFirstName = patient.FirstName
			resp.PatientLastName = patient.LastName
		}
		if doctor := s.lookup(ctx, names, p.DoctorID); doctor != nil {
			resp.DoctorFirstName = doctor.FirstName
			resp.DoctorLastName = doctor.LastName
		}
		out = append(out, resp)
	}
	return out, nil
}

// lookup memoizes user fetches across one list call. A failed lookup leaves
// the names blank rather than failing the whole listing.
func (s *Service) lookup(ctx context.Context, cache map[uuid.UUID]*identity.User, id uuid.UUID) *identity.User {
	if u, ok := cache[id]; ok {
		return u
	}
	u, err := s.users.User(ctx, id)
	if err != nil {
		u = nil
	}
	cache[id] = u
	return u
}

// Get fetches one prescription. Only the issuing doctor or the patient may
// view it.
func (s *Service) Get(ctx context.Context, id, callerID uuid.UUID) (*Response, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PatientID != callerID && p.DoctorID != callerID {
		return nil, ErrForbidden
	}
	return toResponse(p), nil
}

// Cancel transitions a prescription to CANCELLED. Only the issuing doctor may
// cancel, and only while the record is still ACTIVE. The transition itself is
// a conditional write, so concurrent cancels cannot both succeed.
func (s *Service) Cancel(ctx context.Context, id, doctorID uuid.UUID) (*Response, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}

	cancelled, err := s.repo.CancelActive(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(cancelled), nil
}

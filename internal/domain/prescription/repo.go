package prescription

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores prescription records.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Prescription, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
	// CancelActive transitions status ACTIVE -> CANCELLED as a single
	// conditional write and returns the updated record. ErrNotActive when
	// the record exists but is no longer ACTIVE, so two racing cancel calls
	// cannot both succeed.
	CancelActive(ctx context.Context, id uuid.UUID) (*Prescription, error)
}

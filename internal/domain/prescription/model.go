package prescription

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SnomedSystem is the default coding system for mapped medication codes.
const SnomedSystem = "http://snomed.info/sct"

// CodeUnmapped marks a free-text medication entry with no structured code.
const CodeUnmapped = "UNMAPPED"

// Status of a prescription. ACTIVE transitions to CANCELLED exactly once;
// CANCELLED is terminal.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrNotFound        = errors.New("prescription not found")
	ErrForbidden       = errors.New("not a party to this prescription")
	ErrNotDoctor       = errors.New("doctor role required")
	ErrPatientNotFound = errors.New("patient not found")
	ErrNotActive       = errors.New("prescription is not active")
)

// MedicationItem is one line of a prescription. Coding fields are normalized
// on create; see Normalize.
type MedicationItem struct {
	System        string `json:"system"`
	Code          string `json:"code"`
	Display       string `json:"display"`
	OriginalInput string `json:"original_input,omitempty"`
	Name          string `json:"name,omitempty"`
	Dosage        string `json:"dosage"`
	Frequency     string `json:"frequency"`
	Duration      string `json:"duration"`
	Instructions  string `json:"instructions,omitempty"`
}

// Normalize fills the coding fields for free-text entries. A missing code
// becomes UNMAPPED; the system follows the code (UNMAPPED for unmapped
// entries, SNOMED otherwise); display falls back to the original input, then
// the structured name; and for unmapped entries the original input is
// backfilled from display so the doctor's entry is never lost.
func (m *MedicationItem) Normalize() {
	if m.Code == "" {
		m.Code = CodeUnmapped
	}
	if m.System == "" {
		if m.Code == CodeUnmapped {
			m.System = CodeUnmapped
		} else {
			m.System = SnomedSystem
		}
	}
	if m.Display == "" {
		if m.OriginalInput != "" {
			m.Display = m.OriginalInput
		} else {
			m.Display = m.Name
		}
	}
	if m.Code == CodeUnmapped && m.OriginalInput == "" {
		m.OriginalInput = m.Display
	}
}

// Prescription is immutable once created except for Status.
type Prescription struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      Status
	Diagnosis   *string
	Medications []MedicationItem
}

// Response is the wire shape. Counterpart names are filled in by the list
// enrichment step and omitted elsewhere.
type Response struct {
	PrescriptionID   string           `json:"prescriptionId"`
	PatientID        string           `json:"patientId"`
	DoctorID         string           `json:"doctorId"`
	CreatedAt        time.Time        `json:"createdAt"`
	ExpiresAt        time.Time        `json:"expiresAt"`
	Status           Status           `json:"status"`
	Diagnosis        *string          `json:"diagnosis,omitempty"`
	Medications      []MedicationItem `json:"medications"`
	PatientFirstName *string          `json:"patientFirstName,omitempty"`
	PatientLastName  *string          `json:"patientLastName,omitempty"`
	DoctorFirstName  *string          `json:"doctorFirstName,omitempty"`
	DoctorLastName   *string          `json:"doctorLastName,omitempty"`
}

func toResponse(p *Prescription) *Response {
	return &Response{
		PrescriptionID: p.ID.String(),
		PatientID:      p.PatientID.String(),
		DoctorID:       p.DoctorID.String(),
		CreatedAt:      p.CreatedAt,
		ExpiresAt:      p.ExpiresAt,
		Status:         p.Status,
		Diagnosis:      p.Diagnosis,
		Medications:    p.Medications,
	}
}

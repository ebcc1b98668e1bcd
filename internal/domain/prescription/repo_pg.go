package prescription

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const columns = `id, patient_id, doctor_id, created_at, expires_at, status, diagnosis, medications`

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, created_at, expires_at, status, diagnosis, medications)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.PatientID, p.DoctorID, p.CreatedAt, p.ExpiresAt, p.Status, p.Diagnosis, meds,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM prescriptions WHERE id = $1`, id))
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Prescription, error) {
	return r.list(ctx, `SELECT `+columns+` FROM prescriptions WHERE doctor_id = $1 ORDER BY created_at`, doctorID)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return r.list(ctx, `SELECT `+columns+` FROM prescriptions WHERE patient_id = $1 ORDER BY created_at`, patientID)
}

func (r *repoPG) CancelActive(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := r.scan(r.pool.QueryRow(ctx, `
		UPDATE prescriptions SET status = 'CANCELLED'
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+columns, id))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotActive
	}
	return p, err
}

func (r *repoPG) list(ctx context.Context, query string, arg interface{}) ([]*Prescription, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) scan(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var meds []byte
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.CreatedAt, &p.ExpiresAt, &p.Status, &p.Diagnosis, &meds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meds, &p.Medications); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Prescription, error) {
	var p Prescription
	var meds []byte
	err := rows.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.CreatedAt, &p.ExpiresAt, &p.Status, &p.Diagnosis, &meds)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meds, &p.Medications); err != nil {
		return nil, err
	}
	return &p, nil
}

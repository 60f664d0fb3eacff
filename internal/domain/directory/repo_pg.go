package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const (
	patientCols = `id, patient_no, first_name, last_name, gender`
	visitCols   = `id, patient_id, visit_date, status, admission_recommended`
	serviceCols = `id, name, service_type, price, active`
)

func (r *repoPG) FindPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.PatientNo, &p.FirstName, &p.LastName, &p.Gender)
	if err != nil {
		return nil, lookupErr("patient", err)
	}
	return &p, nil
}

func (r *repoPG) LockPatient(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id FROM patient WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return lookupErr("patient", err)
	}
	return nil
}

func (r *repoPG) FindVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	var v Visit
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id).
		Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Status, &v.AdmissionRecommended)
	if err != nil {
		return nil, lookupErr("visit", err)
	}
	return &v, nil
}

func (r *repoPG) MarkVisitAdmitted(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE visit SET admission_recommended = TRUE, status = 'admitted', updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return apperror.Storage("mark visit admitted", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("visit")
	}
	return nil
}

func (r *repoPG) FindService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+serviceCols+` FROM service_catalog WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.ServiceType, &s.Price, &s.Active)
	if err != nil {
		return nil, lookupErr("service", err)
	}
	return &s, nil
}

func lookupErr(entity string, err error) error {
	if db.IsNoRows(err) {
		return apperror.NotFound(entity)
	}
	return apperror.Storage("lookup "+entity, err)
}

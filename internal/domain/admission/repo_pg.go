package admission

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
)

var dialect = goqu.Dialect("postgres")

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const admCols = `a.id, a.patient_id, a.bed_id, a.visit_id, a.transferred_from_id,
	a.admission_date, a.discharge_date, a.status,
	a.reason, a.admission_type, a.notes, a.admitted_by,
	a.discharge_type, a.discharge_summary, a.discharge_instructions,
	a.follow_up_date, a.medications, a.final_diagnosis,
	a.created_at, a.updated_at`

const detailCols = admCols + `,
	b.bed_number, b.ward_id, w.name, p.first_name || ' ' || p.last_name, p.patient_no, p.gender,
	v.visit_date`

const detailFrom = `admission a
	JOIN bed b ON b.id = a.bed_id
	JOIN ward w ON w.id = b.ward_id
	JOIN patient p ON p.id = a.patient_id
	LEFT JOIN visit v ON v.id = a.visit_id`

func admFields(a *Admission) []interface{} {
	return []interface{}{
		&a.ID, &a.PatientID, &a.BedID, &a.VisitID, &a.TransferredFromID,
		&a.AdmissionDate, &a.DischargeDate, &a.Status,
		&a.Reason, &a.AdmissionType, &a.Notes, &a.AdmittedBy,
		&a.DischargeType, &a.DischargeSummary, &a.DischargeInstructions,
		&a.FollowUpDate, &a.Medications, &a.FinalDiagnosis,
		&a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAdm(row pgx.Row) (*Admission, error) {
	var a Admission
	if err := row.Scan(admFields(&a)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	fields := append(admFields(&d.Admission),
		&d.BedNumber, &d.WardID, &d.WardName, &d.PatientName, &d.PatientNo, &d.Gender,
		&d.VisitDate)
	if err := row.Scan(fields...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO admission (
			id, patient_id, bed_id, visit_id, transferred_from_id,
			admission_date, status, reason, admission_type, notes, admitted_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.BedID, a.VisitID, a.TransferredFromID,
		a.AdmissionDate, a.Status, a.Reason, a.AdmissionType, a.Notes, a.AdmittedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		switch db.UniqueViolation(err) {
		case "uq_admission_active_patient":
			return apperror.New(apperror.KindAlreadyAdmitted, "patient already has an active admission")
		case "uq_admission_active_bed":
			return apperror.New(apperror.KindBedUnavailable, "bed is already occupied")
		}
		return apperror.Storage("create admission", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := scanAdm(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+admCols+` FROM admission a WHERE a.id = $1`, id))
	return a, getErr(err)
}

func (r *repoPG) LockByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := scanAdm(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+admCols+` FROM admission a WHERE a.id = $1 FOR UPDATE`, id))
	return a, getErr(err)
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := scanDetail(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+detailCols+` FROM `+detailFrom+` WHERE a.id = $1`, id))
	return d, getErr(err)
}

func getErr(err error) error {
	if err == nil {
		return nil
	}
	if db.IsNoRows(err) {
		return apperror.NotFound("admission")
	}
	return apperror.Storage("get admission", err)
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return r.optional(scanAdm(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+admCols+` FROM admission a
		WHERE a.patient_id = $1 AND a.status = 'Admitted'
		ORDER BY a.admission_date DESC
		LIMIT 1`, patientID)))
}

func (r *repoPG) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return r.optional(scanAdm(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+admCols+` FROM admission a
		WHERE a.patient_id = $1
		ORDER BY (a.status = 'Discharged') DESC, a.admission_date DESC
		LIMIT 1`, patientID)))
}

func (r *repoPG) optional(a *Admission, err error) (*Admission, error) {
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, apperror.Storage("find admission", err)
	}
	return a, nil
}

func (r *repoPG) Close(ctx context.Context, a *Admission) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE admission SET
			status=$2, discharge_date=$3,
			discharge_type=$4, discharge_summary=$5, discharge_instructions=$6,
			follow_up_date=$7, medications=$8, final_diagnosis=$9,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Status, a.DischargeDate,
		a.DischargeType, a.DischargeSummary, a.DischargeInstructions,
		a.FollowUpDate, a.Medications, a.FinalDiagnosis,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return apperror.NotFound("admission")
		}
		return apperror.Storage("close admission", err)
	}
	return nil
}

func listQuery(f Filter) *goqu.SelectDataset {
	ds := dialect.From(goqu.L(detailFrom))
	if f.Status != "" {
		ds = ds.Where(goqu.I("a.status").Eq(f.Status))
	}
	if f.PatientID != nil {
		ds = ds.Where(goqu.I("a.patient_id").Eq(f.PatientID.String()))
	}
	if f.WardID != nil {
		ds = ds.Where(goqu.I("b.ward_id").Eq(f.WardID.String()))
	}
	return ds
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error) {
	q := db.Conn(ctx, r.pool)
	ds := listQuery(f)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build admission count", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperror.Storage("count admissions", err)
	}

	listSQL, listArgs, err := ds.Select(goqu.L(detailCols)).
		Order(goqu.I("a.admission_date").Desc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build admission list", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, apperror.Storage("list admissions", err)
	}
	defer rows.Close()
	var items []*Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, apperror.Storage("scan admission", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Storage("list admissions", err)
	}
	return items, total, nil
}

// Stats counts today's admissions excluding transfer re-admissions, which
// are moves of an existing stay.
func (r *repoPG) Stats(ctx context.Context, dayStart time.Time) (*Stats, error) {
	var st Stats
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM admission WHERE status = 'Admitted'),
			(SELECT COUNT(*) FROM admission WHERE admission_date >= $1 AND transferred_from_id IS NULL),
			(SELECT COUNT(*) FROM admission WHERE status = 'Discharged' AND discharge_date >= $1),
			(SELECT COUNT(*) FROM bed),
			(SELECT COUNT(*) FROM bed WHERE status = 'Occupied'),
			(SELECT COALESCE(AVG(EXTRACT(EPOCH FROM discharge_date - admission_date) / 86400), 0)::float8
				FROM admission WHERE status = 'Discharged')`, dayStart).
		Scan(&st.CurrentAdmissions, &st.TodayAdmissions, &st.TodayDischarges,
			&st.TotalBeds, &st.OccupiedBeds, &st.AverageLengthOfStay)
	if err != nil {
		return nil, apperror.Storage("admission stats", err)
	}
	return &st, nil
}

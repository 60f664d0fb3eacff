package charge

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
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

const chargeCols = `c.id, c.patient_id, c.admission_id, c.service_id, c.description,
	c.quantity, c.unit_price, c.total_amount, c.paid, c.added_by, c.created_at`

const detailCols = chargeCols + `,
	p.first_name || ' ' || p.last_name, a.status, a.admission_date, b.bed_number, s.name, s.service_type`

const detailFrom = `charge c
	JOIN patient p ON p.id = c.patient_id
	LEFT JOIN admission a ON a.id = c.admission_id
	LEFT JOIN bed b ON b.id = a.bed_id
	LEFT JOIN service_catalog s ON s.id = c.service_id`

func chargeFields(c *Charge) []interface{} {
	return []interface{}{
		&c.ID, &c.PatientID, &c.AdmissionID, &c.ServiceID, &c.Description,
		&c.Quantity, &c.UnitPrice, &c.TotalAmount, &c.Paid, &c.AddedBy, &c.CreatedAt,
	}
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	fields := append(chargeFields(&d.Charge),
		&d.PatientName, &d.AdmissionStatus, &d.AdmissionDate, &d.BedNumber, &d.ServiceName, &d.ServiceType)
	if err := row.Scan(fields...); err != nil {
		return nil, err
	}
	return &d, nil
}

func collectCharges(rows pgx.Rows) ([]*Charge, error) {
	defer rows.Close()
	var out []*Charge
	for rows.Next() {
		var c Charge
		if err := rows.Scan(chargeFields(&c)...); err != nil {
			return nil, apperror.Storage("scan charge", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("read charges", err)
	}
	return out, nil
}

func (r *repoPG) Create(ctx context.Context, c *Charge) error {
	c.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO charge (
			id, patient_id, admission_id, service_id, description,
			quantity, unit_price, added_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING total_amount, paid, created_at`,
		c.ID, c.PatientID, c.AdmissionID, c.ServiceID, c.Description,
		c.Quantity, c.UnitPrice, c.AddedBy,
	).Scan(&c.TotalAmount, &c.Paid, &c.CreatedAt)
	if err != nil {
		return apperror.Storage("create charge", err)
	}
	return nil
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := scanDetail(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+detailCols+` FROM `+detailFrom+` WHERE c.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NotFound("charge")
		}
		return nil, apperror.Storage("get charge", err)
	}
	return d, nil
}

func listQuery(f Filter) *goqu.SelectDataset {
	ds := dialect.From(goqu.L(detailFrom))
	if f.PatientID != nil {
		ds = ds.Where(goqu.I("c.patient_id").Eq(f.PatientID.String()))
	}
	if f.AdmissionID != nil {
		ds = ds.Where(goqu.I("c.admission_id").Eq(f.AdmissionID.String()))
	}
	if f.Paid != nil {
		ds = ds.Where(goqu.I("c.paid").Eq(*f.Paid))
	}
	return ds
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error) {
	q := db.Conn(ctx, r.pool)
	ds := listQuery(f)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build charge count", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperror.Storage("count charges", err)
	}

	listSQL, listArgs, err := ds.Select(goqu.L(detailCols)).
		Order(goqu.I("c.created_at").Desc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build charge list", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, apperror.Storage("list charges", err)
	}
	defer rows.Close()
	var items []*Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, apperror.Storage("scan charge", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Storage("list charges", err)
	}
	return items, total, nil
}

func (r *repoPG) UnpaidForPatient(ctx context.Context, patientID uuid.UUID) ([]*Charge, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+chargeCols+` FROM charge c
		WHERE c.patient_id = $1 AND c.paid = FALSE
		ORDER BY c.created_at
		FOR UPDATE`, patientID)
	if err != nil {
		return nil, apperror.Storage("list unpaid charges", err)
	}
	return collectCharges(rows)
}

func (r *repoPG) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Charge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+chargeCols+` FROM charge c
		WHERE c.id = ANY($1::uuid[])
		ORDER BY c.created_at`, idStrings(ids))
	if err != nil {
		return nil, apperror.Storage("get charges", err)
	}
	return collectCharges(rows)
}

func (r *repoPG) MarkPaid(ctx context.Context, admissionID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE charge SET paid = TRUE
		WHERE paid = FALSE AND (admission_id = $1 OR id = ANY($2::uuid[]))`,
		admissionID, idStrings(ids))
	if err != nil {
		return 0, apperror.Storage("mark charges paid", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) Revenue(ctx context.Context) (*Revenue, error) {
	q := db.Conn(ctx, r.pool)
	rev := &Revenue{}
	err := q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE paid), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE NOT paid), 0)
		FROM charge`).Scan(&rev.TotalRevenue, &rev.PendingRevenue)
	if err != nil {
		return nil, apperror.Storage("charge revenue", err)
	}

	rows, err := q.Query(ctx, `
		SELECT COALESCE(s.service_type, $1), SUM(c.total_amount)
		FROM charge c LEFT JOIN service_catalog s ON s.id = c.service_id
		WHERE c.paid
		GROUP BY 1
		ORDER BY 2 DESC`, directory.DefaultServiceType)
	if err != nil {
		return nil, apperror.Storage("revenue by service type", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			serviceType string
			amount      decimal.Decimal
		)
		if err := rows.Scan(&serviceType, &amount); err != nil {
			return nil, apperror.Storage("scan revenue", err)
		}
		rev.ByServiceType = append(rev.ByServiceType, ServiceRevenue{ServiceType: serviceType, Revenue: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("revenue by service type", err)
	}
	return rev, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

package bill

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

const billCols = `bl.id, bl.bill_number, bl.patient_id, bl.admission_id,
	bl.total_amount, bl.amount_paid, bl.balance, bl.payment_status,
	bl.payment_method, bl.claim_number, bl.due_date, bl.payment_date,
	bl.created_at, bl.updated_at, p.first_name || ' ' || p.last_name`

const billFrom = `bill bl JOIN patient p ON p.id = bl.patient_id`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.PatientID, &b.AdmissionID,
		&b.TotalAmount, &b.AmountPaid, &b.Balance, &b.PaymentStatus,
		&b.PaymentMethod, &b.ClaimNumber, &b.DueDate, &b.PaymentDate,
		&b.CreatedAt, &b.UpdatedAt, &b.PatientName)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func getErr(err error) error {
	if db.IsNoRows(err) {
		return apperror.NotFound("bill")
	}
	return apperror.Storage("get bill", err)
}

func (r *repoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO bill (
			id, bill_number, patient_id, admission_id,
			total_amount, amount_paid, payment_status, due_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING balance, created_at, updated_at`,
		b.ID, b.BillNumber, b.PatientID, b.AdmissionID,
		b.TotalAmount, b.AmountPaid, b.PaymentStatus, b.DueDate,
	).Scan(&b.Balance, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if db.UniqueViolation(err) == "uq_bill_outstanding_patient" {
			return apperror.New(apperror.KindConflictingBill, "patient already has an outstanding bill")
		}
		return apperror.Storage("create bill", err)
	}
	return nil
}

func (r *repoPG) AddItems(ctx context.Context, billID uuid.UUID, chargeIDs []uuid.UUID) error {
	if len(chargeIDs) == 0 {
		return nil
	}
	ids := make([]string, len(chargeIDs))
	for i, id := range chargeIDs {
		ids[i] = id.String()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO bill_item (bill_id, charge_id)
		SELECT $1, unnest($2::uuid[])`, billID, ids)
	if err != nil {
		return apperror.Storage("record bill items", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+billCols+` FROM `+billFrom+` WHERE bl.id = $1`, id))
	if err != nil {
		return nil, getErr(err)
	}
	return b, nil
}

func (r *repoPG) LockByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+billCols+` FROM `+billFrom+` WHERE bl.id = $1
		FOR UPDATE OF bl`, id))
	if err != nil {
		return nil, getErr(err)
	}
	return b, nil
}

func (r *repoPG) HasOutstanding(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM bill WHERE patient_id = $1 AND balance > 0)`, patientID).Scan(&exists)
	if err != nil {
		return false, apperror.Storage("check outstanding bills", err)
	}
	return exists, nil
}

func (r *repoPG) RecordPayment(ctx context.Context, b *Bill) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE bill SET
			amount_paid=$2, payment_status=$3, payment_method=$4,
			claim_number=$5, payment_date=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING balance, updated_at`,
		b.ID, b.AmountPaid, b.PaymentStatus, b.PaymentMethod,
		b.ClaimNumber, b.PaymentDate,
	).Scan(&b.Balance, &b.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return apperror.NotFound("bill")
		}
		return apperror.Storage("record payment", err)
	}
	return nil
}

func (r *repoPG) ItemChargeIDs(ctx context.Context, billID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT charge_id FROM bill_item WHERE bill_id = $1`, billID)
	if err != nil {
		return nil, apperror.Storage("list bill items", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Storage("scan bill item", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("list bill items", err)
	}
	return ids, nil
}

func listQuery(f Filter, today time.Time) *goqu.SelectDataset {
	ds := dialect.From(goqu.L(billFrom))
	if f.PatientID != nil {
		ds = ds.Where(goqu.I("bl.patient_id").Eq(f.PatientID.String()))
	}
	switch f.PaymentStatus {
	case "":
	case StatusOverdue:
		ds = ds.Where(goqu.I("bl.balance").Gt(0), goqu.I("bl.due_date").Lt(today))
	default:
		ds = ds.Where(goqu.I("bl.payment_status").Eq(f.PaymentStatus))
	}
	return ds
}

func (r *repoPG) List(ctx context.Context, f Filter, today time.Time, limit, offset int) ([]*Bill, int, error) {
	q := db.Conn(ctx, r.pool)
	ds := listQuery(f, today)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build bill count", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperror.Storage("count bills", err)
	}

	listSQL, listArgs, err := ds.Select(goqu.L(billCols)).
		Order(goqu.I("bl.created_at").Desc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build bill list", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, apperror.Storage("list bills", err)
	}
	defer rows.Close()
	var bills []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, apperror.Storage("scan bill", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Storage("list bills", err)
	}
	return bills, total, nil
}

func (r *repoPG) StatusCounts(ctx context.Context, today time.Time) (*StatusCounts, error) {
	var sc StatusCounts
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE payment_status = 'Pending'),
			COUNT(*) FILTER (WHERE payment_status = 'Partial'),
			COUNT(*) FILTER (WHERE payment_status = 'Paid'),
			COUNT(*) FILTER (WHERE balance > 0 AND due_date < $1),
			COALESCE(SUM(balance) FILTER (WHERE balance > 0 AND due_date < $1), 0)
		FROM bill`, today).
		Scan(&sc.Pending, &sc.Partial, &sc.Paid, &sc.Overdue, &sc.OverdueBalance)
	if err != nil {
		return nil, apperror.Storage("bill status counts", err)
	}
	return &sc, nil
}

package ward

import (
	"context"

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

const (
	wardCols = `id, name, ward_type, gender_policy, created_at`
	bedCols  = `b.id, b.bed_number, b.ward_id, w.name, w.gender_policy,
	b.status, b.daily_rate, b.category, b.updated_at`
)

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.BedNumber, &b.WardID, &b.WardName, &b.GenderPolicy,
		&b.Status, &b.DailyRate, &b.Category, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repoPG) ListWards(ctx context.Context) ([]*Ward, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+wardCols+` FROM ward ORDER BY name`)
	if err != nil {
		return nil, apperror.Storage("list wards", err)
	}
	defer rows.Close()
	var wards []*Ward
	for rows.Next() {
		var w Ward
		if err := rows.Scan(&w.ID, &w.Name, &w.WardType, &w.GenderPolicy, &w.CreatedAt); err != nil {
			return nil, apperror.Storage("scan ward", err)
		}
		wards = append(wards, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("list wards", err)
	}
	return wards, nil
}

func (r *repoPG) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := scanBed(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+bedCols+`
		FROM bed b JOIN ward w ON w.id = b.ward_id
		WHERE b.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NotFound("bed")
		}
		return nil, apperror.Storage("get bed", err)
	}
	return b, nil
}

func bedQuery(f BedFilter) *goqu.SelectDataset {
	ds := dialect.From(goqu.T("bed").As("b")).
		Join(goqu.T("ward").As("w"), goqu.On(goqu.I("w.id").Eq(goqu.I("b.ward_id"))))
	if f.WardID != nil {
		ds = ds.Where(goqu.I("b.ward_id").Eq(f.WardID.String()))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("b.status").Eq(f.Status))
	}
	return ds
}

func (r *repoPG) ListBeds(ctx context.Context, f BedFilter, limit, offset int) ([]*Bed, int, error) {
	q := db.Conn(ctx, r.pool)
	ds := bedQuery(f)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build bed count", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperror.Storage("count beds", err)
	}

	listSQL, listArgs, err := ds.Select(goqu.L(bedCols)).
		Order(goqu.I("w.name").Asc(), goqu.I("b.bed_number").Asc()).
		Limit(uint(limit)).Offset(uint(offset)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, apperror.Storage("build bed list", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, apperror.Storage("list beds", err)
	}
	defer rows.Close()
	var beds []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, 0, apperror.Storage("scan bed", err)
		}
		beds = append(beds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Storage("list beds", err)
	}
	return beds, total, nil
}

func (r *repoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (*Bed, error) {
	b, err := scanBed(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE bed b SET status = $3, updated_at = NOW()
		FROM ward w
		WHERE b.id = $1 AND b.status = $2 AND w.id = b.ward_id
		RETURNING `+bedCols, id, from, to))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, apperror.Storage("update bed status", err)
	}
	return b, nil
}

func (r *repoPG) WardOccupancy(ctx context.Context, wardID uuid.UUID) (*Occupancy, error) {
	var o Occupancy
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT w.id, w.name,
			COUNT(b.id),
			COUNT(b.id) FILTER (WHERE b.status = 'Available'),
			COUNT(b.id) FILTER (WHERE b.status = 'Occupied'),
			COUNT(b.id) FILTER (WHERE b.status = 'Maintenance'),
			COUNT(b.id) FILTER (WHERE b.status = 'Reserved')
		FROM ward w LEFT JOIN bed b ON b.ward_id = w.id
		WHERE w.id = $1
		GROUP BY w.id, w.name`, wardID).
		Scan(&o.WardID, &o.WardName, &o.Total, &o.Available, &o.Occupied, &o.Maintenance, &o.Reserved)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NotFound("ward")
		}
		return nil, apperror.Storage("ward occupancy", err)
	}
	return &o, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

// lockWaitSec bounds how long a writer waits on the per-group advisory
// lock before giving up with Unavailable.
const lockWaitSec = 5

const dateLayout = "2006-01-02"

func dateArg(t time.Time) string { return t.Format(dateLayout) }

func scanDecimal(b []byte, dst *decimal.Decimal) error {
	if len(b) == 0 {
		*dst = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// duplicateEntry reports the MySQL 1062 constraint violation.
func duplicateEntry(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- units ----

func (r *Repo) Units(ctx context.Context) ([]domain.Unit, error) {
	rows, err := r.db.QueryContext(ctx, selectUnitsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) UnitByID(ctx context.Context, id int64) (domain.Unit, error) {
	u, err := scanUnit(r.db.QueryRowContext(ctx, selectUnitSQL, id))
	if err == sql.ErrNoRows {
		return domain.Unit{}, domain.ErrNotFound
	}
	return u, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUnit(row rowScanner) (domain.Unit, error) {
	var u domain.Unit
	var kind string
	var parent sql.NullInt64
	if err := row.Scan(&u.ID, &u.Name, &u.TypeID, &kind, &u.MaxOccupancy, &parent); err != nil {
		return domain.Unit{}, err
	}
	u.Kind = domain.UnitKind(kind)
	if parent.Valid {
		p := parent.Int64
		u.ParentID = &p
	}
	return u, nil
}

// ---- reservations ----

func (r *Repo) Overlapping(ctx context.Context, start, end time.Time, q domain.OverlapQuery) ([]domain.Reservation, error) {
	sqlStr := selectReservationBase + overlapWhere
	args := []any{dateArg(end), dateArg(start)}
	if q.UnitID != 0 {
		sqlStr += " AND r.unit_id = ?"
		args = append(args, q.UnitID)
	}
	if q.ExcludeReservationID != 0 {
		sqlStr += " AND r.id <> ?"
		args = append(args, q.ExcludeReservationID)
	}
	sqlStr += " ORDER BY r.start_date, r.id"
	return r.queryReservations(ctx, sqlStr, args...)
}

func (r *Repo) ReservationByID(ctx context.Context, id int64) (domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, selectReservationBase+" WHERE r.id = ?", id))
	if err == sql.ErrNoRows {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, err
}

func (r *Repo) ListReservations(ctx context.Context, status domain.Status) ([]domain.Reservation, error) {
	sqlStr := selectReservationBase
	var args []any
	if status != "" {
		sqlStr += " WHERE r.status = ?"
		args = append(args, string(status))
	}
	sqlStr += " ORDER BY r.start_date, r.id"
	return r.queryReservations(ctx, sqlStr, args...)
}

func (r *Repo) ReservationsForGuest(ctx context.Context, guestID int64) ([]domain.Reservation, error) {
	return r.queryReservations(ctx,
		selectReservationBase+" WHERE r.guest_id = ? ORDER BY r.start_date DESC, r.id DESC", guestID)
}

func (r *Repo) queryReservations(ctx context.Context, sqlStr string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	if err := row.Scan(
		&res.ID,
		&res.Reference,
		&res.GuestID,
		&res.UnitID,
		&res.PlatformID,
		&res.Start,
		&res.End,
		&res.PartySize,
		&status,
		&res.GuestName,
		&res.UnitName,
		&res.Platform,
	); err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.Status(status)
	return res, nil
}

// CreateReservation writes the reservation and its line items in one
// transaction. A uniqueness conflict on insert maps to ErrUnavailable so
// a racing writer never half-lands.
func (r *Repo) CreateReservation(ctx context.Context, res domain.Reservation, items []domain.LineItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, insertReservationSQL,
		res.Reference,
		res.GuestID,
		res.UnitID,
		res.PlatformID,
		dateArg(res.Start),
		dateArg(res.End),
		res.PartySize,
		string(res.Status),
	)
	if err != nil {
		if duplicateEntry(err) {
			return 0, fmt.Errorf("reservation conflict: %w", domain.ErrUnavailable)
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := insertItems(ctx, tx, id, items); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdateReservation overwrites the mutable fields and replaces every line
// item with the fresh quote, atomically.
func (r *Repo) UpdateReservation(ctx context.Context, res domain.Reservation, items []domain.LineItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, updateReservationSQL,
		res.UnitID,
		dateArg(res.Start),
		dateArg(res.End),
		res.PartySize,
		res.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// MySQL also reports 0 when nothing changed; confirm existence.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, res.ID).Scan(&one); err == sql.ErrNoRows {
			return domain.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, deleteItemsSQL, res.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, res.ID, items); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, reservationID int64, items []domain.LineItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, insertItemSQL,
			reservationID, it.CategoryID, it.Quantity, it.UnitPrice.String(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) UpdateReservationStatus(ctx context.Context, id int64, st domain.Status) error {
	result, err := r.db.ExecContext(ctx, updateStatusSQL, string(st), id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one); err == sql.ErrNoRows {
			return domain.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) DeleteReservation(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteItemsSQL, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, deleteReservationSQL, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (r *Repo) LineItems(ctx context.Context, reservationID int64) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItemsSQL, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		var price []byte
		if err := rows.Scan(&it.ID, &it.ReservationID, &it.CategoryID, &it.Category, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if err := scanDecimal(price, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ---- guests ----

func (r *Repo) GuestByEmail(ctx context.Context, email string) (domain.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx, guestByEmailSQL, email))
}

func (r *Repo) GuestByID(ctx context.Context, id int64) (domain.Guest, error) {
	return scanGuest(r.db.QueryRowContext(ctx, guestByIDSQL, id))
}

func scanGuest(row rowScanner) (domain.Guest, error) {
	var g domain.Guest
	var phone, street, houseNo, postal, city, country sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.Email, &phone, &street, &houseNo, &postal, &city, &country); err != nil {
		if err == sql.ErrNoRows {
			return domain.Guest{}, domain.ErrNotFound
		}
		return domain.Guest{}, err
	}
	g.Phone = phone.String
	g.Street = street.String
	g.HouseNo = houseNo.String
	g.PostalCode = postal.String
	g.City = city.String
	g.Country = country.String
	return g, nil
}

func (r *Repo) CreateGuest(ctx context.Context, g domain.Guest) (int64, error) {
	result, err := r.db.ExecContext(ctx, insertGuestSQL,
		g.Name, g.Email, nullStr(g.Phone), nullStr(g.Street), nullStr(g.HouseNo),
		nullStr(g.PostalCode), nullStr(g.City), nullStr(g.Country),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ---- rates and platforms ----

func (r *Repo) ResolveRate(ctx context.Context, typeID, platformID int64, on time.Time) (domain.Rate, error) {
	day := dateArg(on)
	row := r.db.QueryRowContext(ctx, resolveRateSQL, typeID, platformID, day, day)

	var rt domain.Rate
	var platform sql.NullInt64
	var price, taxRate []byte
	var validTo sql.NullTime
	if err := row.Scan(
		&rt.ID, &rt.TypeID, &rt.CategoryID, &platform,
		&price, &rt.TaxIncluded, &taxRate,
		&rt.ValidFrom, &validTo, &rt.Category,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Rate{}, fmt.Errorf("no rate for type %d on %s: %w", typeID, day, domain.ErrNotFound)
		}
		return domain.Rate{}, err
	}
	if platform.Valid {
		p := platform.Int64
		rt.PlatformID = &p
	}
	if validTo.Valid {
		t := validTo.Time
		rt.ValidTo = &t
	}
	if err := scanDecimal(price, &rt.Price); err != nil {
		return domain.Rate{}, err
	}
	if err := scanDecimal(taxRate, &rt.TaxRate); err != nil {
		return domain.Rate{}, err
	}
	return rt, nil
}

func (r *Repo) Platforms(ctx context.Context) ([]domain.Platform, error) {
	rows, err := r.db.QueryContext(ctx, selectPlatformsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Platform
	for rows.Next() {
		var p domain.Platform
		var commission []byte
		if err := rows.Scan(&p.ID, &p.Name, &commission); err != nil {
			return nil, err
		}
		if err := scanDecimal(commission, &p.Commission); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- audit ----

func (r *Repo) Record(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx, insertAuditSQL,
		e.Action, e.Entity, e.EntityID, e.At.UTC().Format("2006-01-02 15:04:05"))
	return err
}

// ---- locking ----

// WithBookingLock serializes writers on one named advisory lock per unit
// group. The lock lives on a dedicated connection; GET_LOCK and
// RELEASE_LOCK only pair up on the same session.
func (r *Repo) WithBookingLock(ctx context.Context, key string, fn func(context.Context) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, key, lockWaitSec).Scan(&got); err != nil {
		return fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if !got.Valid || got.Int64 != 1 {
		return fmt.Errorf("lock %q held too long: %w", key, domain.ErrUnavailable)
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), `SELECT RELEASE_LOCK(?)`, key)

	return fn(ctx)
}

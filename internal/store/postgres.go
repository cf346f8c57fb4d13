package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store/config"
)

type pgStore struct {
	database *sql.DB
}

func NewPGStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &pgStore{database: db}, nil
}

func migrate(db *sql.DB) error {
	// Единицы крови. Код единицы - первичный ключ, уникальность проверяется вставкой.
	// Длина кода ограничена model.MaxCodeLength
	_, err := db.Exec(
		"CREATE TABLE IF NOT EXISTS blood_unit (" +
			" code VARCHAR (100) PRIMARY KEY," +
			" bank VARCHAR (64) NOT NULL," +
			" donor VARCHAR (64) NOT NULL DEFAULT ''," +
			" blood_group VARCHAR (3) NOT NULL," +
			" volume INTEGER NOT NULL CHECK (volume > 0)," +
			" collection_date DATE NOT NULL," +
			" expiration_date DATE NOT NULL," +
			" status VARCHAR (10) NOT NULL," +
			" notes TEXT NOT NULL DEFAULT ''," +
			" created_at TIMESTAMPTZ NOT NULL," +
			" updated_at TIMESTAMPTZ NOT NULL," +
			" CHECK (expiration_date > collection_date)" +
			" );")
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"CREATE INDEX IF NOT EXISTS blood_unit_stock_idx" +
			" ON blood_unit (bank, blood_group, status, collection_date);")
	if err != nil {
		return err
	}

	// Журнал движения. Только вставка, записи не изменяются
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS stock_transaction (" +
			" operation BIGSERIAL PRIMARY KEY," +
			" unit VARCHAR (100) NOT NULL REFERENCES blood_unit (code)," +
			" type VARCHAR (12) NOT NULL," +
			" timestamp TIMESTAMPTZ NOT NULL," +
			" source VARCHAR (255) NOT NULL DEFAULT ''," +
			" destination VARCHAR (255) NOT NULL DEFAULT ''," +
			" notes TEXT NOT NULL DEFAULT ''" +
			" );")
	if err != nil {
		return err
	}

	// Заявки
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS blood_request (" +
			" id BIGSERIAL PRIMARY KEY," +
			" consumer VARCHAR (64) NOT NULL," +
			" bank VARCHAR (64) NOT NULL," +
			" blood_group VARCHAR (3) NOT NULL," +
			" units_required INTEGER NOT NULL CHECK (units_required > 0)," +
			" priority VARCHAR (10) NOT NULL," +
			" patient_name VARCHAR (255) NOT NULL," +
			" patient_age INTEGER NOT NULL," +
			" patient_gender VARCHAR (16) NOT NULL," +
			" hospital_name VARCHAR (255) NOT NULL," +
			" status VARCHAR (10) NOT NULL," +
			" requested_at TIMESTAMPTZ NOT NULL," +
			" required_by DATE NOT NULL," +
			" responded_at TIMESTAMPTZ," +
			" notes TEXT NOT NULL DEFAULT ''," +
			" rejection_reason TEXT NOT NULL DEFAULT ''," +
			" CHECK (status <> 'REJECTED' OR rejection_reason <> '')" +
			" );")
	if err != nil {
		return err
	}

	// Выданные по заявке единицы. Единица может принадлежать только одной заявке
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS blood_request_unit (" +
			" request_id BIGINT NOT NULL REFERENCES blood_request (id)," +
			" unit VARCHAR (100) NOT NULL UNIQUE REFERENCES blood_unit (code)," +
			" position INTEGER NOT NULL," +
			" PRIMARY KEY (request_id, unit)" +
			" );")
	if err != nil {
		return err
	}

	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS inventory_alert (" +
			" id BIGSERIAL PRIMARY KEY," +
			" bank VARCHAR (64) NOT NULL," +
			" type VARCHAR (20) NOT NULL," +
			" blood_group VARCHAR (3) NOT NULL," +
			" description TEXT NOT NULL," +
			" active BOOLEAN NOT NULL," +
			" created_at TIMESTAMPTZ NOT NULL," +
			" resolved_at TIMESTAMPTZ" +
			" );")
	return err
}

func (store *pgStore) Close() error {
	return store.database.Close()
}

type pgTxKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn возвращает транзакцию из контекста, если она открыта
func (store *pgStore) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return store.database
}

func (store *pgStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

const unitColumns = "code, bank, donor, blood_group, volume, collection_date, expiration_date, status, notes, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (model.BloodUnit, error) {
	var unit model.BloodUnit
	err := row.Scan(&unit.Code,
		&unit.Data.Bank,
		&unit.Data.Donor,
		&unit.Data.Group,
		&unit.Data.Volume,
		&unit.Data.CollectionDate,
		&unit.Data.ExpirationDate,
		&unit.Data.Status,
		&unit.Data.Notes,
		&unit.Data.CreatedAt,
		&unit.Data.UpdatedAt)
	return unit, err
}

func scanUnits(rows *sql.Rows) ([]model.BloodUnit, error) {
	defer rows.Close()
	var units []model.BloodUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// statusList строит "$n, $n+1, ..." для условия IN
func statusList(start int, statuses []model.UnitStatus) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "$" + strconv.Itoa(start+i)
		args[i] = string(s)
	}
	return strings.Join(placeholders, ", "), args
}

func (store *pgStore) UnitPost(ctx context.Context, unit model.BloodUnit) error {
	// ON CONFLICT не прерывает внешнюю транзакцию, в отличие от ошибки 23505
	res, err := store.conn(ctx).ExecContext(ctx,
		"INSERT INTO blood_unit ("+unitColumns+")"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"+
			" ON CONFLICT (code) DO NOTHING",
		unit.Code,
		unit.Data.Bank,
		unit.Data.Donor,
		string(unit.Data.Group),
		unit.Data.Volume,
		unit.Data.CollectionDate,
		unit.Data.ExpirationDate,
		string(unit.Data.Status),
		unit.Data.Notes,
		unit.Data.CreatedAt,
		unit.Data.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (store *pgStore) UnitGet(ctx context.Context, code string) (model.BloodUnit, error) {
	row := store.conn(ctx).QueryRowContext(ctx,
		"SELECT "+unitColumns+
			" FROM blood_unit"+
			" WHERE code = $1",
		code)
	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BloodUnit{}, ErrNoRows
		}
		return model.BloodUnit{}, err
	}
	return unit, nil
}

func (store *pgStore) UnitGetAvailable(ctx context.Context, bank string, group model.BloodGroup, limit int) ([]model.BloodUnit, error) {
	// Старые единицы выдаются первыми. Строки, заблокированные параллельной выдачей, пропускаются
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT "+unitColumns+
			" FROM blood_unit"+
			" WHERE bank = $1"+
			"   AND blood_group = $2"+
			"   AND status = $3"+
			" ORDER BY collection_date, created_at, code"+
			" LIMIT $4"+
			" FOR UPDATE SKIP LOCKED",
		bank,
		string(group),
		string(model.UnitStatusAvailable),
		limit)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

func (store *pgStore) UnitGetExpiring(ctx context.Context, before time.Time, statuses ...model.UnitStatus) ([]model.BloodUnit, error) {
	in, args := statusList(2, statuses)
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT "+unitColumns+
			" FROM blood_unit"+
			" WHERE expiration_date <= $1"+
			"   AND status IN ("+in+")"+
			" ORDER BY expiration_date, code",
		append([]any{before}, args...)...)
	if err != nil {
		return nil, err
	}
	return scanUnits(rows)
}

func (store *pgStore) UnitPutStatus(ctx context.Context, code string, to model.UnitStatus, at time.Time, from ...model.UnitStatus) error {
	// Смена статуса только из ожидаемого состояния (compare-and-set)
	in, args := statusList(4, from)
	res, err := store.conn(ctx).ExecContext(ctx,
		"UPDATE blood_unit"+
			" SET status = $1, updated_at = $2"+
			" WHERE code = $3"+
			"   AND status IN ("+in+")",
		append([]any{string(to), at, code}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = store.conn(ctx).QueryRowContext(ctx,
		"SELECT status FROM blood_unit WHERE code = $1",
		code).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	if err != nil {
		return err
	}
	return ErrStatusConflict
}

func (store *pgStore) UnitCountAvailable(ctx context.Context, bank string, group model.BloodGroup) (int, error) {
	query := "SELECT COUNT(*) FROM blood_unit" +
		" WHERE status = $1" +
		"   AND blood_group = $2"
	args := []any{string(model.UnitStatusAvailable), string(group)}
	if bank != "" {
		query += "   AND bank = $3"
		args = append(args, bank)
	}

	var count int
	if err := store.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (store *pgStore) UnitCountAvailableByBank(ctx context.Context, group model.BloodGroup) (map[string]int, error) {
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT bank, COUNT(*)"+
			" FROM blood_unit"+
			" WHERE status = $1"+
			"   AND blood_group = $2"+
			" GROUP BY bank",
		string(model.UnitStatusAvailable),
		string(group))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var bank string
		var count int
		if err := rows.Scan(&bank, &count); err != nil {
			return nil, err
		}
		counts[bank] = count
	}
	return counts, rows.Err()
}

func (store *pgStore) TransactionPost(ctx context.Context, tx model.StockTransaction) (model.StockTransaction, error) {
	row := store.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO stock_transaction (unit, type, timestamp, source, destination, notes)"+
			" VALUES ($1, $2, $3, $4, $5, $6)"+
			" RETURNING operation",
		tx.Key.Unit,
		string(tx.Data.Type),
		tx.Data.Timestamp,
		tx.Data.Source,
		tx.Data.Destination,
		tx.Data.Notes)
	if err := row.Scan(&tx.Key.Operation); err != nil {
		return model.StockTransaction{}, err
	}
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]model.StockTransaction, error) {
	defer rows.Close()
	var txs []model.StockTransaction
	for rows.Next() {
		var tx model.StockTransaction
		err := rows.Scan(&tx.Key.Unit,
			&tx.Key.Operation,
			&tx.Data.Type,
			&tx.Data.Timestamp,
			&tx.Data.Source,
			&tx.Data.Destination,
			&tx.Data.Notes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (store *pgStore) TransactionGetByUnit(ctx context.Context, unit string) ([]model.StockTransaction, error) {
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT unit, operation, type, timestamp, source, destination, notes"+
			" FROM stock_transaction"+
			" WHERE unit = $1"+
			" ORDER BY timestamp, operation",
		unit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (store *pgStore) TransactionGetByPeriod(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error) {
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT unit, operation, type, timestamp, source, destination, notes"+
			" FROM stock_transaction"+
			" WHERE timestamp >= $1"+
			"   AND timestamp < $2"+
			" ORDER BY timestamp, operation",
		from,
		to)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const requestColumns = "id, consumer, bank, blood_group, units_required, priority, patient_name, patient_age," +
	" patient_gender, hospital_name, status, requested_at, required_by, responded_at, notes, rejection_reason"

func scanRequest(row rowScanner) (model.BloodRequest, error) {
	var request model.BloodRequest
	var respondedAt sql.NullTime
	err := row.Scan(&request.ID,
		&request.Data.Consumer,
		&request.Data.Bank,
		&request.Data.Group,
		&request.Data.UnitsRequired,
		&request.Data.Priority,
		&request.Data.PatientName,
		&request.Data.PatientAge,
		&request.Data.PatientGender,
		&request.Data.HospitalName,
		&request.Data.Status,
		&request.Data.RequestedAt,
		&request.Data.RequiredBy,
		&respondedAt,
		&request.Data.Notes,
		&request.Data.RejectionReason)
	if respondedAt.Valid {
		request.Data.RespondedAt = respondedAt.Time
	}
	return request, err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (store *pgStore) RequestPost(ctx context.Context, request model.BloodRequest) (model.BloodRequest, error) {
	row := store.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO blood_request (consumer, bank, blood_group, units_required, priority, patient_name, patient_age,"+
			" patient_gender, hospital_name, status, requested_at, required_by, responded_at, notes, rejection_reason)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)"+
			" RETURNING id",
		request.Data.Consumer,
		request.Data.Bank,
		string(request.Data.Group),
		request.Data.UnitsRequired,
		string(request.Data.Priority),
		request.Data.PatientName,
		request.Data.PatientAge,
		request.Data.PatientGender,
		request.Data.HospitalName,
		string(request.Data.Status),
		request.Data.RequestedAt,
		request.Data.RequiredBy,
		nullTime(request.Data.RespondedAt),
		request.Data.Notes,
		request.Data.RejectionReason)
	if err := row.Scan(&request.ID); err != nil {
		return model.BloodRequest{}, err
	}
	return request, nil
}

func (store *pgStore) requestUnits(ctx context.Context, id int64) ([]string, error) {
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT unit FROM blood_request_unit"+
			" WHERE request_id = $1"+
			" ORDER BY position",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []string
	for rows.Next() {
		var unit string
		if err := rows.Scan(&unit); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (store *pgStore) RequestGet(ctx context.Context, id int64) (model.BloodRequest, error) {
	row := store.conn(ctx).QueryRowContext(ctx,
		"SELECT "+requestColumns+
			" FROM blood_request"+
			" WHERE id = $1",
		id)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BloodRequest{}, ErrNoRows
		}
		return model.BloodRequest{}, err
	}
	request.Data.AllocatedUnits, err = store.requestUnits(ctx, id)
	if err != nil {
		return model.BloodRequest{}, err
	}
	return request, nil
}

func (store *pgStore) requestsWhere(ctx context.Context, column string, value string) ([]model.BloodRequest, error) {
	rows, err := store.conn(ctx).QueryContext(ctx,
		"SELECT "+requestColumns+
			" FROM blood_request"+
			" WHERE "+column+" = $1"+
			" ORDER BY requested_at DESC, id DESC",
		value)
	if err != nil {
		return nil, err
	}
	var requests []model.BloodRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		requests = append(requests, request)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Единицы читаются после закрытия курсора: соединение транзакции одно
	for i := range requests {
		requests[i].Data.AllocatedUnits, err = store.requestUnits(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (store *pgStore) RequestGetByConsumer(ctx context.Context, consumer string) ([]model.BloodRequest, error) {
	return store.requestsWhere(ctx, "consumer", consumer)
}

func (store *pgStore) RequestGetByBank(ctx context.Context, bank string) ([]model.BloodRequest, error) {
	return store.requestsWhere(ctx, "bank", bank)
}

func (store *pgStore) RequestPut(ctx context.Context, request model.BloodRequest, from model.RequestStatus) error {
	res, err := store.conn(ctx).ExecContext(ctx,
		"UPDATE blood_request"+
			" SET status = $1, responded_at = $2, notes = $3, rejection_reason = $4"+
			" WHERE id = $5"+
			"   AND status = $6",
		string(request.Data.Status),
		nullTime(request.Data.RespondedAt),
		request.Data.Notes,
		request.Data.RejectionReason,
		request.ID,
		string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err = store.conn(ctx).QueryRowContext(ctx,
			"SELECT status FROM blood_request WHERE id = $1",
			request.ID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		if err != nil {
			return err
		}
		return ErrStatusConflict
	}

	for i, unit := range request.Data.AllocatedUnits {
		_, err = store.conn(ctx).ExecContext(ctx,
			"INSERT INTO blood_request_unit (request_id, unit, position)"+
				" VALUES ($1, $2, $3)",
			request.ID,
			unit,
			i)
		if err != nil {
			// Проверка: единица уже числится за другой заявкой
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
			return err
		}
	}
	return nil
}

func (store *pgStore) AlertPost(ctx context.Context, alert model.InventoryAlert) (model.InventoryAlert, error) {
	row := store.conn(ctx).QueryRowContext(ctx,
		"INSERT INTO inventory_alert (bank, type, blood_group, description, active, created_at, resolved_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7)"+
			" RETURNING id",
		alert.Data.Bank,
		string(alert.Data.Type),
		string(alert.Data.Group),
		alert.Data.Description,
		alert.Data.Active,
		alert.Data.CreatedAt,
		nullTime(alert.Data.ResolvedAt))
	if err := row.Scan(&alert.ID); err != nil {
		return model.InventoryAlert{}, err
	}
	return alert, nil
}

func (store *pgStore) AlertGetActive(ctx context.Context, bank string) ([]model.InventoryAlert, error) {
	query := "SELECT id, bank, type, blood_group, description, active, created_at" +
		" FROM inventory_alert" +
		" WHERE active"
	var args []any
	if bank != "" {
		query += "   AND bank = $1"
		args = append(args, bank)
	}
	query += " ORDER BY created_at, id"

	rows, err := store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alerts []model.InventoryAlert
	for rows.Next() {
		var alert model.InventoryAlert
		err := rows.Scan(&alert.ID,
			&alert.Data.Bank,
			&alert.Data.Type,
			&alert.Data.Group,
			&alert.Data.Description,
			&alert.Data.Active,
			&alert.Data.CreatedAt)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (store *pgStore) AlertPutResolved(ctx context.Context, id int64, at time.Time) error {
	res, err := store.conn(ctx).ExecContext(ctx,
		"UPDATE inventory_alert"+
			" SET active = FALSE, resolved_at = $1"+
			" WHERE id = $2"+
			"   AND active",
		at,
		id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var active bool
	err = store.conn(ctx).QueryRowContext(ctx,
		"SELECT active FROM inventory_alert WHERE id = $1",
		id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	if err != nil {
		return err
	}
	return ErrStatusConflict
}

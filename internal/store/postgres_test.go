package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/raktkadi/internal/model"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *pgStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, &pgStore{database: db}
}

func TestPGUnitPost_Conflict(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO blood_unit .* ON CONFLICT \(code\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UnitPost(context.Background(), model.BloodUnit{Code: "BB-1-ON-20240101-AAAA"})
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUnitGetAvailable(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"code", "bank", "donor", "blood_group", "volume", "collection_date",
		"expiration_date", "status", "notes", "created_at", "updated_at"}).
		AddRow("u1", "1", "", "O-", 45000, day(2024, 1, 1), day(2024, 2, 12), "AVAILABLE", "", now, now).
		AddRow("u2", "1", "d1", "O-", 45000, day(2024, 1, 2), day(2024, 2, 13), "AVAILABLE", "", now, now)

	mock.ExpectQuery(`SELECT .* FROM blood_unit .* ORDER BY collection_date, created_at, code LIMIT \$4 FOR UPDATE SKIP LOCKED`).
		WithArgs("1", "O-", "AVAILABLE", 3).
		WillReturnRows(rows)

	units, err := store.UnitGetAvailable(context.Background(), "1", model.GroupONegative, 3)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "u1", units[0].Code)
	assert.Equal(t, model.GroupONegative, units[0].Data.Group)
	assert.Equal(t, "d1", units[1].Data.Donor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGUnitPutStatus(t *testing.T) {
	at := time.Now()

	t.Run("reserved", func(t *testing.T) {
		db, mock, store := setupMockDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE blood_unit SET status = \$1, updated_at = \$2 WHERE code = \$3 AND status IN \(\$4\)`).
			WithArgs("RESERVED", at, "u1", "AVAILABLE").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UnitPutStatus(context.Background(), "u1", model.UnitStatusReserved, at, model.UnitStatusAvailable)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict", func(t *testing.T) {
		db, mock, store := setupMockDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE blood_unit`).
			WithArgs("EXPIRED", at, "u1", "AVAILABLE", "RESERVED").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status FROM blood_unit WHERE code = \$1`).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("USED"))

		err := store.UnitPutStatus(context.Background(), "u1", model.UnitStatusExpired, at,
			model.UnitStatusAvailable, model.UnitStatusReserved)
		require.ErrorIs(t, err, ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock, store := setupMockDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE blood_unit`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status FROM blood_unit`).
			WithArgs("u1").
			WillReturnError(sql.ErrNoRows)

		err := store.UnitPutStatus(context.Background(), "u1", model.UnitStatusReserved, at, model.UnitStatusAvailable)
		require.ErrorIs(t, err, ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGInTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock, store := setupMockDB(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO stock_transaction .* RETURNING operation`).
			WillReturnRows(sqlmock.NewRows([]string{"operation"}).AddRow(7))
		mock.ExpectCommit()

		err := store.InTx(context.Background(), func(ctx context.Context) error {
			tx, err := store.TransactionPost(ctx, model.StockTransaction{
				Key:  model.StockTransactionKey{Unit: "u1"},
				Data: model.StockTransactionData{Type: model.TransactionCollection, Timestamp: time.Now()},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(7), tx.Key.Operation)

			// вложенная единица работы использует ту же транзакцию
			return store.InTx(ctx, func(context.Context) error { return nil })
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock, store := setupMockDB(t)
		defer db.Close()

		failure := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.InTx(context.Background(), func(context.Context) error { return failure })
		require.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGRequestPut_UnitTaken(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE blood_request SET status = \$1, responded_at = \$2, notes = \$3, rejection_reason = \$4 WHERE id = \$5 AND status = \$6`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO blood_request_unit`).
		WithArgs(int64(5), "u1", 0).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	request := model.BloodRequest{ID: 5, Data: model.BloodRequestData{
		Status:         model.RequestStatusApproved,
		RespondedAt:    time.Now(),
		AllocatedUnits: []string{"u1"},
	}}
	err := store.RequestPut(context.Background(), request, model.RequestStatusPending)
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRequestGet(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM blood_request WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "consumer", "bank", "blood_group", "units_required", "priority",
			"patient_name", "patient_age", "patient_gender", "hospital_name", "status", "requested_at", "required_by",
			"responded_at", "notes", "rejection_reason"}).
			AddRow(3, "c1", "1", "O-", 3, "URGENT", "Asha", 41, "F", "City Hospital", "APPROVED",
				now, day(2024, 1, 5), now, "", ""))
	mock.ExpectQuery(`SELECT unit FROM blood_request_unit WHERE request_id = \$1 ORDER BY position`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"unit"}).AddRow("u1").AddRow("u2"))

	request, err := store.RequestGet(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, request.Data.Status)
	assert.Equal(t, []string{"u1", "u2"}, request.Data.AllocatedUnits)
	assert.False(t, request.Data.RespondedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRequestGet_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM blood_request`).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.RequestGet(context.Background(), 3)
	require.ErrorIs(t, err, ErrNoRows)
}

func TestPGUnitCountAvailableByBank(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT bank, COUNT\(\*\) FROM blood_unit .* GROUP BY bank`).
		WithArgs("AVAILABLE", "A+").
		WillReturnRows(sqlmock.NewRows([]string{"bank", "count"}).AddRow("1", 4).AddRow("2", 1))

	counts, err := store.UnitCountAvailableByBank(context.Background(), model.GroupAPositive)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 4, "2": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

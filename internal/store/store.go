package store

import (
	"context"
	"errors"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store/config"
)

type Store interface {
	// InTx runs fn as a single unit of work. Nested calls join the outer one.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	UnitPost(ctx context.Context, unit model.BloodUnit) error
	UnitGet(ctx context.Context, code string) (model.BloodUnit, error)
	UnitGetAvailable(ctx context.Context, bank string, group model.BloodGroup, limit int) ([]model.BloodUnit, error)
	UnitGetExpiring(ctx context.Context, before time.Time, statuses ...model.UnitStatus) ([]model.BloodUnit, error)
	UnitPutStatus(ctx context.Context, code string, to model.UnitStatus, at time.Time, from ...model.UnitStatus) error
	UnitCountAvailable(ctx context.Context, bank string, group model.BloodGroup) (int, error)
	UnitCountAvailableByBank(ctx context.Context, group model.BloodGroup) (map[string]int, error)

	TransactionPost(ctx context.Context, tx model.StockTransaction) (model.StockTransaction, error)
	TransactionGetByUnit(ctx context.Context, unit string) ([]model.StockTransaction, error)
	TransactionGetByPeriod(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error)

	RequestPost(ctx context.Context, request model.BloodRequest) (model.BloodRequest, error)
	RequestGet(ctx context.Context, id int64) (model.BloodRequest, error)
	RequestGetByConsumer(ctx context.Context, consumer string) ([]model.BloodRequest, error)
	RequestGetByBank(ctx context.Context, bank string) ([]model.BloodRequest, error)
	RequestPut(ctx context.Context, request model.BloodRequest, from model.RequestStatus) error

	AlertPost(ctx context.Context, alert model.InventoryAlert) (model.InventoryAlert, error)
	AlertGetActive(ctx context.Context, bank string) ([]model.InventoryAlert, error)
	AlertPutResolved(ctx context.Context, id int64, at time.Time) error

	Close() error
}

var (
	ErrNoRows         = errors.New("no rows")
	ErrAlreadyExists  = errors.New("already exists")
	ErrStatusConflict = errors.New("status conflict")
)

// NewStore opens PostgreSQL when a DSN is configured and falls back to memory otherwise.
func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemStore(), nil
	}
	return NewPGStore(cfg)
}

func containsStatus(statuses []model.UnitStatus, s model.UnitStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

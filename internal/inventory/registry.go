// Package inventory owns blood units: creation with a unique tracking code,
// FIFO stock lookup and status transitions.
//
// The registry never writes the stock transaction log. Workflows that change a
// unit status record the matching transaction inside the same unit of work.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store"
	"github.com/iurnickita/raktkadi/internal/unitcode"
)

type Registry interface {
	Create(ctx context.Context, unit NewUnit) (model.BloodUnit, error)
	Get(ctx context.Context, code string) (model.BloodUnit, error)
	FindAvailable(ctx context.Context, bank string, group model.BloodGroup, limit int) ([]model.BloodUnit, error)
	Reserve(ctx context.Context, code string) error
	MarkUsed(ctx context.Context, code string) error
	MarkExpired(ctx context.Context, code string) error
	CountAvailable(ctx context.Context, bank string, group model.BloodGroup) (int, error)
	CountAvailableByBank(ctx context.Context, group model.BloodGroup) (map[string]int, error)
	ListExpiring(ctx context.Context, before time.Time, statuses ...model.UnitStatus) ([]model.BloodUnit, error)
}

// NewUnit describes a freshly collected unit. Volume is in hundredths of a milliliter.
type NewUnit struct {
	Bank           string
	Donor          string
	Group          model.BloodGroup
	Volume         int
	CollectionDate time.Time
	ExpirationDate time.Time
	Notes          string
}

// DefaultCodeAttempts bounds tracking code regeneration on collisions.
const DefaultCodeAttempts = 10

var ErrCodeAttemptsExhausted = errors.New("inventory: no free tracking code")

type registry struct {
	store    store.Store
	codes    unitcode.Generator
	attempts int
	now      func() time.Time
}

func NewRegistry(store store.Store, codes unitcode.Generator, attempts int) Registry {
	if attempts <= 0 {
		attempts = DefaultCodeAttempts
	}
	return &registry{
		store:    store,
		codes:    codes,
		attempts: attempts,
		now:      time.Now,
	}
}

// Date drops the time of day, keeping the calendar date of t.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *registry) validate(unit NewUnit) error {
	if unit.Bank == "" {
		return fmt.Errorf("%w: blood bank is required", model.ErrValidation)
	}
	if len(unit.Bank) > model.MaxRefLength || len(unit.Donor) > model.MaxRefLength {
		return fmt.Errorf("%w: bank and donor ids are limited to %d characters", model.ErrValidation, model.MaxRefLength)
	}
	if !unit.Group.Valid() {
		return fmt.Errorf("%w: unknown blood group %q", model.ErrValidation, unit.Group)
	}
	if unit.Volume <= 0 {
		return fmt.Errorf("%w: volume must be positive", model.ErrValidation)
	}
	if unit.Volume > model.MaxVolume {
		return fmt.Errorf("%w: volume exceeds 999.99 ml", model.ErrValidation)
	}
	if unit.CollectionDate.IsZero() || unit.ExpirationDate.IsZero() {
		return fmt.Errorf("%w: collection and expiration dates are required", model.ErrValidation)
	}
	if !Date(unit.ExpirationDate).After(Date(unit.CollectionDate)) {
		return fmt.Errorf("%w: expiration date must be after collection date", model.ErrValidation)
	}
	return nil
}

func (r *registry) Create(ctx context.Context, newUnit NewUnit) (model.BloodUnit, error) {
	if err := r.validate(newUnit); err != nil {
		return model.BloodUnit{}, err
	}

	now := r.now()
	unit := model.BloodUnit{
		Data: model.BloodUnitData{
			Bank:           newUnit.Bank,
			Donor:          newUnit.Donor,
			Group:          newUnit.Group,
			Volume:         newUnit.Volume,
			CollectionDate: Date(newUnit.CollectionDate),
			ExpirationDate: Date(newUnit.ExpirationDate),
			Status:         model.UnitStatusAvailable,
			Notes:          newUnit.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}

	// Вставка и проверка уникальности выполняются одной операцией хранилища,
	// при конфликте генерируем новый код
	for attempt := 0; attempt < r.attempts; attempt++ {
		code, err := r.codes.Generate(unit.Data.Bank, unit.Data.Group, unit.Data.CollectionDate)
		if err != nil {
			return model.BloodUnit{}, err
		}
		unit.Code = code

		err = r.store.UnitPost(ctx, unit)
		if err == nil {
			return unit, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return model.BloodUnit{}, err
		}
	}
	return model.BloodUnit{}, ErrCodeAttemptsExhausted
}

func (r *registry) Get(ctx context.Context, code string) (model.BloodUnit, error) {
	unit, err := r.store.UnitGet(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return model.BloodUnit{}, fmt.Errorf("%w: blood unit %s", model.ErrNotFound, code)
		}
		return model.BloodUnit{}, err
	}
	return unit, nil
}

func (r *registry) FindAvailable(ctx context.Context, bank string, group model.BloodGroup, limit int) ([]model.BloodUnit, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.store.UnitGetAvailable(ctx, bank, group, limit)
}

func (r *registry) transition(ctx context.Context, code string, to model.UnitStatus, from ...model.UnitStatus) error {
	err := r.store.UnitPutStatus(ctx, code, to, r.now(), from...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNoRows):
		return fmt.Errorf("%w: blood unit %s", model.ErrNotFound, code)
	case errors.Is(err, store.ErrStatusConflict):
		return fmt.Errorf("%w: blood unit %s cannot become %s", model.ErrState, code, to)
	default:
		return err
	}
}

// Reserve moves an AVAILABLE unit to RESERVED. Any other current status is a state error.
func (r *registry) Reserve(ctx context.Context, code string) error {
	return r.transition(ctx, code, model.UnitStatusReserved, model.UnitStatusAvailable)
}

func (r *registry) MarkUsed(ctx context.Context, code string) error {
	return r.transition(ctx, code, model.UnitStatusUsed, model.UnitStatusReserved)
}

func (r *registry) MarkExpired(ctx context.Context, code string) error {
	return r.transition(ctx, code, model.UnitStatusExpired, model.UnitStatusAvailable, model.UnitStatusReserved)
}

func (r *registry) CountAvailable(ctx context.Context, bank string, group model.BloodGroup) (int, error) {
	return r.store.UnitCountAvailable(ctx, bank, group)
}

func (r *registry) CountAvailableByBank(ctx context.Context, group model.BloodGroup) (map[string]int, error) {
	return r.store.UnitCountAvailableByBank(ctx, group)
}

// ListExpiring returns units whose expiration date is on or before the given date.
func (r *registry) ListExpiring(ctx context.Context, before time.Time, statuses ...model.UnitStatus) ([]model.BloodUnit, error) {
	if len(statuses) == 0 {
		statuses = []model.UnitStatus{model.UnitStatusAvailable, model.UnitStatusReserved}
	}
	return r.store.UnitGetExpiring(ctx, Date(before), statuses...)
}

// Package allocation reserves stock for approved blood requests.
package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/stocklog"
)

type Engine interface {
	// Allocate reserves up to UnitsRequired units for the request, oldest first,
	// and records an ALLOCATION transaction per unit. Fewer units than requested
	// is a normal outcome.
	Allocate(ctx context.Context, request model.BloodRequest) ([]model.BloodUnit, error)
}

// maxRounds limits re-reading stock after reservations lost to concurrent requests.
const maxRounds = 3

type engine struct {
	registry inventory.Registry
	log      stocklog.Log
}

func NewEngine(registry inventory.Registry, log stocklog.Log) Engine {
	return &engine{registry: registry, log: log}
}

func (e *engine) Allocate(ctx context.Context, request model.BloodRequest) ([]model.BloodUnit, error) {
	required := request.Data.UnitsRequired - len(request.Data.AllocatedUnits)
	if required <= 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, required)
	for _, code := range request.Data.AllocatedUnits {
		seen[code] = struct{}{}
	}

	var allocated []model.BloodUnit
	for round := 0; round < maxRounds && len(allocated) < required; round++ {
		candidates, err := e.registry.FindAvailable(ctx, request.Data.Bank, request.Data.Group, required-len(allocated))
		if err != nil {
			return nil, err
		}

		lost := 0
		for _, unit := range candidates {
			if len(allocated) == required {
				break
			}
			if _, ok := seen[unit.Code]; ok {
				continue
			}
			seen[unit.Code] = struct{}{}

			err = e.registry.Reserve(ctx, unit.Code)
			if errors.Is(err, model.ErrState) {
				// единицу уже забрала параллельная заявка
				lost++
				continue
			}
			if err != nil {
				return nil, err
			}

			_, err = e.log.Record(ctx, stocklog.Entry{
				Unit:        unit.Code,
				Type:        model.TransactionAllocation,
				Source:      request.Data.Bank,
				Destination: request.Data.HospitalName,
				Notes:       fmt.Sprintf("request #%d, patient %s", request.ID, request.Data.PatientName),
			})
			if err != nil {
				return nil, err
			}

			unit.Data.Status = model.UnitStatusReserved
			allocated = append(allocated, unit)
		}

		// Склад исчерпан: повторное чтение имеет смысл только после проигранных гонок
		if lost == 0 {
			break
		}
	}
	return allocated, nil
}

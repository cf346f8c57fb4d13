package allocation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/stocklog"
	"github.com/iurnickita/raktkadi/internal/store"
	"github.com/iurnickita/raktkadi/internal/unitcode"
)

// racingRegistry lets another "request" win the reservation of chosen units.
type racingRegistry struct {
	inventory.Registry
	stolen   map[string]bool
	failWith error
}

func (r *racingRegistry) Reserve(ctx context.Context, code string) error {
	if r.failWith != nil {
		return r.failWith
	}
	if r.stolen[code] {
		if err := r.Registry.Reserve(ctx, code); err != nil {
			return err
		}
		return fmt.Errorf("%w: taken concurrently", model.ErrState)
	}
	return r.Registry.Reserve(ctx, code)
}

type AllocationSuite struct {
	suite.Suite
	ctx      context.Context
	store    store.Store
	registry inventory.Registry
	log      stocklog.Log
}

func TestAllocationSuite(t *testing.T) {
	suite.Run(t, new(AllocationSuite))
}

func (s *AllocationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemStore()
	s.registry = inventory.NewRegistry(s.store, unitcode.NewGenerator(nil), 0)
	s.log = stocklog.NewLog(s.store)
}

func (s *AllocationSuite) stock(bank string, group model.BloodGroup, n int) []model.BloodUnit {
	var units []model.BloodUnit
	for i := 0; i < n; i++ {
		collected := time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		unit, err := s.registry.Create(s.ctx, inventory.NewUnit{
			Bank:           bank,
			Group:          group,
			Volume:         45000,
			CollectionDate: collected,
			ExpirationDate: collected.AddDate(0, 0, 42),
		})
		s.Require().NoError(err)
		units = append(units, unit)
	}
	return units
}

func request(units int) model.BloodRequest {
	return model.BloodRequest{
		ID: 12,
		Data: model.BloodRequestData{
			Bank:          "1",
			Group:         model.GroupONegative,
			UnitsRequired: units,
			PatientName:   "Asha",
			HospitalName:  "City Hospital",
			Status:        model.RequestStatusPending,
		},
	}
}

func (s *AllocationSuite) TestPartialAllocation() {
	units := s.stock("1", model.GroupONegative, 2)
	s.stock("1", model.GroupOPositive, 2)
	s.stock("2", model.GroupONegative, 2)

	allocated, err := NewEngine(s.registry, s.log).Allocate(s.ctx, request(3))
	s.Require().NoError(err)
	s.Require().Len(allocated, 2)

	for i, unit := range allocated {
		s.Equal(units[i].Code, unit.Code)
		stored, err := s.registry.Get(s.ctx, unit.Code)
		s.Require().NoError(err)
		s.Equal(model.UnitStatusReserved, stored.Data.Status)

		txs, err := s.log.ByUnit(s.ctx, unit.Code)
		s.Require().NoError(err)
		s.Require().Len(txs, 1)
		s.Equal(model.TransactionAllocation, txs[0].Data.Type)
		s.Equal("1", txs[0].Data.Source)
		s.Equal("City Hospital", txs[0].Data.Destination)
		s.Contains(txs[0].Data.Notes, "#12")
		s.Contains(txs[0].Data.Notes, "Asha")
	}
}

func (s *AllocationSuite) TestOldestFirstAndBounded() {
	units := s.stock("1", model.GroupONegative, 4)

	allocated, err := NewEngine(s.registry, s.log).Allocate(s.ctx, request(2))
	s.Require().NoError(err)
	s.Require().Len(allocated, 2)
	s.Equal(units[0].Code, allocated[0].Code)
	s.Equal(units[1].Code, allocated[1].Code)

	left, err := s.registry.CountAvailable(s.ctx, "1", model.GroupONegative)
	s.Require().NoError(err)
	s.Equal(2, left)
}

func (s *AllocationSuite) TestNoStock() {
	allocated, err := NewEngine(s.registry, s.log).Allocate(s.ctx, request(2))
	s.Require().NoError(err)
	s.Empty(allocated)
}

func (s *AllocationSuite) TestSkipsLostReservation() {
	units := s.stock("1", model.GroupONegative, 3)
	racing := &racingRegistry{Registry: s.registry, stolen: map[string]bool{units[0].Code: true}}

	allocated, err := NewEngine(racing, s.log).Allocate(s.ctx, request(2))
	s.Require().NoError(err)
	s.Require().Len(allocated, 2)
	s.Equal(units[1].Code, allocated[0].Code)
	s.Equal(units[2].Code, allocated[1].Code)

	// проигранная единица не получает записи в журнале
	txs, err := s.log.ByUnit(s.ctx, units[0].Code)
	s.Require().NoError(err)
	s.Empty(txs)
}

func (s *AllocationSuite) TestSkipsAlreadyAllocated() {
	units := s.stock("1", model.GroupONegative, 2)
	req := request(2)
	req.Data.AllocatedUnits = []string{units[0].Code}
	s.Require().NoError(s.registry.Reserve(s.ctx, units[0].Code))

	allocated, err := NewEngine(s.registry, s.log).Allocate(s.ctx, req)
	s.Require().NoError(err)
	s.Require().Len(allocated, 1)
	s.Equal(units[1].Code, allocated[0].Code)
}

func (s *AllocationSuite) TestStoreFailure() {
	s.stock("1", model.GroupONegative, 1)
	failure := errors.New("disk on fire")
	racing := &racingRegistry{Registry: s.registry, failWith: failure}

	_, err := NewEngine(racing, s.log).Allocate(s.ctx, request(1))
	s.ErrorIs(err, failure)
}

package request

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iurnickita/raktkadi/internal/allocation"
	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/stocklog"
	"github.com/iurnickita/raktkadi/internal/store"
	"github.com/iurnickita/raktkadi/internal/unitcode"
)

// brokenEngine reserves stock and then fails, as a storage error mid-approval would.
type brokenEngine struct {
	allocation.Engine
}

func (e brokenEngine) Allocate(ctx context.Context, request model.BloodRequest) ([]model.BloodUnit, error) {
	if _, err := e.Engine.Allocate(ctx, request); err != nil {
		return nil, err
	}
	return nil, errors.New("connection reset")
}

type RequestSuite struct {
	suite.Suite
	ctx      context.Context
	store    store.Store
	registry inventory.Registry
	log      stocklog.Log
	manager  Manager
}

func TestRequestSuite(t *testing.T) {
	suite.Run(t, new(RequestSuite))
}

func (s *RequestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemStore()
	s.registry = inventory.NewRegistry(s.store, unitcode.NewGenerator(nil), 0)
	s.log = stocklog.NewLog(s.store)
	s.manager = NewManager(s.store, allocation.NewEngine(s.registry, s.log))
}

func (s *RequestSuite) stock(n int) {
	for i := 0; i < n; i++ {
		_, err := s.registry.Create(s.ctx, inventory.NewUnit{
			Bank:           "7",
			Group:          model.GroupONegative,
			Volume:         model.VolumeFromML(450),
			CollectionDate: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			ExpirationDate: time.Date(2024, 2, 12+i, 0, 0, 0, 0, time.UTC),
		})
		s.Require().NoError(err)
	}
}

func newRequest(units int) NewRequest {
	return NewRequest{
		Consumer:      "consumer-1",
		Bank:          "7",
		Group:         model.GroupONegative,
		UnitsRequired: units,
		PatientName:   "Ravi",
		PatientAge:    41,
		PatientGender: "M",
		HospitalName:  "General",
	}
}

func (s *RequestSuite) create(units int) model.BloodRequest {
	request, err := s.manager.Create(s.ctx, newRequest(units))
	s.Require().NoError(err)
	return request
}

func (s *RequestSuite) allTransactions() []model.StockTransaction {
	txs, err := s.log.ByPeriod(s.ctx, time.Unix(0, 0), time.Now().Add(time.Hour))
	s.Require().NoError(err)
	return txs
}

func (s *RequestSuite) TestCreate() {
	request := s.create(2)
	s.NotZero(request.ID)
	s.Equal(model.RequestStatusPending, request.Data.Status)
	s.Equal(model.PriorityNormal, request.Data.Priority)
	s.False(request.Data.RequestedAt.IsZero())
	s.True(request.Data.RespondedAt.IsZero())

	got, err := s.manager.Get(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(request.Data.PatientName, got.Data.PatientName)

	_, err = s.manager.Get(s.ctx, 404)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *RequestSuite) TestCreateValidation() {
	tests := []struct {
		name   string
		modify func(*NewRequest)
	}{
		{"no consumer", func(r *NewRequest) { r.Consumer = "" }},
		{"no bank", func(r *NewRequest) { r.Bank = "" }},
		{"long consumer", func(r *NewRequest) { r.Consumer = strings.Repeat("c", model.MaxRefLength+1) }},
		{"long bank", func(r *NewRequest) { r.Bank = strings.Repeat("b", model.MaxRefLength+1) }},
		{"bad group", func(r *NewRequest) { r.Group = "C+" }},
		{"zero units", func(r *NewRequest) { r.UnitsRequired = 0 }},
		{"bad priority", func(r *NewRequest) { r.Priority = "WHENEVER" }},
		{"no patient", func(r *NewRequest) { r.PatientName = " " }},
		{"negative age", func(r *NewRequest) { r.PatientAge = -1 }},
		{"no hospital", func(r *NewRequest) { r.HospitalName = "" }},
		{"required in the past", func(r *NewRequest) { r.RequiredBy = time.Now().AddDate(0, 0, -2) }},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			request := newRequest(1)
			tt.modify(&request)
			_, err := s.manager.Create(s.ctx, request)
			s.ErrorIs(err, model.ErrValidation)
		})
	}
}

func (s *RequestSuite) TestApprovePartial() {
	s.stock(2)
	request := s.create(3)

	approved, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
	s.Require().NoError(err)
	s.Equal(model.RequestStatusApproved, approved.Data.Status)
	s.Len(approved.Data.AllocatedUnits, 2)
	s.False(approved.Data.RespondedAt.IsZero())

	for _, code := range approved.Data.AllocatedUnits {
		unit, err := s.registry.Get(s.ctx, code)
		s.Require().NoError(err)
		s.Equal(model.UnitStatusReserved, unit.Data.Status)
	}

	txs := s.allTransactions()
	s.Len(txs, 2)
	for _, tx := range txs {
		s.Equal(model.TransactionAllocation, tx.Data.Type)
	}

	stored, err := s.manager.Get(s.ctx, request.ID)
	s.Require().NoError(err)
	s.ElementsMatch(approved.Data.AllocatedUnits, stored.Data.AllocatedUnits)
}

func (s *RequestSuite) TestApproveWithoutStock() {
	request := s.create(1)

	approved, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
	s.Require().NoError(err)
	s.Equal(model.RequestStatusApproved, approved.Data.Status)
	s.Empty(approved.Data.AllocatedUnits)
}

func (s *RequestSuite) TestDoubleApprove() {
	s.stock(3)
	request := s.create(1)

	_, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
	s.Require().NoError(err)

	_, err = s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
	s.ErrorIs(err, model.ErrState)
	s.Len(s.allTransactions(), 1)

	count, err := s.registry.CountAvailable(s.ctx, "7", model.GroupONegative)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RequestSuite) TestRejectNeedsReason() {
	request := s.create(1)

	_, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusRejected})
	s.ErrorIs(err, model.ErrValidation)

	got, err := s.manager.Get(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(model.RequestStatusPending, got.Data.Status)

	rejected, err := s.manager.Respond(s.ctx, Response{
		ID:              request.ID,
		Status:          model.RequestStatusRejected,
		RejectionReason: "no matching donors",
		Notes:           "call back tomorrow",
	})
	s.Require().NoError(err)
	s.Equal(model.RequestStatusRejected, rejected.Data.Status)
	s.Equal("no matching donors", rejected.Data.RejectionReason)
	s.Equal("call back tomorrow", rejected.Data.Notes)
}

func (s *RequestSuite) TestTerminalStates() {
	for _, status := range []model.RequestStatus{model.RequestStatusRejected, model.RequestStatusCompleted} {
		request := s.create(1)
		_, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: status, RejectionReason: "n/a"})
		s.Require().NoError(err)

		for _, next := range []model.RequestStatus{model.RequestStatusApproved, model.RequestStatusCompleted} {
			_, err = s.manager.Respond(s.ctx, Response{ID: request.ID, Status: next})
			s.ErrorIs(err, model.ErrState)
		}

		got, err := s.manager.Get(s.ctx, request.ID)
		s.Require().NoError(err)
		s.Equal(status, got.Data.Status)
	}
}

func (s *RequestSuite) TestRespondErrors() {
	_, err := s.manager.Respond(s.ctx, Response{ID: 404, Status: model.RequestStatusApproved})
	s.ErrorIs(err, model.ErrNotFound)

	request := s.create(1)
	_, err = s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusPending})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *RequestSuite) TestApproveRollsBack() {
	s.stock(2)
	request := s.create(2)
	m := NewManager(s.store, brokenEngine{allocation.NewEngine(s.registry, s.log)})

	_, err := m.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
	s.Require().Error(err)

	got, err := s.manager.Get(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(model.RequestStatusPending, got.Data.Status)
	s.Empty(s.allTransactions())

	count, err := s.registry.CountAvailable(s.ctx, "7", model.GroupONegative)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RequestSuite) TestConcurrentApprovals() {
	s.stock(3)
	const requests = 4
	ids := make([]int64, requests)
	for i := range ids {
		ids[i] = s.create(2).ID
	}

	var wg sync.WaitGroup
	var failed atomic.Int32
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := s.manager.Respond(s.ctx, Response{ID: id, Status: model.RequestStatusApproved}); err != nil {
				failed.Add(1)
			}
		}(id)
	}
	wg.Wait()
	s.Zero(failed.Load())

	owners := make(map[string]int64)
	total := 0
	for _, id := range ids {
		got, err := s.manager.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(model.RequestStatusApproved, got.Data.Status)
		s.LessOrEqual(len(got.Data.AllocatedUnits), 2)
		for _, code := range got.Data.AllocatedUnits {
			_, dup := owners[code]
			s.False(dup, "unit %s allocated twice", code)
			owners[code] = id
			total++
		}
	}
	s.Equal(3, total)
	s.Len(s.allTransactions(), 3)
}

func (s *RequestSuite) TestConcurrentDoubleApprove() {
	s.stock(4)
	request := s.create(2)

	var wg sync.WaitGroup
	var ok, state atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.manager.Respond(s.ctx, Response{ID: request.ID, Status: model.RequestStatusApproved})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrState):
				state.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(1), state.Load())
	s.Len(s.allTransactions(), 2)
}

func (s *RequestSuite) TestLists() {
	first := s.create(1)
	other := newRequest(1)
	other.Consumer = "consumer-2"
	other.Bank = "8"
	second, err := s.manager.Create(s.ctx, other)
	s.Require().NoError(err)

	mine, err := s.manager.ListByConsumer(s.ctx, "consumer-1")
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(first.ID, mine[0].ID)

	byBank, err := s.manager.ListByBank(s.ctx, "8")
	s.Require().NoError(err)
	s.Require().Len(byBank, 1)
	s.Equal(second.ID, byBank[0].ID)
}

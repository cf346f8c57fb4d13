// Package request manages the blood request lifecycle:
// PENDING -> {APPROVED, REJECTED, COMPLETED}, each transition happening once.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iurnickita/raktkadi/internal/allocation"
	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store"
)

type Manager interface {
	Create(ctx context.Context, request NewRequest) (model.BloodRequest, error)
	Respond(ctx context.Context, response Response) (model.BloodRequest, error)
	Get(ctx context.Context, id int64) (model.BloodRequest, error)
	ListByConsumer(ctx context.Context, consumer string) ([]model.BloodRequest, error)
	ListByBank(ctx context.Context, bank string) ([]model.BloodRequest, error)
}

type NewRequest struct {
	Consumer      string
	Bank          string
	Group         model.BloodGroup
	UnitsRequired int
	Priority      model.Priority // пусто - NORMAL
	PatientName   string
	PatientAge    int
	PatientGender string
	HospitalName  string
	RequiredBy    time.Time
	Notes         string
}

type Response struct {
	ID              int64
	Status          model.RequestStatus
	RejectionReason string
	Notes           string
}

type manager struct {
	store  store.Store
	engine allocation.Engine
	now    func() time.Time
}

func NewManager(store store.Store, engine allocation.Engine) Manager {
	return &manager{store: store, engine: engine, now: time.Now}
}

func validate(request NewRequest) error {
	switch {
	case request.Consumer == "":
		return fmt.Errorf("%w: consumer is required", model.ErrValidation)
	case request.Bank == "":
		return fmt.Errorf("%w: blood bank is required", model.ErrValidation)
	case len(request.Consumer) > model.MaxRefLength, len(request.Bank) > model.MaxRefLength:
		return fmt.Errorf("%w: consumer and bank ids are limited to %d characters", model.ErrValidation, model.MaxRefLength)
	case !request.Group.Valid():
		return fmt.Errorf("%w: unknown blood group %q", model.ErrValidation, request.Group)
	case request.UnitsRequired <= 0:
		return fmt.Errorf("%w: units required must be positive", model.ErrValidation)
	case !request.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", model.ErrValidation, request.Priority)
	case strings.TrimSpace(request.PatientName) == "":
		return fmt.Errorf("%w: patient name is required", model.ErrValidation)
	case request.PatientAge < 0:
		return fmt.Errorf("%w: patient age cannot be negative", model.ErrValidation)
	case strings.TrimSpace(request.HospitalName) == "":
		return fmt.Errorf("%w: hospital name is required", model.ErrValidation)
	}
	return nil
}

func (m *manager) Create(ctx context.Context, newRequest NewRequest) (model.BloodRequest, error) {
	if newRequest.Priority == "" {
		newRequest.Priority = model.PriorityNormal
	}
	if err := validate(newRequest); err != nil {
		return model.BloodRequest{}, err
	}

	now := m.now()
	if !newRequest.RequiredBy.IsZero() && inventory.Date(newRequest.RequiredBy).Before(inventory.Date(now)) {
		return model.BloodRequest{}, fmt.Errorf("%w: required-by date is in the past", model.ErrValidation)
	}

	request := model.BloodRequest{
		Data: model.BloodRequestData{
			Consumer:      newRequest.Consumer,
			Bank:          newRequest.Bank,
			Group:         newRequest.Group,
			UnitsRequired: newRequest.UnitsRequired,
			Priority:      newRequest.Priority,
			PatientName:   newRequest.PatientName,
			PatientAge:    newRequest.PatientAge,
			PatientGender: newRequest.PatientGender,
			HospitalName:  newRequest.HospitalName,
			Status:        model.RequestStatusPending,
			RequestedAt:   now,
			Notes:         newRequest.Notes,
		},
	}
	if !newRequest.RequiredBy.IsZero() {
		request.Data.RequiredBy = inventory.Date(newRequest.RequiredBy)
	}
	return m.store.RequestPost(ctx, request)
}

// Respond moves a PENDING request to the given status. Approval reserves stock
// in the same unit of work; any failure leaves the request and stock untouched.
func (m *manager) Respond(ctx context.Context, response Response) (model.BloodRequest, error) {
	switch response.Status {
	case model.RequestStatusApproved, model.RequestStatusCompleted:
	case model.RequestStatusRejected:
		if strings.TrimSpace(response.RejectionReason) == "" {
			return model.BloodRequest{}, fmt.Errorf("%w: rejection reason is required", model.ErrValidation)
		}
	default:
		return model.BloodRequest{}, fmt.Errorf("%w: cannot respond with status %q", model.ErrValidation, response.Status)
	}

	var request model.BloodRequest
	err := m.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		request, err = m.Get(ctx, response.ID)
		if err != nil {
			return err
		}
		if request.Data.Status != model.RequestStatusPending {
			return fmt.Errorf("%w: request #%d is already %s", model.ErrState, request.ID, request.Data.Status)
		}

		request.Data.Status = response.Status
		request.Data.RespondedAt = m.now()
		if response.Notes != "" {
			request.Data.Notes = response.Notes
		}
		if response.Status == model.RequestStatusRejected {
			request.Data.RejectionReason = response.RejectionReason
		}

		if response.Status == model.RequestStatusApproved {
			units, err := m.engine.Allocate(ctx, request)
			if err != nil {
				return err
			}
			for _, unit := range units {
				request.Data.AllocatedUnits = append(request.Data.AllocatedUnits, unit.Code)
			}
		}

		err = m.store.RequestPut(ctx, request, model.RequestStatusPending)
		switch {
		case errors.Is(err, store.ErrStatusConflict):
			return fmt.Errorf("%w: request #%d was answered concurrently", model.ErrState, request.ID)
		case errors.Is(err, store.ErrAlreadyExists):
			return fmt.Errorf("%w: unit already allocated to another request", model.ErrState)
		}
		return err
	})
	if err != nil {
		return model.BloodRequest{}, err
	}
	return request, nil
}

func (m *manager) Get(ctx context.Context, id int64) (model.BloodRequest, error) {
	request, err := m.store.RequestGet(ctx, id)
	if errors.Is(err, store.ErrNoRows) {
		return model.BloodRequest{}, fmt.Errorf("%w: request #%d", model.ErrNotFound, id)
	}
	return request, err
}

func (m *manager) ListByConsumer(ctx context.Context, consumer string) ([]model.BloodRequest, error) {
	return m.store.RequestGetByConsumer(ctx, consumer)
}

func (m *manager) ListByBank(ctx context.Context, bank string) ([]model.BloodRequest, error) {
	return m.store.RequestGetByBank(ctx, bank)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iurnickita/raktkadi/internal/alert"
	"github.com/iurnickita/raktkadi/internal/allocation"
	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/request"
	"github.com/iurnickita/raktkadi/internal/service/bankclient"
	"github.com/iurnickita/raktkadi/internal/service/config"
	"github.com/iurnickita/raktkadi/internal/stocklog"
	"github.com/iurnickita/raktkadi/internal/store"
	"github.com/iurnickita/raktkadi/internal/unitcode"
)

//go:generate mockgen -source=service.go -destination=../handler/mocks/service.go -package=mocks

type Service interface {
	CreateBloodUnit(ctx context.Context, unit NewBloodUnit) (model.BloodUnit, error)
	GetBloodUnit(ctx context.Context, code string) (model.BloodUnit, error)
	UseBloodUnit(ctx context.Context, code, destination, notes string) (model.BloodUnit, error)
	UnitHistory(ctx context.Context, code string) ([]model.StockTransaction, error)
	TransactionsBetween(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error)
	UnitsAvailable(ctx context.Context, group model.BloodGroup) (int, error)
	ListAvailableBanks(ctx context.Context, group model.BloodGroup) ([]model.BankSummary, error)

	CreateBloodRequest(ctx context.Context, request NewBloodRequest) (model.BloodRequest, error)
	GetBloodRequest(ctx context.Context, id int64) (model.BloodRequest, error)
	ListRequests(ctx context.Context, consumer, bank string) ([]model.BloodRequest, error)
	RespondToRequest(ctx context.Context, id int64, status model.RequestStatus, reason, notes string) (model.BloodRequest, error)

	ListAlerts(ctx context.Context, bank string) ([]model.InventoryAlert, error)
	ResolveAlert(ctx context.Context, id int64) error

	// ExpireUnits marks units whose expiration date is before asOf as EXPIRED.
	ExpireUnits(ctx context.Context, asOf time.Time) (int, error)
	// CheckNearExpiry raises NEAR_EXPIRY alerts for the configured window.
	CheckNearExpiry(ctx context.Context, asOf time.Time) (int, error)
}

type (
	NewBloodUnit    = inventory.NewUnit
	NewBloodRequest = request.NewRequest
)

var ErrBankDirectory = bankclient.ErrUnavailable

type service struct {
	cfg      config.Config
	store    store.Store
	registry inventory.Registry
	log      stocklog.Log
	requests request.Manager
	alerts   alert.Monitor
	banks    bankclient.BankClient // nil - справочник не настроен
}

func NewService(cfg config.Config, store store.Store) (Service, error) {
	registry := inventory.NewRegistry(store, unitcode.NewGenerator(nil), cfg.CodeAttempts)
	log := stocklog.NewLog(store)
	engine := allocation.NewEngine(registry, log)

	service := service{
		cfg:      cfg,
		store:    store,
		registry: registry,
		log:      log,
		requests: request.NewManager(store, engine),
		alerts:   alert.NewMonitor(store, cfg.LowStockThreshold)}
	if cfg.BankDirectoryAddr != "" {
		service.banks = bankclient.NewBankClient(cfg.BankDirectoryAddr)
	}

	return &service, nil
}

func (service *service) CreateBloodUnit(ctx context.Context, newUnit NewBloodUnit) (model.BloodUnit, error) {
	var unit model.BloodUnit
	err := service.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		unit, err = service.registry.Create(ctx, newUnit)
		if err != nil {
			return err
		}

		notes := "collected"
		if unit.Data.Donor != "" {
			notes = "collected from donor " + unit.Data.Donor
		}
		_, err = service.log.Record(ctx, stocklog.Entry{
			Unit:        unit.Code,
			Type:        model.TransactionCollection,
			Destination: unit.Data.Bank,
			Notes:       notes,
		})
		if err != nil {
			return err
		}

		return service.alerts.Evaluate(ctx, unit.Data.Bank, unit.Data.Group)
	})
	if err != nil {
		return model.BloodUnit{}, err
	}
	return unit, nil
}

func (service *service) GetBloodUnit(ctx context.Context, code string) (model.BloodUnit, error) {
	return service.registry.Get(ctx, code)
}

// UseBloodUnit hands a RESERVED unit over to its destination.
func (service *service) UseBloodUnit(ctx context.Context, code, destination, notes string) (model.BloodUnit, error) {
	var unit model.BloodUnit
	err := service.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		unit, err = service.registry.Get(ctx, code)
		if err != nil {
			return err
		}
		if err = service.registry.MarkUsed(ctx, code); err != nil {
			return err
		}
		_, err = service.log.Record(ctx, stocklog.Entry{
			Unit:        code,
			Type:        model.TransactionTransfer,
			Source:      unit.Data.Bank,
			Destination: destination,
			Notes:       notes,
		})
		if err != nil {
			return err
		}
		unit, err = service.registry.Get(ctx, code)
		return err
	})
	if err != nil {
		return model.BloodUnit{}, err
	}
	return unit, nil
}

func (service *service) UnitHistory(ctx context.Context, code string) ([]model.StockTransaction, error) {
	if _, err := service.registry.Get(ctx, code); err != nil {
		return nil, err
	}
	return service.log.ByUnit(ctx, code)
}

func (service *service) TransactionsBetween(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error) {
	return service.log.ByPeriod(ctx, from, to)
}

// UnitsAvailable counts AVAILABLE units of the group across all banks.
func (service *service) UnitsAvailable(ctx context.Context, group model.BloodGroup) (int, error) {
	if !group.Valid() {
		return 0, fmt.Errorf("%w: unknown blood group %q", model.ErrValidation, group)
	}
	return service.registry.CountAvailable(ctx, "", group)
}

func (service *service) ListAvailableBanks(ctx context.Context, group model.BloodGroup) ([]model.BankSummary, error) {
	if !group.Valid() {
		return nil, fmt.Errorf("%w: unknown blood group %q", model.ErrValidation, group)
	}
	counts, err := service.registry.CountAvailableByBank(ctx, group)
	if err != nil {
		return nil, err
	}

	var summaries []model.BankSummary
	if service.banks == nil {
		for bank, count := range counts {
			if count > 0 {
				summaries = append(summaries, model.BankSummary{Bank: bank, AvailableUnits: count})
			}
		}
	} else {
		banks, err := service.banks.GetVerifiedBanks(ctx)
		if err != nil {
			return nil, err
		}
		for _, bank := range banks {
			// банки без единиц нужной группы не показываем
			if counts[bank.ID] == 0 {
				continue
			}
			summaries = append(summaries, model.BankSummary{
				Bank:           bank.ID,
				Name:           bank.Name,
				Email:          bank.Email,
				Contact:        bank.Contact,
				Address:        bank.Address,
				AvailableUnits: counts[bank.ID],
			})
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].AvailableUnits != summaries[j].AvailableUnits {
			return summaries[i].AvailableUnits > summaries[j].AvailableUnits
		}
		return summaries[i].Bank < summaries[j].Bank
	})
	return summaries, nil
}

func (service *service) CreateBloodRequest(ctx context.Context, newRequest NewBloodRequest) (model.BloodRequest, error) {
	return service.requests.Create(ctx, newRequest)
}

func (service *service) GetBloodRequest(ctx context.Context, id int64) (model.BloodRequest, error) {
	return service.requests.Get(ctx, id)
}

// ListRequests lists requests of a consumer, of a bank, or of a consumer at a bank.
func (service *service) ListRequests(ctx context.Context, consumer, bank string) ([]model.BloodRequest, error) {
	switch {
	case consumer == "" && bank == "":
		return nil, fmt.Errorf("%w: consumer or bank is required", model.ErrValidation)
	case consumer == "":
		return service.requests.ListByBank(ctx, bank)
	}

	requests, err := service.requests.ListByConsumer(ctx, consumer)
	if err != nil || bank == "" {
		return requests, err
	}
	var filtered []model.BloodRequest
	for _, r := range requests {
		if r.Data.Bank == bank {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (service *service) RespondToRequest(ctx context.Context, id int64, status model.RequestStatus, reason, notes string) (model.BloodRequest, error) {
	var responded model.BloodRequest
	err := service.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		responded, err = service.requests.Respond(ctx, request.Response{
			ID:              id,
			Status:          status,
			RejectionReason: reason,
			Notes:           notes,
		})
		if err != nil {
			return err
		}
		if responded.Data.Status != model.RequestStatusApproved {
			return nil
		}
		return service.alerts.Evaluate(ctx, responded.Data.Bank, responded.Data.Group)
	})
	if err != nil {
		return model.BloodRequest{}, err
	}
	return responded, nil
}

func (service *service) ListAlerts(ctx context.Context, bank string) ([]model.InventoryAlert, error) {
	return service.alerts.Active(ctx, bank)
}

func (service *service) ResolveAlert(ctx context.Context, id int64) error {
	return service.alerts.Resolve(ctx, id)
}

func (service *service) ExpireUnits(ctx context.Context, asOf time.Time) (int, error) {
	// годна по дату окончания срока включительно
	units, err := service.registry.ListExpiring(ctx, inventory.Date(asOf).AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, unit := range units {
		err = service.store.InTx(ctx, func(ctx context.Context) error {
			if err := service.registry.MarkExpired(ctx, unit.Code); err != nil {
				return err
			}
			_, err := service.log.Record(ctx, stocklog.Entry{
				Unit:   unit.Code,
				Type:   model.TransactionDisposal,
				Source: unit.Data.Bank,
				Notes:  "expired on " + unit.Data.ExpirationDate.Format(time.DateOnly),
			})
			if err != nil {
				return err
			}
			return service.alerts.Evaluate(ctx, unit.Data.Bank, unit.Data.Group)
		})
		if errors.Is(err, model.ErrState) {
			// единица уже выдана или списана
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (service *service) CheckNearExpiry(ctx context.Context, asOf time.Time) (int, error) {
	return service.alerts.NearExpiry(ctx, asOf, service.cfg.NearExpiryWindow)
}

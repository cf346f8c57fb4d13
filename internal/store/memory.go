package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
)

// memStore keeps everything in process memory. A unit of work holds the
// single mutex until it finishes and restores a snapshot when it fails.
type memStore struct {
	mu sync.Mutex

	units        map[string]model.BloodUnit
	transactions []model.StockTransaction
	requests     map[int64]model.BloodRequest
	unitRequest  map[string]int64
	alerts       map[int64]model.InventoryAlert

	lastOperation int64
	lastRequest   int64
	lastAlert     int64
}

func NewMemStore() Store {
	return &memStore{
		units:       make(map[string]model.BloodUnit),
		requests:    make(map[int64]model.BloodRequest),
		unitRequest: make(map[string]int64),
		alerts:      make(map[int64]model.InventoryAlert),
	}
}

type memTxKey struct{}

func (store *memStore) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(memTxKey{}).(*memStore)
	return ok && owner == store
}

// lock не блокирует повторно внутри InTx
func (store *memStore) lock(ctx context.Context) func() {
	if store.inTx(ctx) {
		return func() {}
	}
	store.mu.Lock()
	return store.mu.Unlock
}

type memSnapshot struct {
	units         map[string]model.BloodUnit
	transactions  []model.StockTransaction
	requests      map[int64]model.BloodRequest
	unitRequest   map[string]int64
	alerts        map[int64]model.InventoryAlert
	lastOperation int64
	lastRequest   int64
	lastAlert     int64
}

func (store *memStore) snapshot() memSnapshot {
	requests := make(map[int64]model.BloodRequest, len(store.requests))
	for id, request := range store.requests {
		request.Data.AllocatedUnits = slices.Clone(request.Data.AllocatedUnits)
		requests[id] = request
	}
	return memSnapshot{
		units:         cloneMap(store.units),
		transactions:  slices.Clone(store.transactions),
		requests:      requests,
		unitRequest:   cloneMap(store.unitRequest),
		alerts:        cloneMap(store.alerts),
		lastOperation: store.lastOperation,
		lastRequest:   store.lastRequest,
		lastAlert:     store.lastAlert,
	}
}

func (store *memStore) restore(s memSnapshot) {
	store.units = s.units
	store.transactions = s.transactions
	store.requests = s.requests
	store.unitRequest = s.unitRequest
	store.alerts = s.alerts
	store.lastOperation = s.lastOperation
	store.lastRequest = s.lastRequest
	store.lastAlert = s.lastAlert
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (store *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if store.inTx(ctx) {
		return fn(ctx)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	saved := store.snapshot()
	committed := false
	defer func() {
		if !committed {
			store.restore(saved)
		}
	}()
	if err := fn(context.WithValue(ctx, memTxKey{}, store)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (store *memStore) Close() error {
	return nil
}

func (store *memStore) UnitPost(ctx context.Context, unit model.BloodUnit) error {
	defer store.lock(ctx)()

	if _, ok := store.units[unit.Code]; ok {
		return ErrAlreadyExists
	}
	store.units[unit.Code] = unit
	return nil
}

func (store *memStore) UnitGet(ctx context.Context, code string) (model.BloodUnit, error) {
	defer store.lock(ctx)()

	unit, ok := store.units[code]
	if !ok {
		return model.BloodUnit{}, ErrNoRows
	}
	return unit, nil
}

func sortUnitsFIFO(units []model.BloodUnit) {
	sort.Slice(units, func(i, j int) bool {
		a, b := units[i].Data, units[j].Data
		if !a.CollectionDate.Equal(b.CollectionDate) {
			return a.CollectionDate.Before(b.CollectionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return units[i].Code < units[j].Code
	})
}

func (store *memStore) UnitGetAvailable(ctx context.Context, bank string, group model.BloodGroup, limit int) ([]model.BloodUnit, error) {
	defer store.lock(ctx)()

	var units []model.BloodUnit
	for _, unit := range store.units {
		if unit.Data.Bank == bank &&
			unit.Data.Group == group &&
			unit.Data.Status == model.UnitStatusAvailable {
			units = append(units, unit)
		}
	}
	sortUnitsFIFO(units)
	if limit >= 0 && len(units) > limit {
		units = units[:limit]
	}
	return units, nil
}

func (store *memStore) UnitGetExpiring(ctx context.Context, before time.Time, statuses ...model.UnitStatus) ([]model.BloodUnit, error) {
	defer store.lock(ctx)()

	var units []model.BloodUnit
	for _, unit := range store.units {
		if !unit.Data.ExpirationDate.After(before) && containsStatus(statuses, unit.Data.Status) {
			units = append(units, unit)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		a, b := units[i].Data.ExpirationDate, units[j].Data.ExpirationDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return units[i].Code < units[j].Code
	})
	return units, nil
}

func (store *memStore) UnitPutStatus(ctx context.Context, code string, to model.UnitStatus, at time.Time, from ...model.UnitStatus) error {
	defer store.lock(ctx)()

	unit, ok := store.units[code]
	if !ok {
		return ErrNoRows
	}
	if !containsStatus(from, unit.Data.Status) {
		return ErrStatusConflict
	}
	unit.Data.Status = to
	unit.Data.UpdatedAt = at
	store.units[code] = unit
	return nil
}

func (store *memStore) UnitCountAvailable(ctx context.Context, bank string, group model.BloodGroup) (int, error) {
	defer store.lock(ctx)()

	count := 0
	for _, unit := range store.units {
		if unit.Data.Status == model.UnitStatusAvailable &&
			unit.Data.Group == group &&
			(bank == "" || unit.Data.Bank == bank) {
			count++
		}
	}
	return count, nil
}

func (store *memStore) UnitCountAvailableByBank(ctx context.Context, group model.BloodGroup) (map[string]int, error) {
	defer store.lock(ctx)()

	counts := make(map[string]int)
	for _, unit := range store.units {
		if unit.Data.Status == model.UnitStatusAvailable && unit.Data.Group == group {
			counts[unit.Data.Bank]++
		}
	}
	return counts, nil
}

func (store *memStore) TransactionPost(ctx context.Context, tx model.StockTransaction) (model.StockTransaction, error) {
	defer store.lock(ctx)()

	if _, ok := store.units[tx.Key.Unit]; !ok {
		return model.StockTransaction{}, ErrNoRows
	}
	store.lastOperation++
	tx.Key.Operation = store.lastOperation
	store.transactions = append(store.transactions, tx)
	return tx, nil
}

func sortTransactions(txs []model.StockTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Data.Timestamp.Equal(b.Data.Timestamp) {
			return a.Data.Timestamp.Before(b.Data.Timestamp)
		}
		return a.Key.Operation < b.Key.Operation
	})
}

func (store *memStore) TransactionGetByUnit(ctx context.Context, unit string) ([]model.StockTransaction, error) {
	defer store.lock(ctx)()

	var txs []model.StockTransaction
	for _, tx := range store.transactions {
		if tx.Key.Unit == unit {
			txs = append(txs, tx)
		}
	}
	sortTransactions(txs)
	return txs, nil
}

func (store *memStore) TransactionGetByPeriod(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error) {
	defer store.lock(ctx)()

	var txs []model.StockTransaction
	for _, tx := range store.transactions {
		if !tx.Data.Timestamp.Before(from) && tx.Data.Timestamp.Before(to) {
			txs = append(txs, tx)
		}
	}
	sortTransactions(txs)
	return txs, nil
}

func (store *memStore) RequestPost(ctx context.Context, request model.BloodRequest) (model.BloodRequest, error) {
	defer store.lock(ctx)()

	store.lastRequest++
	request.ID = store.lastRequest
	request.Data.AllocatedUnits = slices.Clone(request.Data.AllocatedUnits)
	store.requests[request.ID] = request
	return request, nil
}

func (store *memStore) RequestGet(ctx context.Context, id int64) (model.BloodRequest, error) {
	defer store.lock(ctx)()

	request, ok := store.requests[id]
	if !ok {
		return model.BloodRequest{}, ErrNoRows
	}
	request.Data.AllocatedUnits = slices.Clone(request.Data.AllocatedUnits)
	return request, nil
}

func (store *memStore) requestsWhere(match func(model.BloodRequest) bool) []model.BloodRequest {
	var requests []model.BloodRequest
	for _, request := range store.requests {
		if match(request) {
			request.Data.AllocatedUnits = slices.Clone(request.Data.AllocatedUnits)
			requests = append(requests, request)
		}
	}
	// новые заявки первыми
	sort.Slice(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if !a.Data.RequestedAt.Equal(b.Data.RequestedAt) {
			return a.Data.RequestedAt.After(b.Data.RequestedAt)
		}
		return a.ID > b.ID
	})
	return requests
}

func (store *memStore) RequestGetByConsumer(ctx context.Context, consumer string) ([]model.BloodRequest, error) {
	defer store.lock(ctx)()

	return store.requestsWhere(func(r model.BloodRequest) bool { return r.Data.Consumer == consumer }), nil
}

func (store *memStore) RequestGetByBank(ctx context.Context, bank string) ([]model.BloodRequest, error) {
	defer store.lock(ctx)()

	return store.requestsWhere(func(r model.BloodRequest) bool { return r.Data.Bank == bank }), nil
}

func (store *memStore) RequestPut(ctx context.Context, request model.BloodRequest, from model.RequestStatus) error {
	defer store.lock(ctx)()

	current, ok := store.requests[request.ID]
	if !ok {
		return ErrNoRows
	}
	if current.Data.Status != from {
		return ErrStatusConflict
	}
	for _, unit := range request.Data.AllocatedUnits {
		if owner, taken := store.unitRequest[unit]; taken && owner != request.ID {
			return ErrAlreadyExists
		}
	}

	for _, unit := range request.Data.AllocatedUnits {
		store.unitRequest[unit] = request.ID
	}
	current.Data.Status = request.Data.Status
	current.Data.RespondedAt = request.Data.RespondedAt
	current.Data.Notes = request.Data.Notes
	current.Data.RejectionReason = request.Data.RejectionReason
	current.Data.AllocatedUnits = slices.Clone(request.Data.AllocatedUnits)
	store.requests[request.ID] = current
	return nil
}

func (store *memStore) AlertPost(ctx context.Context, alert model.InventoryAlert) (model.InventoryAlert, error) {
	defer store.lock(ctx)()

	store.lastAlert++
	alert.ID = store.lastAlert
	store.alerts[alert.ID] = alert
	return alert, nil
}

func (store *memStore) AlertGetActive(ctx context.Context, bank string) ([]model.InventoryAlert, error) {
	defer store.lock(ctx)()

	var alerts []model.InventoryAlert
	for _, alert := range store.alerts {
		if alert.Data.Active && (bank == "" || alert.Data.Bank == bank) {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts, nil
}

func (store *memStore) AlertPutResolved(ctx context.Context, id int64, at time.Time) error {
	defer store.lock(ctx)()

	alert, ok := store.alerts[id]
	if !ok {
		return ErrNoRows
	}
	if !alert.Data.Active {
		return ErrStatusConflict
	}
	alert.Data.Active = false
	alert.Data.ResolvedAt = at
	store.alerts[id] = alert
	return nil
}

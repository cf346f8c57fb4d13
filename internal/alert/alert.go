// Package alert raises and resolves inventory alerts for blood bank stock.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iurnickita/raktkadi/internal/inventory"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store"
)

type Monitor interface {
	// Evaluate raises or resolves LOW_STOCK and CRITICAL_SHORTAGE for one bank and group.
	Evaluate(ctx context.Context, bank string, group model.BloodGroup) error
	// NearExpiry raises NEAR_EXPIRY for bank/group pairs holding AVAILABLE units that
	// expire on or before asOf+window and resolves the ones that no longer do.
	NearExpiry(ctx context.Context, asOf time.Time, window time.Duration) (int, error)
	Active(ctx context.Context, bank string) ([]model.InventoryAlert, error)
	Resolve(ctx context.Context, id int64) error
}

const DefaultLowStockThreshold = 5

type monitor struct {
	store     store.Store
	threshold int
	now       func() time.Time
}

func NewMonitor(store store.Store, threshold int) Monitor {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &monitor{store: store, threshold: threshold, now: time.Now}
}

type stockKey struct {
	bank  string
	group model.BloodGroup
}

func (m *monitor) Evaluate(ctx context.Context, bank string, group model.BloodGroup) error {
	return m.store.InTx(ctx, func(ctx context.Context) error {
		count, err := m.store.UnitCountAvailable(ctx, bank, group)
		if err != nil {
			return err
		}

		var want model.AlertType
		switch {
		case count == 0:
			want = model.AlertCriticalShortage
		case count < m.threshold:
			want = model.AlertLowStock
		}

		active, err := m.store.AlertGetActive(ctx, bank)
		if err != nil {
			return err
		}
		raised := false
		for _, alert := range active {
			if alert.Data.Group != group {
				continue
			}
			if alert.Data.Type != model.AlertLowStock && alert.Data.Type != model.AlertCriticalShortage {
				continue
			}
			if alert.Data.Type == want {
				raised = true
				continue
			}
			if err = m.store.AlertPutResolved(ctx, alert.ID, m.now()); err != nil {
				return err
			}
		}
		if want == "" || raised {
			return nil
		}

		_, err = m.store.AlertPost(ctx, model.InventoryAlert{
			Data: model.InventoryAlertData{
				Bank:        bank,
				Type:        want,
				Group:       group,
				Description: fmt.Sprintf("%s stock: %d units available, threshold %d", group, count, m.threshold),
				Active:      true,
				CreatedAt:   m.now(),
			},
		})
		return err
	})
}

func (m *monitor) NearExpiry(ctx context.Context, asOf time.Time, window time.Duration) (int, error) {
	raisedCount := 0
	err := m.store.InTx(ctx, func(ctx context.Context) error {
		units, err := m.store.UnitGetExpiring(ctx, inventory.Date(asOf.Add(window)), model.UnitStatusAvailable)
		if err != nil {
			return err
		}
		expiring := make(map[stockKey]int)
		var order []stockKey
		for _, unit := range units {
			key := stockKey{bank: unit.Data.Bank, group: unit.Data.Group}
			if _, ok := expiring[key]; !ok {
				order = append(order, key)
			}
			expiring[key]++
		}

		active, err := m.store.AlertGetActive(ctx, "")
		if err != nil {
			return err
		}
		raised := make(map[stockKey]bool)
		for _, alert := range active {
			if alert.Data.Type != model.AlertNearExpiry {
				continue
			}
			key := stockKey{bank: alert.Data.Bank, group: alert.Data.Group}
			if expiring[key] > 0 {
				raised[key] = true
				continue
			}
			if err = m.store.AlertPutResolved(ctx, alert.ID, m.now()); err != nil {
				return err
			}
		}

		for _, key := range order {
			if raised[key] {
				continue
			}
			_, err = m.store.AlertPost(ctx, model.InventoryAlert{
				Data: model.InventoryAlertData{
					Bank:        key.bank,
					Type:        model.AlertNearExpiry,
					Group:       key.group,
					Description: fmt.Sprintf("%d %s units expire by %s", expiring[key], key.group, inventory.Date(asOf.Add(window)).Format(time.DateOnly)),
					Active:      true,
					CreatedAt:   m.now(),
				},
			})
			if err != nil {
				return err
			}
			raisedCount++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return raisedCount, nil
}

// Active returns unresolved alerts, of all banks when bank is empty.
func (m *monitor) Active(ctx context.Context, bank string) ([]model.InventoryAlert, error) {
	return m.store.AlertGetActive(ctx, bank)
}

func (m *monitor) Resolve(ctx context.Context, id int64) error {
	err := m.store.AlertPutResolved(ctx, id, m.now())
	switch {
	case errors.Is(err, store.ErrNoRows):
		return fmt.Errorf("%w: alert #%d", model.ErrNotFound, id)
	case errors.Is(err, store.ErrStatusConflict):
		return fmt.Errorf("%w: alert #%d is already resolved", model.ErrState, id)
	}
	return err
}

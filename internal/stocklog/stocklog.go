// Package stocklog is the append-only journal of blood unit movements.
package stocklog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/store"
)

type Log interface {
	Record(ctx context.Context, entry Entry) (model.StockTransaction, error)
	ByUnit(ctx context.Context, unit string) ([]model.StockTransaction, error)
	ByPeriod(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error)
}

type Entry struct {
	Unit        string
	Type        model.TransactionType
	Source      string
	Destination string
	Notes       string
}

type log struct {
	store store.Store
	now   func() time.Time
}

func NewLog(store store.Store) Log {
	return &log{store: store, now: time.Now}
}

func (l *log) Record(ctx context.Context, entry Entry) (model.StockTransaction, error) {
	switch entry.Type {
	case model.TransactionCollection, model.TransactionAllocation,
		model.TransactionTransfer, model.TransactionDisposal:
	default:
		return model.StockTransaction{}, fmt.Errorf("%w: unknown transaction type %q", model.ErrValidation, entry.Type)
	}

	tx, err := l.store.TransactionPost(ctx, model.StockTransaction{
		Key: model.StockTransactionKey{Unit: entry.Unit},
		Data: model.StockTransactionData{
			Type:        entry.Type,
			Timestamp:   l.now(),
			Source:      entry.Source,
			Destination: entry.Destination,
			Notes:       entry.Notes,
		},
	})
	if errors.Is(err, store.ErrNoRows) {
		return model.StockTransaction{}, fmt.Errorf("%w: blood unit %s", model.ErrNotFound, entry.Unit)
	}
	return tx, err
}

func (l *log) ByUnit(ctx context.Context, unit string) ([]model.StockTransaction, error) {
	return l.store.TransactionGetByUnit(ctx, unit)
}

// ByPeriod returns transactions with from <= timestamp < to.
func (l *log) ByPeriod(ctx context.Context, from, to time.Time) ([]model.StockTransaction, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: empty period", model.ErrValidation)
	}
	return l.store.TransactionGetByPeriod(ctx, from, to)
}

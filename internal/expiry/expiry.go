// Package expiry periodically retires expired blood units and raises near-expiry alerts.
package expiry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/raktkadi/internal/expiry/config"
)

// Expirer is the part of the service the sweeper drives.
type Expirer interface {
	ExpireUnits(ctx context.Context, asOf time.Time) (int, error)
	CheckNearExpiry(ctx context.Context, asOf time.Time) (int, error)
}

type Sweeper interface {
	Run(ctx context.Context) error
}

type sweeper struct {
	cfg     config.Config
	expirer Expirer
	zaplog  *zap.Logger
	now     func() time.Time
}

func NewSweeper(cfg config.Config, expirer Expirer, zaplog *zap.Logger) Sweeper {
	return &sweeper{cfg: cfg, expirer: expirer, zaplog: zaplog, now: time.Now}
}

// Run sweeps once at start and then on every tick until ctx is done.
func (s *sweeper) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		s.zaplog.Info("expiry sweeper disabled")
		return nil
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sweeper) sweep(ctx context.Context) {
	asOf := s.now()

	expired, err := s.expirer.ExpireUnits(ctx, asOf)
	if err != nil {
		// следующий проход повторит попытку
		s.zaplog.Error("expire units", zap.Error(err))
	} else if expired > 0 {
		s.zaplog.Info("units expired", zap.Int("count", expired))
	}

	raised, err := s.expirer.CheckNearExpiry(ctx, asOf)
	if err != nil {
		s.zaplog.Error("near expiry check", zap.Error(err))
		return
	}
	if raised > 0 {
		s.zaplog.Info("near expiry alerts raised", zap.Int("count", raised))
	}
}

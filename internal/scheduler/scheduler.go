package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/romanzzaa/red-pencil-promo/internal/domain"
)

// Sweeper - usecase.PromoService
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) []domain.PromoChange
	AckExpired(change domain.PromoChange)
}

// Scheduler периодически ищет истекшие акции и рассылает EXPIRED
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
	ctx      context.Context
}

func NewScheduler(sweeper Sweeper, notifier domain.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sweeper:  sweeper,
		notifier: notifier,
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
		ctx:      context.Background(),
	}
}

// Register добавляет задачу проверки по cron-выражению ("@every 1m", "0 */5 * * * *")
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(s.ctx) }); err != nil {
		return fmt.Errorf("register expiry sweep %q: %w", spec, err)
	}
	s.logger.Info("Expiry sweep registered", "spec", spec)
	return nil
}

// Start запускает cron; Stop вызывается после отмены ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop ждет завершения текущих задач
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Sweep - одна проверка, возвращает число отправленных уведомлений.
// Неотправленные EXPIRED не подтверждаются и повторяются в следующем запуске.
func (s *Scheduler) Sweep(ctx context.Context) int {
	sent := 0
	for _, change := range s.sweeper.SweepExpired(ctx, s.now()) {
		if err := s.notifier.NotifyChange(ctx, change); err != nil {
			s.logger.Error("Expiry notification failed", "sku", change.SKU, "err", err)
			continue
		}
		s.sweeper.AckExpired(change)
		sent++
	}
	return sent
}

package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/romanzzaa/red-pencil-promo/internal/domain"
	"github.com/romanzzaa/red-pencil-promo/internal/usecase"
)

// PriceApplier - usecase.PromoService
type PriceApplier interface {
	ApplyPriceUpdate(ctx context.Context, ev domain.PriceUpdateEvent) ([]domain.PromoChange, error)
}

type Options struct {
	Workers   int
	QueueSize int
	SKUs      []string // Начальные подписки
}

type Manager struct {
	service  PriceApplier
	streamer domain.PriceStreamer
	notifier domain.Notifier
	logger   *slog.Logger
	opts     Options

	// Один канал на воркер: события одного SKU всегда попадают в один воркер,
	// поэтому порядок обновлений товара сохраняется
	shards []chan domain.PriceUpdateEvent
}

func NewManager(
	service PriceApplier,
	streamer domain.PriceStreamer,
	notifier domain.Notifier,
	opts Options,
	logger *slog.Logger,
) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}

	shards := make([]chan domain.PriceUpdateEvent, opts.Workers)
	for i := range shards {
		shards[i] = make(chan domain.PriceUpdateEvent, opts.QueueSize)
	}

	return &Manager{
		service:  service,
		streamer: streamer,
		notifier: notifier,
		logger:   logger.With("component", "manager"),
		opts:     opts,
		shards:   shards,
	}
}

// Watch вызывает бот, когда пользователь добавил SKU
func (m *Manager) Watch(skus []string) error {
	if err := m.streamer.AddSubscriptions(skus); err != nil {
		m.logger.Error("Failed to add subscriptions", "err", err)
		return err
	}
	m.logger.Info("✅ Subscriptions added", "skus", skus)
	return nil
}

// Run блокируется до отмены ctx или закрытия потока цен
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("Starting Manager: Event-Driven Mode", "workers", len(m.shards))

	priceUpdates, err := m.streamer.Subscribe(ctx, m.opts.SKUs)
	if err != nil {
		m.logger.Error("CRITICAL: Failed to initialize stream", "err", err)
		return err
	}

	var wg sync.WaitGroup
	for i, jobs := range m.shards {
		wg.Add(1)
		go func(id int, jobs <-chan domain.PriceUpdateEvent) {
			defer wg.Done()
			m.worker(ctx, id, jobs)
		}(i, jobs)
	}
	defer func() {
		for _, jobs := range m.shards {
			close(jobs)
		}
		wg.Wait()
		m.logger.Info("Manager stopped")
	}()

	m.logger.Info("Manager loop started.")
	for {
		select {
		case event, ok := <-priceUpdates:
			if !ok {
				return nil
			}
			select {
			case m.shards[m.shardFor(event.SKU)] <- event:
			case <-ctx.Done():
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Manager) worker(ctx context.Context, id int, jobs <-chan domain.PriceUpdateEvent) {
	log := m.logger.With("worker_id", id)

	for event := range jobs {
		changes, err := m.service.ApplyPriceUpdate(ctx, event)
		switch {
		case errors.Is(err, usecase.ErrStaleUpdate):
			continue
		case err != nil:
			if ctx.Err() == nil {
				log.Error("Price update failed", "sku", event.SKU, "err", err)
			}
			continue
		}

		for _, change := range changes {
			if err := m.notifier.NotifyChange(ctx, change); err != nil {
				log.Error("Promo notification failed", "sku", change.SKU, "kind", change.Kind, "err", err)
			}
		}
	}
}

func (m *Manager) shardFor(sku string) int {
	h := fnv.New32a()
	h.Write([]byte(sku))
	return int(h.Sum32() % uint32(len(m.shards)))
}

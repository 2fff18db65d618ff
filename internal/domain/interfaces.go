package domain

import "context"

// PriceStreamer - источник обновлений цен (WebSocket фид)
type PriceStreamer interface {
	// Подписаться на SKU. Канал закрывается после отмены ctx.
	Subscribe(ctx context.Context, skus []string) (<-chan PriceUpdateEvent, error)

	// Добавить SKU "на лету" без разрыва соединения
	AddSubscriptions(skus []string) error
}

// Notifier - уведомления о смене состояния акции
type Notifier interface {
	NotifyChange(ctx context.Context, change PromoChange) error
}

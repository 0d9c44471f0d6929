package solana

import "context"

// SlotSubscriber streams slot notifications from a Solana WebSocket endpoint.
type SlotSubscriber interface {
	// SubscribeSlots subscribes to slot updates. The channel is closed on Close.
	SubscribeSlots(ctx context.Context) (<-chan SlotNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

package driven

import (
	"context"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// SyncChannel defines the driven port for the cross-tab broadcast bus.
// Publish is fire-and-forget and never delivers to the publishing endpoint.
// Handlers registered with Subscribe run one at a time in receive order.
type SyncChannel interface {
	ID() string
	Publish(ctx context.Context, msg model.SyncMessage) error
	Subscribe(handler func(model.SyncMessage)) (unsubscribe func())
}

package pubsub

import (
	"github.com/asaskevich/EventBus"
)

// TopicViewUpdated carries a domain.ViewState value after every
// recomputation of the filtered projection.
const TopicViewUpdated = "market.view.updated"

// Bus wraps EventBus behind an injected instance so consumers never
// reach for a hidden shared global.
type Bus struct {
	bus EventBus.Bus
}

func New() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(topic string, payload interface{}) {
	b.bus.Publish(topic, payload)
}

// Subscribe registers callbackFn for topic. Callbacks run
// asynchronously so a slow subscriber never blocks the publisher.
func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	return b.bus.SubscribeAsync(topic, callbackFn, false)
}

func (b *Bus) Unsubscribe(topic string, callbackFn interface{}) error {
	return b.bus.Unsubscribe(topic, callbackFn)
}

// internal/common/channel/channel.go
package channel

import "context"

// Publisher sends a frame to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber opens a stream of frames published to a topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Broker is the full pub/sub surface used by the gateway.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription is a live stream of payloads for one topic.
type Subscription interface {
	// C yields message payloads. It is closed when the subscription ends.
	C() <-chan []byte
	// Close cancels the subscription and frees resources.
	Close() error
}

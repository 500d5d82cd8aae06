package broker

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/albaliriagomez/proyectoReusetech/internal/metrics"
)

const relayChannel = "reusetech:broadcasts"

// envelope is the wire format on the relay channel. Origin lets an instance
// skip the broadcasts it published itself.
type envelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Relay mirrors broadcasts through a Redis pub/sub channel so several
// server instances can share one room space. Delivery through the relay is
// best-effort: the store remains the source of truth.
type Relay struct {
	client     *redis.Client
	instanceID string
	logger     zerolog.Logger
}

// NewRelay creates a relay with a fresh instance identity.
func NewRelay(client *redis.Client, logger zerolog.Logger) *Relay {
	return &Relay{
		client:     client,
		instanceID: ulid.Make().String(),
		logger:     logger,
	}
}

// Publish sends one broadcast to the channel. Errors are logged and counted,
// never returned: local delivery has already happened and persistence
// succeeded before any broadcast.
func (r *Relay) Publish(roomToken string, payload []byte) {
	data, err := json.Marshal(envelope{
		Origin:  r.instanceID,
		Room:    roomToken,
		Payload: payload,
	})
	if err != nil {
		metrics.RelayPublishErrors.Inc()
		return
	}
	if err := r.client.Publish(context.Background(), relayChannel, data).Err(); err != nil {
		metrics.RelayPublishErrors.Inc()
		r.logger.Warn().Err(err).Msg("relay publish failed")
	}
}

// Run subscribes to the channel and rebroadcasts foreign messages into the
// local broker until ctx is cancelled. Call in its own goroutine.
func (r *Relay) Run(ctx context.Context, b *Broker) {
	pubsub := r.client.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn().Err(err).Msg("relay received malformed envelope")
				continue
			}
			if env.Origin == r.instanceID {
				continue
			}
			b.deliverLocal(env.Room, env.Payload)
		}
	}
}

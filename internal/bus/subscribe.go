package bus

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// TypedHandler processes a deserialized message of type T.
type TypedHandler[T any] func(ctx context.Context, msg T, mctx MessageContext) ProcessingResult

// Subscribe binds a typed handler to destination via adapter. Message bodies
// that fail to deserialize into T are logged and acknowledged (never
// requeued) per §6: "unrecognized schemas are logged and acknowledged to
// avoid poison-looping".
func Subscribe[T any](ctx context.Context, adapter Adapter, destination string, concurrency int, logger zerolog.Logger, handler TypedHandler[T]) error {
	return adapter.SubscribeRaw(ctx, destination, concurrency, func(ctx context.Context, body []byte, mctx MessageContext) ProcessingResult {
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			logger.Warn().
				Err(err).
				Str("destination", destination).
				Str("message_id", mctx.MessageID).
				Msg("discarding message with unrecognized schema")
			return Ack()
		}
		return handler(ctx, msg, mctx)
	})
}

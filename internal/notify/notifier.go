package notify

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Notifier delivers a notification to its recipient's channels.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// RedisStreamNotifier appends notifications to a Redis stream. Channel
// delivery (email, push, chat) is done by stream consumers.
type RedisStreamNotifier struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamNotifier builds a notifier writing to stream. maxLen caps
// the stream approximately; zero leaves it unbounded.
func NewRedisStreamNotifier(client redis.Cmdable, stream string, maxLen int64) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

// Notify appends one stream entry.
func (n *RedisStreamNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	if n.client == nil {
		return errors.New("redis client not configured")
	}
	_, err := n.client.XAdd(ctx, StreamArgs(n.stream, n.maxLen, notification)).Result()
	return err
}

// StreamArgs renders notification as stream fields in a fixed order.
func StreamArgs(stream string, maxLen int64, notification domain.Notification) *redis.XAddArgs {
	related := ""
	if notification.RelatedTicketID != nil {
		related = *notification.RelatedTicketID
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: []interface{}{
			"id", notification.ID,
			"user_id", notification.UserID,
			"kind", string(notification.Kind),
			"title", notification.Title,
			"message", notification.Message,
			"related_ticket_id", related,
			"created_at", notification.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

// LogNotifier writes notifications to the log. It is used when the stream
// is disabled.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification at info level.
func (n *LogNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.logger.Info("notification",
		zap.String("user_id", notification.UserID),
		zap.String("kind", string(notification.Kind)),
		zap.String("title", notification.Title),
		zap.String("message", notification.Message))
	return nil
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aionlinecourses/billing-service/internal/config"
	domainsink "github.com/aionlinecourses/billing-service/internal/domain/sink"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotifier publishes user notifications to a per-user Redis channel.
// Delivery is fire-and-forget: publish failures are logged and dropped so a
// notification can never fail the billing state change that produced it.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

type notificationMessage struct {
	UserID  int64             `json:"user_id"`
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

// NewRedisNotifier creates a notifier on an established Redis client.
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// NewRedisClient opens and pings a Redis connection.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (n *RedisNotifier) Notify(ctx context.Context, userID int64, kind domainsink.NotificationKind, payload map[string]string) {
	msg := notificationMessage{
		UserID:  userID,
		Kind:    string(kind),
		Payload: payload,
		SentAt:  time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("Failed to marshal notification",
			zap.Int64("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	channel := fmt.Sprintf("notifications:user:%d", userID)
	if err := n.client.Publish(publishCtx, channel, data).Err(); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.Int64("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

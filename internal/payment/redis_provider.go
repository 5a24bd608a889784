package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tickethub/internal/status"
)

// RedisProvider keeps payment sessions in Redis and marks them completed
// when the gateway publishes a confirmation on the PubNub channel. One
// session per (user, event) pair; creating a new one replaces the old.
type RedisProvider struct {
	redis      *redis.Client
	pn         *pubnub.PubNub
	channel    string
	sessionTTL time.Duration
}

func NewRedisProvider(redisClient *redis.Client, pn *pubnub.PubNub, channel string, sessionTTL time.Duration) *RedisProvider {
	p := &RedisProvider{
		redis:      redisClient,
		pn:         pn,
		channel:    channel,
		sessionTTL: sessionTTL,
	}

	if pn != nil {
		go p.subscribeToConfirmations()
	}

	return p
}

func sessionKey(userID, eventID string) string {
	return fmt.Sprintf("payment:%s:%s", userID, eventID)
}

func (p *RedisProvider) CreateSession(ctx context.Context, userID, eventID string, amount decimal.Decimal) (string, error) {
	sessionID := fmt.Sprintf("payment_%s_%d", userID, time.Now().Unix())

	key := sessionKey(userID, eventID)
	fields := map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"event_id":   eventID,
		"amount":     amount.String(),
		"status":     string(StatusPending),
		"created_at": time.Now().Unix(),
	}
	for k, v := range fields {
		if err := p.redis.HSet(ctx, key, k, v).Err(); err != nil {
			return "", status.Wrap(status.Internal, "failed to create payment session", err)
		}
	}
	p.redis.Expire(ctx, key, p.sessionTTL)

	return sessionID, nil
}

func (p *RedisProvider) Confirm(ctx context.Context, userID, eventID string) (*Confirmation, error) {
	key := sessionKey(userID, eventID)
	data, err := p.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, status.Wrap(status.Internal, "failed to read payment session", err)
	}
	if len(data) == 0 {
		return nil, status.E(status.FailedPrecondition, "no payment session for this event")
	}

	amount, err := decimal.NewFromString(data["amount"])
	if err != nil {
		return nil, status.Wrap(status.Internal, "corrupt payment session amount", err)
	}

	conf := &Confirmation{
		SessionID: data["session_id"],
		UserID:    data["user_id"],
		EventID:   data["event_id"],
		Amount:    amount,
		Status:    Status(data["status"]),
	}
	if ts := data["confirmed_at"]; ts != "" {
		var unix int64
		if _, err := fmt.Sscanf(ts, "%d", &unix); err == nil {
			conf.ConfirmedAt = time.Unix(unix, 0)
		}
	}
	return conf, nil
}

func (p *RedisProvider) subscribeToConfirmations() {
	listener := pubnub.NewListener()

	p.pn.AddListener(listener)
	p.pn.Subscribe().
		Channels([]string{p.channel}).
		Execute()

	for message := range listener.Message {
		go p.handleConfirmation(message)
	}
}

func (p *RedisProvider) handleConfirmation(message *pubnub.PNMessage) {
	var notification struct {
		UserID  string `json:"user_id"`
		EventID string `json:"event_id"`
		Status  string `json:"status"`
	}

	data, ok := message.Message.(map[string]any)
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		log.Printf("Error parsing payment confirmation: %v", err)
		return
	}
	if notification.UserID == "" || notification.EventID == "" {
		return
	}

	ctx := context.Background()
	key := sessionKey(notification.UserID, notification.EventID)

	newStatus := StatusFailed
	if notification.Status == "success" {
		newStatus = StatusCompleted
	}

	p.redis.HSet(ctx, key, "status", string(newStatus))
	p.redis.HSet(ctx, key, "confirmed_at", time.Now().Unix())
}

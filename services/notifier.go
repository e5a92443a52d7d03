package services

import (
	"context"
	"encoding/json"
	"time"

	"pos-backend/billing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a user-visible message about the outcome of an operation.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	At          string   `json:"at"`
}

// Notifier is a fire-and-forget sink. Implementations must not block the
// caller for long and never report failure back.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) {
	logNotification(n)
}

func logNotification(n Notification) {
	var ev *zerolog.Event
	switch n.Severity {
	case SeverityError:
		ev = log.Warn()
	default:
		ev = log.Info()
	}
	ev.Str("title", n.Title).Str("severity", string(n.Severity)).Msg(n.Description)
}

// RedisNotifier logs and publishes every notification as JSON on a pub/sub
// channel, where a UI can pick it up as a toast.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, timeout: 2 * time.Second}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) {
	if n.At == "" {
		n.At = time.Now().UTC().Format(time.RFC3339)
	}
	logNotification(n)

	data, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("notify: failed to marshal notification")
		return
	}
	// The request may already be finished; publishing must outlive it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.rdb.Publish(pubCtx, r.channel, data).Err(); err != nil {
		log.Error().Err(err).Str("channel", r.channel).Msg("notify: publish failed")
	}
}

func success(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeveritySuccess}
}

// failure shows validation messages as they are and hides anything else
// behind description.
func failure(description string, err error) Notification {
	if billing.IsValidation(err) {
		description = err.Error()
	}
	return Notification{Title: "Error", Description: description, Severity: SeverityError}
}

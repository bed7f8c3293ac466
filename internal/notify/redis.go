// Package notify разносит события комнат между инстансами через Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/lobby-service/pkg/logger"

	redis "github.com/redis/go-redis/v9"
)

const DefaultPrefix = "lobby:"

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Publisher - локальная доставка, обычно ws.Hub.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg any) error
}

// NewClient подключается и проверяет Redis через Ping.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Relay публикует события в Redis, а Run доставляет их из Redis локальным
// подписчикам. Каждый инстанс получает и свои события тоже.
type Relay struct {
	client  redis.UniversalClient
	local   Publisher
	prefix  string
	timeout time.Duration
}

func NewRelay(client redis.UniversalClient, local Publisher, prefix string) *Relay {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Relay{
		client:  client,
		local:   local,
		prefix:  prefix,
		timeout: 500 * time.Millisecond,
	}
}

func (r *Relay) Channel(topic string) string { return r.prefix + topic }

// Topic - обратное к Channel; false для чужих каналов.
func (r *Relay) Topic(channel string) (string, bool) {
	if !strings.HasPrefix(channel, r.prefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, r.prefix), true
}

// Publish: при недоступном Redis событие доставляется хотя бы локально.
func (r *Relay) Publish(ctx context.Context, topic string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Publish(pctx, r.Channel(topic), data).Err(); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "redis publish failed, delivering locally", "topic", topic, logger.Err(err))
		return r.local.Publish(ctx, topic, json.RawMessage(data))
	}
	return nil
}

// Run слушает все топики до отмены ctx.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, r.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	slog.Info("redis relay subscribed", "pattern", r.prefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic, ok := r.Topic(msg.Channel)
			if !ok {
				continue
			}
			if err := r.local.Publish(ctx, topic, json.RawMessage(msg.Payload)); err != nil {
				slog.WarnContext(ctx, "relay local publish failed", "topic", topic, "err", err)
			}
		}
	}
}

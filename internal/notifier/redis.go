package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"interview-tracker/internal/model"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel 为默认的发布频道。
const DefaultChannel = "EVENT_INTERVIEW_CHANGED"

// RedisConfig 定义 Redis 发布配置。
type RedisConfig struct {
	URL     string `yaml:"url" json:"url"`
	Channel string `yaml:"channel" json:"channel"`
}

// Publisher 抽象 Redis 发布能力，便于测试替换。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier 将变更事件以 JSON 发布到 Redis 频道，供前端推送使用。
type RedisNotifier struct {
	pub     Publisher
	channel string
}

// eventPayload 为发布到频道的消息格式。
type eventPayload struct {
	Type        model.EventType `json:"type"`
	OwnerID     string          `json:"ownerId"`
	InterviewID string          `json:"interviewId"`
	Company     string          `json:"company,omitempty"`
	Result      model.Result    `json:"result,omitempty"`
	At          time.Time       `json:"at"`
}

// NewRedisClient 解析 URL 并校验连通性。
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// NewRedisNotifier 创建 RedisNotifier，channel 为空时使用 DefaultChannel。
func NewRedisNotifier(pub Publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{pub: pub, channel: channel}
}

// Notify 发布一条事件消息。
func (n *RedisNotifier) Notify(ctx context.Context, ev model.Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := n.pub.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	return nil
}

func encodeEvent(ev model.Event) ([]byte, error) {
	payload := eventPayload{
		Type:        ev.Type,
		OwnerID:     ev.OwnerID,
		InterviewID: ev.Interview.ID,
		At:          ev.At,
	}
	if ev.Type != model.EventDeleted {
		payload.Company = ev.Interview.Company
		payload.Result = ev.Interview.Result
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

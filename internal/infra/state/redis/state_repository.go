package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"mystery-night/internal/domain"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现。
// 每个会话一条 pub/sub 通道 + 一个在线用户集合。
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string // Redis key 前缀，方便多环境共用一个实例
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "mn:" // 默认前缀 "mn:" (mystery night)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

// SessionEventChannel 返回会话通知通道的名称。
// Hub 订阅同一个名称，所以导出为公共方法。
func (r *RedisStateRepository) SessionEventChannel(sessionID uint) string {
	return fmt.Sprintf("%ssession:%d:events", r.keyPrefix, sessionID)
}

func (r *RedisStateRepository) presenceKey(sessionID uint) string {
	return fmt.Sprintf("%ssession:%d:presence", r.keyPrefix, sessionID)
}

// --- StateRepository Interface Implementation ---

// PublishSessionEvent 将事件序列化后发布到会话的通知通道。
func (r *RedisStateRepository) PublishSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal session event (type %s): %w", event.Type, err)
	}
	channel := r.SessionEventChannel(event.SessionID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish event to %s: %w", channel, err)
	}
	return nil
}

// AddPresence 将用户加入在线集合，并刷新集合的过期时间。
func (r *RedisStateRepository) AddPresence(ctx context.Context, sessionID, userID uint) error {
	key := r.presenceKey(sessionID)
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, 24*time.Hour) // 兜底过期，避免残留集合
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: add presence (session %d, user %d): %w", sessionID, userID, err)
	}
	return nil
}

// RemovePresence 将用户移出在线集合。
func (r *RedisStateRepository) RemovePresence(ctx context.Context, sessionID, userID uint) error {
	key := r.presenceKey(sessionID)
	if err := r.client.SRem(ctx, key, userID).Err(); err != nil {
		return fmt.Errorf("redis: remove presence (session %d, user %d): %w", sessionID, userID, err)
	}
	return nil
}

// ListPresence 返回会话当前在线的用户 ID 列表。
func (r *RedisStateRepository) ListPresence(ctx context.Context, sessionID uint) ([]uint, error) {
	key := r.presenceKey(sessionID)
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list presence for session %d: %w", sessionID, err)
	}
	userIDs := make([]uint, 0, len(members))
	for _, m := range members {
		id, parseErr := strconv.ParseUint(m, 10, 64)
		if parseErr != nil {
			// 跳过无法解析的成员，不让脏数据拖垮整个列表
			continue
		}
		userIDs = append(userIDs, uint(id))
	}
	return userIDs, nil
}

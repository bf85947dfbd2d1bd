package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeSessionArchive      = "session:archive"       // 已完成会话的结果存档
	TypeStaleSessionCleanup = "session:cleanup_stale" // 定期清理长期无人的 waiting 会话
)

// SessionArchivePayload 定义了结果存档任务的数据结构。
// 只携带会话 ID，成员与票面由 Worker 从数据库重新读取，
// 存档因此总是基于提交后的权威状态。
type SessionArchivePayload struct {
	SessionID uint `json:"session_id"`
}

// NewSessionArchiveTask 创建一个新的结果存档任务
func NewSessionArchiveTask(sessionID uint) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(SessionArchivePayload{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshal session archive payload: %w", err)
	}
	return asynq.NewTask(TypeSessionArchive, payloadBytes, asynq.Queue("critical")), nil
}

// NewStaleSessionCleanupTask 创建一个清理任务 (由 Scheduler 周期性入队，无 payload)
func NewStaleSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeStaleSessionCleanup, nil, asynq.Queue("low"))
}

// Client 封装 asynq.Client，是 Service 层的任务入队入口。
type Client struct {
	client *asynq.Client
}

// NewClient 创建任务客户端
func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

// EnqueueSessionArchive 把结果存档任务放入队列。
// 实现 service.ResultArchiver 接口。
func (c *Client) EnqueueSessionArchive(ctx context.Context, sessionID uint) error {
	task, err := NewSessionArchiveTask(sessionID)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue session archive task (session %d): %w", sessionID, err)
	}
	return nil
}

// Close 关闭底层的 asynq 客户端连接
func (c *Client) Close() error {
	return c.client.Close()
}

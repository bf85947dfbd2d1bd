package hub

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"mystery-night/internal/repository"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	// 连接是只读的推送通道，客户端不应发送任何业务消息
	maxMessageSize = 512
)

// EventChannelNamer 提供会话通知通道的名称。
// 与 StateRepository 的发布端使用同一个命名，订阅与发布才对得上。
type EventChannelNamer interface {
	SessionEventChannel(sessionID uint) string
}

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type   string  // "register", "unregister"
	Client *Client // 关联的客户端
}

// Hub 维护活跃客户端集合，并把 Redis 通知通道上的会话事件
// 扇出给本实例上连接的客户端。
//
// 连接是单向的：服务端只推送轻量事件，客户端收到后通过 HTTP 重新拉取状态。
// 事件本身不携带任何身份或线索内容，订阅通道的人看不到秘密。
type Hub struct {
	// 内部通道，处理所有来自 Client 的注册/注销事件
	messageChan chan HubMessage

	// 客户端集合，按会话 ID 组织
	// map[sessionID]map[*Client]bool
	rooms map[uint]map[*Client]bool
	// 保护 rooms 与 subscriptions 的读写锁
	roomsMu sync.RWMutex

	// 每个有客户端在线的会话一个 Redis 订阅
	// map[sessionID]*redis.PubSub
	subscriptions map[uint]*redis.PubSub

	redisClient *redis.Client
	channels    EventChannelNamer
	stateRepo   repository.StateRepository
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(redisClient *redis.Client, channels EventChannelNamer, stateRepo repository.StateRepository) *Hub {
	if redisClient == nil {
		panic("redis client cannot be nil for Hub")
	}
	if channels == nil {
		panic("EventChannelNamer cannot be nil for Hub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan:   make(chan HubMessage, 512),
		rooms:         make(map[uint]map[*Client]bool),
		subscriptions: make(map[uint]*redis.PubSub),
		redisClient:   redisClient,
		channels:      channels,
		stateRepo:     stateRepo,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// registerClient 处理客户端注册逻辑。
// 会话的第一个客户端到来时启动该会话的 Redis 订阅。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	sessionID := client.SessionID()
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"action":     "registerClient",
	})

	h.roomsMu.Lock()
	if _, ok := h.rooms[sessionID]; !ok {
		h.rooms[sessionID] = make(map[*Client]bool)
		h.startSubscriptionLocked(sessionID)
		logCtx.Info("Client list created for new session room")
	}
	h.rooms[sessionID][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	// 在线状态是尽力而为的，失败只记录
	if err := h.stateRepo.AddPresence(context.Background(), sessionID, userID); err != nil {
		logCtx.WithError(err).Warn("Failed to add presence for client")
	}
}

// unregisterClient 处理客户端注销逻辑。
// 会话的最后一个客户端离开时停止该会话的 Redis 订阅。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	sessionID := client.SessionID()
	userID := client.UserID()
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"action":     "unregisterClient",
	})

	h.roomsMu.Lock()
	if roomClients, roomExists := h.rooms[sessionID]; roomExists {
		if _, clientExists := roomClients[client]; clientExists {
			delete(roomClients, client)
			logCtx.Debug("Client removed from session room")

			// 关闭此客户端的 send 通道，这将导致其 WritePump 退出
			select {
			case <-client.send:
				logCtx.Warn("Client send channel already closed or has data during unregister")
			default:
				close(client.send)
				logCtx.Info("Client send channel closed")
			}

			if len(roomClients) == 0 {
				delete(h.rooms, sessionID)
				h.stopSubscriptionLocked(sessionID)
				logCtx.Info("Session room empty, removed from Hub")
			}
		} else {
			logCtx.Warn("Client not found in session room during unregister")
		}
	} else {
		logCtx.Warn("Session room not found during client unregister")
	}
	h.roomsMu.Unlock()

	if err := h.stateRepo.RemovePresence(context.Background(), sessionID, userID); err != nil {
		logCtx.WithError(err).Warn("Failed to remove presence for client")
	}
	logCtx.Info("Client unregistered from Hub")
}

// startSubscriptionLocked 为会话启动 Redis 订阅并开始转发。
// 调用者必须持有 roomsMu 写锁。
func (h *Hub) startSubscriptionLocked(sessionID uint) {
	if _, exists := h.subscriptions[sessionID]; exists {
		return
	}
	channel := h.channels.SessionEventChannel(sessionID)
	pubsub := h.redisClient.Subscribe(context.Background(), channel)
	h.subscriptions[sessionID] = pubsub

	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"channel":    channel,
	})
	logCtx.Info("Started session event subscription")

	go func() {
		// pubsub 被 Close 后 Channel() 会关闭，goroutine 随之退出
		for msg := range pubsub.Channel() {
			h.broadcast(sessionID, []byte(msg.Payload))
		}
		logCtx.Info("Session event subscription stopped")
	}()
}

// stopSubscriptionLocked 停止会话的 Redis 订阅。
// 调用者必须持有 roomsMu 写锁。
func (h *Hub) stopSubscriptionLocked(sessionID uint) {
	pubsub, exists := h.subscriptions[sessionID]
	if !exists {
		return
	}
	delete(h.subscriptions, sessionID)
	if err := pubsub.Close(); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to close session event subscription")
	}
}

// broadcast 将消息发送给指定会话的所有客户端
func (h *Hub) broadcast(sessionID uint, message []byte) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[sessionID]
	// 创建一个接收者列表的副本，以避免长时间持有锁
	clientsToSend := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.roomsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"session_id":      sessionID,
		"message_size":    len(message),
		"recipient_count": len(clientsToSend),
	})
	logCtx.Debug("Broadcasting session event to clients")

	for _, client := range clientsToSend {
		// 使用非阻塞发送，避免单个慢客户端阻塞广播
		select {
		case client.send <- message:
		default:
			// 客户端收不到这条通知也没关系，下一次事件或手动刷新会追上状态
			logCtx.WithField("receiver_user_id", client.UserID()).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// --- 公共方法 ---

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 这是 Client 向 Hub 发送消息的安全方式。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// StopAllSubscriptions 关闭全部 Redis 订阅，供优雅停机时调用。
func (h *Hub) StopAllSubscriptions() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for sessionID := range h.subscriptions {
		h.stopSubscriptionLocked(sessionID)
	}
	logrus.Info("All session event subscriptions stopped")
}

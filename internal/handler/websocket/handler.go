package websocket

import (
	"errors"
	"net/http"
	"strconv"

	"mystery-night/internal/hub"
	"mystery-night/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
// 升级前校验请求者确实是该会话的成员，非成员拿不到通知通道。
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	sessionService *service.SessionService
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, sessionService *service.SessionService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if sessionService == nil {
		panic("SessionService cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			// TODO: restrict to the web client origin once it has a stable domain
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:       upgrader,
		hub:            h,
		sessionService: sessionService,
	}
}

// HandleConnection 处理 WebSocket 连接请求
// URL 预期格式: /ws/session/{id}
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 获取认证用户 ID (由 Auth 中间件设置)
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return // 返回 HTTP 错误，因为此时还未升级到 WebSocket
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("WS Handler: User ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	// 2. 获取并验证会话 ID (从 URL 参数)
	sessionIDStr := c.Param("id")
	sessionIDUint64, err := strconv.ParseUint(sessionIDStr, 10, 32)
	if err != nil {
		logCtx.WithError(err).Warnf("WS Handler: Invalid session ID format: %s", sessionIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID format"})
		return
	}
	sessionID := uint(sessionIDUint64)
	logCtx = logCtx.WithField("session_id", sessionID)

	// 3. 校验请求者是该会话的成员
	if err := h.sessionService.VerifyMembership(c.Request.Context(), userID, sessionID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			logCtx.WithError(err).Warn("WS Handler: Session not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, service.ErrNotMember):
			logCtx.WithError(err).Warn("WS Handler: User is not a member of the session")
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this session"})
		default:
			logCtx.WithError(err).Error("WS Handler: Error verifying session membership")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate session"})
		}
		return
	}
	logCtx.Debug("WS Handler: Session membership validated")

	// 4. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 方法会自动发送 HTTP 错误响应，所以这里只需要记录日志
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	// 5. 创建 Client 并请求 Hub 注册
	client := hub.NewClient(h.hub, conn, sessionID, userID)

	registerMsg := hub.HubMessage{
		Type:   "register",
		Client: client,
	}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}
	logCtx.Info("WS Handler: Client registration request queued to Hub")

	// 6. 启动客户端的读写 Goroutine；此后连接由 pump 接管
	go client.Run()
}

package http

import (
	"net/http"
	"strconv"

	"mystery-night/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionHandler 封装了会话生命周期相关的 HTTP 处理逻辑
type SessionHandler struct {
	sessionService *service.SessionService
	clueService    *service.ClueService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService, clueService *service.ClueService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		clueService:    clueService,
	}
}

// sessionIDParam 从路径参数解析会话 ID。
// 解析失败时直接写好错误响应并返回 false。
func sessionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid session id")
		return 0, false
	}
	return uint(id), true
}

// CreateSessionRequest 定义创建会话请求的结构体
type CreateSessionRequest struct {
	StoryID  uint   `json:"story_id" binding:"required"`
	Password string `json:"password" binding:"omitempty,min=4,max=64"` // 可选的会话密码
}

// CreateSessionResponse 定义创建会话成功的响应结构体
type CreateSessionResponse struct {
	Message     string `json:"message"`
	SessionID   uint   `json:"session_id"`
	SessionCode string `json:"session_code"`
	CharacterID uint   `json:"character_id"` // 主持人自动占用的角色
}

// CreateSession 处理创建新会话的请求
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CreateSession: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	session, hostPlayer, err := h.sessionService.CreateSession(c.Request.Context(), userID, req.StoryID, req.Password)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.CreateSession: Failed to create session via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithFields(logrus.Fields{"session_id": session.ID, "session_code": session.SessionCode}).Info("Handler.CreateSession: Session created successfully")
	c.JSON(http.StatusOK, CreateSessionResponse{
		Message:     "Session created successfully",
		SessionID:   session.ID,
		SessionCode: session.SessionCode,
		CharacterID: hostPlayer.CharacterID,
	})
}

// JoinSessionRequest 定义加入会话请求的结构体
type JoinSessionRequest struct {
	SessionCode string `json:"session_code" binding:"required,len=6"`
	Password    string `json:"password"` // 公开会话留空
}

// JoinSessionResponse 定义加入会话成功的响应结构体
type JoinSessionResponse struct {
	Message     string `json:"message"`
	SessionID   uint   `json:"session_id"`
	CharacterID uint   `json:"character_id"`
}

// JoinSession 处理用户通过加入码加入会话的请求
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.JoinSession: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: session_code is required"})
		return
	}
	logCtx = logCtx.WithField("session_code", req.SessionCode)

	session, player, err := h.sessionService.JoinSession(c.Request.Context(), userID, req.SessionCode, req.Password)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.JoinSession: Failed to join session via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("session_id", session.ID).Info("Handler.JoinSession: User joined session successfully")
	c.JSON(http.StatusOK, JoinSessionResponse{
		Message:     "Joined session successfully",
		SessionID:   session.ID,
		CharacterID: player.CharacterID,
	})
}

// LeaveSession 处理玩家离开尚未开始的会话的请求
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	if err := h.sessionService.LeaveSession(c.Request.Context(), userID, sessionID); err != nil {
		logCtx.WithError(err).Warn("Handler.LeaveSession: Failed to leave session via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.LeaveSession: User left session successfully")
	c.JSON(http.StatusOK, gin.H{"message": "Left session successfully"})
}

// StartSession 处理主持人开始游戏的请求 (waiting → in_progress)
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := h.sessionService.StartSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.StartSession: Failed to start session via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.StartSession: Session started successfully")
	c.JSON(http.StatusOK, gin.H{
		"message":       "Session started",
		"status":        session.Status,
		"current_round": session.CurrentRound,
	})
}

// AdvanceRound 处理主持人推进回合的请求
func (h *SessionHandler) AdvanceRound(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := h.sessionService.AdvanceRound(c.Request.Context(), userID, sessionID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.AdvanceRound: Failed to advance round via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("current_round", session.CurrentRound).Info("Handler.AdvanceRound: Round advanced successfully")
	c.JSON(http.StatusOK, gin.H{
		"message":       "Round advanced",
		"status":        session.Status,
		"current_round": session.CurrentRound,
	})
}

// EndVoting 处理主持人结束投票的请求 (voting → completed)
func (h *SessionHandler) EndVoting(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := h.sessionService.EndVoting(c.Request.Context(), userID, sessionID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.EndVoting: Failed to end voting via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.Info("Handler.EndVoting: Voting ended, session completed")
	c.JSON(http.StatusOK, gin.H{
		"message": "Voting ended",
		"status":  session.Status,
	})
}

// GetState 返回请求者视角下的会话状态快照。
// 推送通知到达后客户端调用此端点重新拉取。
func (h *SessionHandler) GetState(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	state, err := h.sessionService.GetSessionState(c.Request.Context(), userID, sessionID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetClues 返回请求者当前可见的线索列表
func (h *SessionHandler) GetClues(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	clues, err := h.clueService.VisibleClues(c.Request.Context(), userID, sessionID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID}).Warn("Handler.GetClues: Failed to list clues via service")
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clues": clues})
}

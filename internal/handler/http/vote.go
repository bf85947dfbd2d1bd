package http

import (
	"net/http"

	"mystery-night/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// VoteHandler 封装了投票与结果揭晓相关的 HTTP 处理逻辑
type VoteHandler struct {
	voteService *service.VoteService
}

// NewVoteHandler 创建 VoteHandler 实例
func NewVoteHandler(voteService *service.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// CastVoteRequest 定义投票请求的结构体
type CastVoteRequest struct {
	AccusedID uint `json:"accused_id" binding:"required"`
}

// CastVote 处理玩家投票的请求
func (h *VoteHandler) CastVote(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logCtx.WithError(err).Warn("Handler.CastVote: Invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: accused_id is required"})
		return
	}

	if err := h.voteService.CastVote(c.Request.Context(), userID, sessionID, req.AccusedID); err != nil {
		logCtx.WithError(err).Warn("Handler.CastVote: Failed to cast vote via service")
		HandleServiceError(c, err)
		return
	}

	logCtx.WithField("accused_id", req.AccusedID).Info("Handler.CastVote: Vote cast successfully")
	c.JSON(http.StatusOK, gin.H{"message": "Vote cast successfully"})
}

// GetResults 返回已完成会话的揭晓结果
func (h *VoteHandler) GetResults(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	outcome, err := h.voteService.Results(c.Request.Context(), sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Handler.GetResults: Failed to load results via service")
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

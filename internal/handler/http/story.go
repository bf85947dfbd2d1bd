package http

import (
	"net/http"
	"strconv"

	"mystery-night/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StoryHandler 封装了故事目录相关的 HTTP 处理逻辑
type StoryHandler struct {
	storyService *service.StoryService
}

// NewStoryHandler 创建 StoryHandler 实例
func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

// ListStories 返回全部可游玩的故事
func (h *StoryHandler) ListStories(c *gin.Context) {
	stories, err := h.storyService.ListStories(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Handler.ListStories: Failed to list stories via service")
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// GetStory 返回指定故事及其角色列表 (不含线索，线索按会话进度披露)
func (h *StoryHandler) GetStory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid story id")
		return
	}

	story, characters, err := h.storyService.GetStory(c.Request.Context(), uint(id))
	if err != nil {
		logrus.WithError(err).WithField("story_id", id).Warn("Handler.GetStory: Failed to load story via service")
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"story":      story,
		"characters": characters,
	})
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
	"mystery-night/internal/service"
	"mystery-night/internal/tasks"
)

// SessionArchiveHandler 处理已完成会话的结果存档任务。
// 从数据库重新读取成员与票面并重算结果，存档与在线查询用同一套纯函数，
// 两边不可能算出不一样的揭晓结果。
type SessionArchiveHandler struct {
	sessionRepo repository.SessionRepository
	playerRepo  repository.PlayerRepository
	voteRepo    repository.VoteRepository
	resultRepo  repository.ResultRepository
}

// NewSessionArchiveHandler 创建 Handler 实例
func NewSessionArchiveHandler(
	sessionRepo repository.SessionRepository,
	playerRepo repository.PlayerRepository,
	voteRepo repository.VoteRepository,
	resultRepo repository.ResultRepository,
) *SessionArchiveHandler {
	return &SessionArchiveHandler{
		sessionRepo: sessionRepo,
		playerRepo:  playerRepo,
		voteRepo:    voteRepo,
		resultRepo:  resultRepo,
	}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *SessionArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.SessionArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Archive: Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":  t.Type(),
		"session_id": payload.SessionID,
	})
	logCtx.Info("Processing session archive task...")

	session, err := h.sessionRepo.FindByID(ctx, payload.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// 会话已被清理，没有可存档的东西
			logCtx.Warn("Archive: Session no longer exists, skipping")
			return nil
		}
		return fmt.Errorf("load session %d: %w", payload.SessionID, err)
	}

	players, err := h.playerRepo.ListBySession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("list players for session %d: %w", payload.SessionID, err)
	}
	votes, err := h.voteRepo.ListBySession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("list votes for session %d: %w", payload.SessionID, err)
	}

	outcome := service.ComputeOutcome(players, votes)
	tallyBytes, err := json.Marshal(outcome.Tally)
	if err != nil {
		return fmt.Errorf("marshal tally for session %d: %v: %w", payload.SessionID, err, asynq.SkipRetry)
	}

	result := &domain.SessionResult{
		SessionID:     session.ID,
		MurdererID:    outcome.MurdererID,
		DetectivesWin: outcome.DetectivesWin,
		TallyJSON:     string(tallyBytes),
	}
	if err := h.resultRepo.Save(ctx, result); err != nil {
		return fmt.Errorf("save result for session %d: %w", session.ID, err)
	}

	logCtx.WithField("detectives_win", outcome.DetectivesWin).Info("Session archive task processed successfully")
	return nil
}

// StaleSessionCleanupHandler 清理长期不活跃且仍未开局的会话。
type StaleSessionCleanupHandler struct {
	sessionRepo repository.SessionRepository
	maxIdle     time.Duration // waiting 会话允许的最长不活跃时间
}

// NewStaleSessionCleanupHandler 创建 Handler 实例
func NewStaleSessionCleanupHandler(sessionRepo repository.SessionRepository, maxIdle time.Duration) *StaleSessionCleanupHandler {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	return &StaleSessionCleanupHandler{
		sessionRepo: sessionRepo,
		maxIdle:     maxIdle,
	}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *StaleSessionCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	cutoff := time.Now().Add(-h.maxIdle)

	stale, err := h.sessionRepo.ListStaleWaiting(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale waiting sessions: %w", err)
	}
	if len(stale) == 0 {
		logCtx.Debug("No stale sessions to clean up")
		return nil
	}

	cleaned := 0
	for _, session := range stale {
		if err := h.sessionRepo.DeleteCascade(ctx, session.ID); err != nil {
			// 单个失败不中断整轮清理，下一个周期会重试
			logCtx.WithError(err).WithField("session_id", session.ID).Warn("Failed to delete stale session")
			continue
		}
		cleaned++
	}
	logCtx.WithFields(logrus.Fields{"candidates": len(stale), "cleaned": cleaned}).Info("Stale session cleanup finished")
	return nil
}

package service

import (
	"context"
	"errors"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"

	"github.com/sirupsen/logrus"
)

// ClueService 负责线索披露的业务逻辑。
// 可见性是 (当前回合, 请求者身份) 的纯函数，每次请求基于最新持久状态重算，
// 服务端不缓存任何“已披露集合”。
type ClueService struct {
	sessionRepo repository.SessionRepository
	playerRepo  repository.PlayerRepository
	storyRepo   repository.StoryRepository
}

// NewClueService 创建 ClueService 实例。
func NewClueService(
	sessionRepo repository.SessionRepository,
	playerRepo repository.PlayerRepository,
	storyRepo repository.StoryRepository,
) *ClueService {
	if sessionRepo == nil {
		panic("SessionRepository cannot be nil for ClueService")
	}
	if playerRepo == nil {
		panic("PlayerRepository cannot be nil for ClueService")
	}
	if storyRepo == nil {
		panic("StoryRepository cannot be nil for ClueService")
	}
	return &ClueService{
		sessionRepo: sessionRepo,
		playerRepo:  playerRepo,
		storyRepo:   storyRepo,
	}
}

// VisibleClues 返回请求者当前可见的全部线索：
// 回合数不超过会话当前回合，且线索流与请求者身份匹配。
// 会话尚未开局 (waiting) 时没有任何线索可见。
func (s *ClueService) VisibleClues(ctx context.Context, userID, sessionID uint) ([]domain.Clue, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Failed to load session for clue listing")
		return nil, ErrInternalServer
	}

	player, err := s.playerRepo.FindBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			logCtx.Warn("Clue listing rejected: user is not a member of the session")
			return nil, ErrNotMember
		}
		logCtx.WithError(err).Error("Failed to load player for clue listing")
		return nil, ErrInternalServer
	}

	if session.Status == domain.StatusWaiting {
		// 开局前身份尚未指定，没有线索可看
		return []domain.Clue{}, nil
	}

	all, err := s.storyRepo.ListClues(ctx, session.StoryID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list story clues")
		return nil, ErrInternalServer
	}

	visible := make([]domain.Clue, 0, len(all))
	for _, clue := range all {
		if clue.VisibleTo(session.CurrentRound, player.Role) {
			visible = append(visible, clue)
		}
	}
	logCtx.WithField("visible_count", len(visible)).Debug("Computed visible clues")
	return visible, nil
}

package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ResultArchiver 把“会话已完成”的存档工作交给后台任务队列。
// 由 tasks 包的 asynq 客户端实现；入队失败不阻塞状态转移本身。
type ResultArchiver interface {
	EnqueueSessionArchive(ctx context.Context, sessionID uint) error
}

// SessionService 负责会话生命周期与成员管理的业务逻辑：
// 创建 / 加入 / 离开、开局时的身份指定、回合推进与投票阶段的状态机转移。
//
// 每个状态转移都遵循同一纪律：基于最新读取的持久状态做业务校验，
// 由 SessionRepository 的事务方法做最终裁决；本服务从不信任客户端快照。
type SessionService struct {
	sessionRepo repository.SessionRepository
	playerRepo  repository.PlayerRepository
	storyRepo   repository.StoryRepository
	stateRepo   repository.StateRepository
	archiver    ResultArchiver

	// intn 默认是 math/rand.Intn；测试可替换为确定性实现。
	// 角色与凶手的选取是均匀随机抽取，不是确定性座位分配。
	intn func(n int) int
}

// NewSessionService 创建 SessionService 实例。
func NewSessionService(
	sessionRepo repository.SessionRepository,
	playerRepo repository.PlayerRepository,
	storyRepo repository.StoryRepository,
	stateRepo repository.StateRepository,
	archiver ResultArchiver,
) *SessionService {
	if sessionRepo == nil {
		panic("SessionRepository cannot be nil for SessionService")
	}
	if playerRepo == nil {
		panic("PlayerRepository cannot be nil for SessionService")
	}
	if storyRepo == nil {
		panic("StoryRepository cannot be nil for SessionService")
	}
	return &SessionService{
		sessionRepo: sessionRepo,
		playerRepo:  playerRepo,
		storyRepo:   storyRepo,
		stateRepo:   stateRepo,
		archiver:    archiver,
		intn:        rand.Intn,
	}
}

// CreateSession 创建一个新会话并把主持人作为首名玩家加入。
// password 为空表示公开会话；非空时以 bcrypt 哈希存储。
func (s *SessionService) CreateSession(ctx context.Context, hostID, storyID uint, password string) (*domain.Session, *domain.Player, error) {
	logCtx := logrus.WithFields(logrus.Fields{"host_id": hostID, "story_id": storyID})

	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, repository.ErrStoryNotFound) {
			logCtx.WithError(err).Warn("Failed to create session: story not found")
			return nil, nil, ErrStoryNotFound
		}
		logCtx.WithError(err).Error("Failed to load story for session creation")
		return nil, nil, ErrInternalServer
	}

	code, err := s.generateUniqueSessionCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique session code")
		return nil, nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("session_code", code)

	passwordHash := ""
	if password != "" {
		passwordHash, err = hashPassword(password)
		if err != nil {
			logCtx.WithError(err).Error("Failed to hash session password")
			return nil, nil, ErrInternalServer
		}
	}

	session := &domain.Session{
		HostID:       hostID,
		StoryID:      storyID,
		SessionCode:  code,
		PasswordHash: passwordHash,
		Status:       domain.StatusWaiting,
		CurrentRound: 0,
		MaxRounds:    story.TotalRounds, // 权威来源是故事内容
		LastActive:   time.Now(),
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		logCtx.WithError(err).Error("Failed to save new session")
		return nil, nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("session_id", session.ID)

	// 主持人同样占用一个随机角色，走与普通加入相同的事务路径
	hostPlayer, _, err := s.sessionRepo.AddPlayer(ctx, session.ID, hostID, story.MaxPlayers, s.pickCharacter)
	if err != nil {
		logCtx.WithError(err).Error("Failed to add host as first player")
		return nil, nil, ErrInternalServer
	}

	logCtx.Info("Session created successfully")
	return session, hostPlayer, nil
}

// JoinSession 处理用户通过加入码进入会话。
// 拒绝条件依次为：码不存在、密码不匹配、状态非 waiting、人数已满、角色池耗尽。
// 同一用户重复加入是幂等的：返回已有成员记录，不报错也不产生第二条记录。
func (s *SessionService) JoinSession(ctx context.Context, userID uint, code, password string) (*domain.Session, *domain.Player, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_code": strings.ToUpper(code)})

	session, err := s.sessionRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logCtx.WithError(err).Warn("Join failed: session code not found")
			return nil, nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Join failed: repository error finding session")
		return nil, nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("session_id", session.ID)

	if session.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(session.PasswordHash), []byte(password)); err != nil {
			logCtx.Warn("Join failed: session password mismatch")
			return nil, nil, ErrWrongPassword
		}
	}

	story, err := s.storyRepo.FindByID(ctx, session.StoryID)
	if err != nil {
		logCtx.WithError(err).Error("Join failed: could not load story for capacity check")
		return nil, nil, ErrInternalServer
	}

	player, created, err := s.sessionRepo.AddPlayer(ctx, session.ID, userID, story.MaxPlayers, s.pickCharacter)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			logCtx.Warn("Join failed: session not in waiting status")
			return nil, nil, ErrSessionNotJoinable
		case errors.Is(err, repository.ErrCapacityExceeded):
			logCtx.Warn("Join failed: session full")
			return nil, nil, ErrSessionFull
		case errors.Is(err, repository.ErrPoolExhausted):
			logCtx.Warn("Join failed: character pool exhausted")
			return nil, nil, ErrNoCharactersLeft
		default:
			logCtx.WithError(err).Error("Join failed: repository error adding player")
			return nil, nil, ErrInternalServer
		}
	}

	if created {
		s.publish(ctx, domain.SessionEvent{
			Type:      domain.EventPlayerJoined,
			SessionID: session.ID,
			ActorID:   userID,
			Status:    session.Status,
		})
		logCtx.WithField("character_id", player.CharacterID).Info("User joined session")
	} else {
		logCtx.Debug("User rejoined session idempotently")
	}
	return session, player, nil
}

// LeaveSession 把玩家移出尚未开始的会话，其角色回到可用池。
// 主持人不能离开自己的会话 (不做主持人转移，避免产生无主会话)。
func (s *SessionService) LeaveSession(ctx context.Context, userID, sessionID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Leave failed: repository error finding session")
		return ErrInternalServer
	}
	if session.HostID == userID {
		logCtx.Warn("Leave rejected: host cannot leave own session")
		return ErrHostCannotLeave
	}

	if err := s.sessionRepo.RemovePlayer(ctx, sessionID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			return ErrSessionNotJoinable
		case errors.Is(err, repository.ErrPlayerNotFound):
			return ErrPlayerNotFound
		default:
			logCtx.WithError(err).Error("Leave failed: repository error removing player")
			return ErrInternalServer
		}
	}

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventPlayerLeft,
		SessionID: sessionID,
		ActorID:   userID,
		Status:    session.Status,
	})
	logCtx.Info("User left session")
	return nil
}

// StartSession 由主持人触发 waiting → in_progress 的转移：
// 校验人数下限，均匀随机选出恰好一名凶手，其余全部为侦探，
// 身份写入与状态翻转由存储层作为一个事务提交。
func (s *SessionService) StartSession(ctx context.Context, actorID, sessionID uint) (*domain.Session, error) {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "session_id": sessionID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Start failed: repository error finding session")
		return nil, ErrInternalServer
	}
	if session.HostID != actorID {
		logCtx.Warn("Start rejected: actor is not the host")
		return nil, ErrNotHost
	}

	story, err := s.storyRepo.FindByID(ctx, session.StoryID)
	if err != nil {
		logCtx.WithError(err).Error("Start failed: could not load story")
		return nil, ErrInternalServer
	}

	players, err := s.playerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("Start failed: could not list players")
		return nil, ErrInternalServer
	}
	if len(players) < story.MinPlayers {
		logCtx.Warnf("Start rejected: %d players, need at least %d", len(players), story.MinPlayers)
		return nil, ErrNotEnoughPlayers
	}

	murderer := players[s.intn(len(players))]
	started, err := s.sessionRepo.StartSession(ctx, sessionID, murderer.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		logCtx.WithError(err).Error("Start failed: repository error starting session")
		return nil, ErrInternalServer
	}

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventSessionStarted,
		SessionID: sessionID,
		ActorID:   actorID,
		Status:    started.Status,
		Round:     started.CurrentRound,
	})
	logCtx.WithField("player_count", len(players)).Info("Session started, roles assigned")
	return started, nil
}

// AdvanceRound 由主持人推进回合；回合达到上限时状态自动进入 voting。
func (s *SessionService) AdvanceRound(ctx context.Context, actorID, sessionID uint) (*domain.Session, error) {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "session_id": sessionID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Advance failed: repository error finding session")
		return nil, ErrInternalServer
	}
	if session.HostID != actorID {
		logCtx.Warn("Advance rejected: actor is not the host")
		return nil, ErrNotHost
	}

	advanced, err := s.sessionRepo.AdvanceRound(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		logCtx.WithError(err).Error("Advance failed: repository error advancing round")
		return nil, ErrInternalServer
	}

	eventType := domain.EventRoundAdvanced
	if advanced.Status == domain.StatusVoting {
		eventType = domain.EventVotingStarted
	}
	s.publish(ctx, domain.SessionEvent{
		Type:      eventType,
		SessionID: sessionID,
		ActorID:   actorID,
		Status:    advanced.Status,
		Round:     advanced.CurrentRound,
	})
	logCtx.WithFields(logrus.Fields{"round": advanced.CurrentRound, "status": advanced.Status}).Info("Round advanced")
	return advanced, nil
}

// EndVoting 由主持人强制结束投票 (voting → completed)。
// 没有“所有人都投完自动结束”的转移：投票可以提前收束也可以延长，由主持人掌控。
func (s *SessionService) EndVoting(ctx context.Context, actorID, sessionID uint) (*domain.Session, error) {
	logCtx := logrus.WithFields(logrus.Fields{"actor_id": actorID, "session_id": sessionID})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("End voting failed: repository error finding session")
		return nil, ErrInternalServer
	}
	if session.HostID != actorID {
		logCtx.Warn("End voting rejected: actor is not the host")
		return nil, ErrNotHost
	}

	completed, err := s.sessionRepo.CompleteVoting(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		logCtx.WithError(err).Error("End voting failed: repository error completing session")
		return nil, ErrInternalServer
	}

	// 结果存档交给后台任务；入队失败只记录，不影响已提交的状态转移
	if s.archiver != nil {
		if err := s.archiver.EnqueueSessionArchive(ctx, sessionID); err != nil {
			logCtx.WithError(err).Error("Failed to enqueue session archive task")
		}
	}

	s.publish(ctx, domain.SessionEvent{
		Type:      domain.EventSessionCompleted,
		SessionID: sessionID,
		ActorID:   actorID,
		Status:    completed.Status,
		Round:     completed.CurrentRound,
	})
	logCtx.Info("Voting ended, session completed")
	return completed, nil
}

// PlayerSummary 是对其他玩家可见的成员信息。
// 会话完成前不包含身份：任何人 (包括主持人) 都无法从成员列表推断谁是凶手。
type PlayerSummary struct {
	UserID      uint      `json:"user_id"`
	CharacterID uint      `json:"character_id"`
	JoinedAt    time.Time `json:"joined_at"`
}

// SessionState 是某个玩家视角下的会话状态快照。
type SessionState struct {
	Session  *domain.Session `json:"session"`
	Players  []PlayerSummary `json:"players"`
	YourRole domain.Role     `json:"your_role,omitempty"` // 仅开局后返回请求者本人的身份
	Online   []uint          `json:"online,omitempty"`    // 当前在线的用户 ID
}

// GetSessionState 返回请求者视角下的会话快照。
// 推送通知到达后客户端调用此方法重新拉取，重复调用是幂等的纯读取。
func (s *SessionService) GetSessionState(ctx context.Context, userID, sessionID uint) (*SessionState, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrInternalServer
	}

	players, err := s.playerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to list players for state view")
		return nil, ErrInternalServer
	}

	state := &SessionState{Session: session}
	for _, p := range players {
		state.Players = append(state.Players, PlayerSummary{
			UserID:      p.UserID,
			CharacterID: p.CharacterID,
			JoinedAt:    p.JoinedAt,
		})
		// 身份只向本人披露，且只在开局之后
		if p.UserID == userID && session.Status != domain.StatusWaiting {
			state.YourRole = p.Role
		}
	}

	if s.stateRepo != nil {
		online, err := s.stateRepo.ListPresence(ctx, sessionID)
		if err != nil {
			// 在线列表是锦上添花，失败不影响快照主体
			logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to list presence")
		} else {
			state.Online = online
		}
	}
	return state, nil
}

// VerifyMembership 校验用户是会话的成员。
// WebSocket 升级前调用，非成员不允许订阅会话通知。
func (s *SessionService) VerifyMembership(ctx context.Context, userID, sessionID uint) error {
	if _, err := s.sessionRepo.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return ErrInternalServer
	}
	if _, err := s.playerRepo.FindBySessionAndUser(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return ErrNotMember
		}
		return ErrInternalServer
	}
	return nil
}

// --- 私有辅助函数 ---

// pickCharacter 从剩余角色池中均匀随机选择一个角色 ID。
// 在 SessionRepository.AddPlayer 的事务内被回调，池的读取与写入同锁。
func (s *SessionService) pickCharacter(available []domain.Character) uint {
	return available[s.intn(len(available))].ID
}

// publish 发布会话变更事件；通知是尽力而为的，失败只记录日志。
func (s *SessionService) publish(ctx context.Context, event domain.SessionEvent) {
	if s.stateRepo == nil {
		return
	}
	if err := s.stateRepo.PublishSessionEvent(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"event_type": event.Type,
		}).Error("Failed to publish session event")
	}
}

// generateUniqueSessionCode 生成唯一的 6 位加入码
func (s *SessionService) generateUniqueSessionCode(ctx context.Context) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const codeLength = 6
	const maxAttempts = 10

	b := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := crand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = letters[int(b[i])%len(letters)]
		}
		code := string(b)

		exists, err := s.sessionRepo.IsCodeExists(ctx, code)
		if err != nil {
			logrus.WithError(err).WithField("session_code", code).Error("Database error checking session code uniqueness")
			return "", fmt.Errorf("database error checking session code: %w", err)
		}
		if !exists {
			logrus.WithField("session_code", code).Debugf("Generated unique session code after %d attempt(s).", attempt+1)
			return code, nil
		}
		logrus.WithField("session_code", code).Warnf("Generated session code already exists, retrying (attempt %d)...", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique session code after %d attempts", maxAttempts)
}

package service // 白盒测试：需要替换注入的随机源

import (
	"context"
	"errors"
	"testing"
	"time"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
	"mystery-night/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// archiverMock 是 ResultArchiver 的 Mock 实现
type archiverMock struct {
	mock.Mock
}

func (m *archiverMock) EnqueueSessionArchive(ctx context.Context, sessionID uint) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// newSessionServiceForTest 组装一个全 Mock 依赖的 SessionService
func newSessionServiceForTest(t *testing.T) (*SessionService, *mocks.SessionRepository, *mocks.PlayerRepository, *mocks.StoryRepository, *mocks.StateRepository, *archiverMock) {
	t.Helper()
	sessionRepo := new(mocks.SessionRepository)
	playerRepo := new(mocks.PlayerRepository)
	storyRepo := new(mocks.StoryRepository)
	stateRepo := new(mocks.StateRepository)
	archiver := new(archiverMock)
	svc := NewSessionService(sessionRepo, playerRepo, storyRepo, stateRepo, archiver)
	return svc, sessionRepo, playerRepo, storyRepo, stateRepo, archiver
}

func waitingSession(id, hostID uint) *domain.Session {
	return &domain.Session{
		ID:          id,
		HostID:      hostID,
		StoryID:     7,
		SessionCode: "AB12CD",
		Status:      domain.StatusWaiting,
		MaxRounds:   3,
		LastActive:  time.Now(),
	}
}

func testPlayers(sessionID uint, userIDs ...uint) []domain.Player {
	players := make([]domain.Player, 0, len(userIDs))
	for i, uid := range userIDs {
		players = append(players, domain.Player{
			ID:          uint(i + 1),
			SessionID:   sessionID,
			UserID:      uid,
			CharacterID: uint(100 + i),
			Role:        domain.RoleDetective,
			JoinedAt:    time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	return players
}

// --- CreateSession ---

func TestSessionService_CreateSession_Success(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, storyRepo, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	hostID := uint(1)

	story := &domain.Story{ID: 7, Title: "Manor Murder", MinPlayers: 3, MaxPlayers: 8, TotalRounds: 3}
	storyRepo.On("FindByID", ctx, uint(7)).Return(story, nil).Once()
	sessionRepo.On("IsCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	sessionRepo.On("Save", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		assert.Equal(t, hostID, s.HostID)
		assert.Equal(t, domain.StatusWaiting, s.Status, "新会话应处于 waiting 状态")
		assert.Equal(t, 0, s.CurrentRound)
		assert.Equal(t, 3, s.MaxRounds, "回合上限应从故事复制")
		assert.Len(t, s.SessionCode, 6, "加入码应为 6 位")
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Session).ID = 42
	}).Return(nil).Once()
	hostPlayer := &domain.Player{ID: 1, SessionID: 42, UserID: hostID, CharacterID: 100}
	sessionRepo.On("AddPlayer", ctx, uint(42), hostID, 8, mock.Anything).Return(hostPlayer, true, nil).Once()

	// Act
	session, player, err := svc.CreateSession(ctx, hostID, 7, "")

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, uint(42), session.ID)
	assert.False(t, session.HasPassword(), "未设置密码时不应有密码哈希")
	require.NotNil(t, player, "主持人应作为首名玩家加入")
	assert.Equal(t, hostID, player.UserID)

	sessionRepo.AssertExpectations(t)
	storyRepo.AssertExpectations(t)
}

func TestSessionService_CreateSession_WithPassword(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, storyRepo, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	password := "secret-pass"

	story := &domain.Story{ID: 7, MinPlayers: 3, MaxPlayers: 8, TotalRounds: 3}
	storyRepo.On("FindByID", ctx, uint(7)).Return(story, nil).Once()
	sessionRepo.On("IsCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	sessionRepo.On("Save", ctx, mock.MatchedBy(func(s *domain.Session) bool {
		// 密码必须以 bcrypt 哈希存储，不能是明文
		assert.NotEqual(t, password, s.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)))
		return true
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Session).ID = 43
	}).Return(nil).Once()
	sessionRepo.On("AddPlayer", ctx, uint(43), uint(1), 8, mock.Anything).
		Return(&domain.Player{SessionID: 43, UserID: 1}, true, nil).Once()

	// Act
	session, _, err := svc.CreateSession(ctx, 1, 7, password)

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, session)
	assert.True(t, session.HasPassword())
	sessionRepo.AssertExpectations(t)
}

func TestSessionService_CreateSession_StoryNotFound(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, storyRepo, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	storyRepo.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrStoryNotFound).Once()

	// Act
	_, _, err := svc.CreateSession(ctx, 1, 99, "")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoryNotFound))
	sessionRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// --- JoinSession ---

func TestSessionService_JoinSession_Success(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, storyRepo, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	session := waitingSession(42, 1)

	sessionRepo.On("FindByCode", ctx, "ab12cd").Return(session, nil).Once()
	storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MaxPlayers: 8}, nil).Once()
	joined := &domain.Player{ID: 2, SessionID: 42, UserID: 9, CharacterID: 101}
	sessionRepo.On("AddPlayer", ctx, uint(42), uint(9), 8, mock.Anything).Return(joined, true, nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventPlayerJoined && e.SessionID == 42 && e.ActorID == 9
	})).Return(nil).Once()

	// Act
	gotSession, gotPlayer, err := svc.JoinSession(ctx, 9, "ab12cd", "")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, uint(42), gotSession.ID)
	assert.Equal(t, uint(101), gotPlayer.CharacterID)
	sessionRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
}

func TestSessionService_JoinSession_Idempotent(t *testing.T) {
	// Arrange: 同一用户重复加入，返回已有成员记录且不发布事件
	svc, sessionRepo, _, storyRepo, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	session := waitingSession(42, 1)

	sessionRepo.On("FindByCode", ctx, "AB12CD").Return(session, nil).Once()
	storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MaxPlayers: 8}, nil).Once()
	existing := &domain.Player{ID: 2, SessionID: 42, UserID: 9, CharacterID: 101}
	sessionRepo.On("AddPlayer", ctx, uint(42), uint(9), 8, mock.Anything).Return(existing, false, nil).Once()

	// Act
	_, gotPlayer, err := svc.JoinSession(ctx, 9, "AB12CD", "")

	// Assert
	assert.NoError(t, err, "重复加入应幂等成功")
	assert.Equal(t, existing.CharacterID, gotPlayer.CharacterID, "应返回已持有的角色")
	stateRepo.AssertNotCalled(t, "PublishSessionEvent", mock.Anything, mock.Anything)
}

func TestSessionService_JoinSession_WrongPassword(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.DefaultCost)
	session := waitingSession(42, 1)
	session.PasswordHash = string(hash)

	sessionRepo.On("FindByCode", ctx, "AB12CD").Return(session, nil).Once()

	// Act
	_, _, err := svc.JoinSession(ctx, 9, "AB12CD", "wrong")

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrongPassword))
	sessionRepo.AssertNotCalled(t, "AddPlayer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_JoinSession_RepositoryErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"会话已开始", repository.ErrStateConflict, ErrSessionNotJoinable},
		{"人数已满", repository.ErrCapacityExceeded, ErrSessionFull},
		{"角色池耗尽", repository.ErrPoolExhausted, ErrNoCharactersLeft},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, sessionRepo, _, storyRepo, _, _ := newSessionServiceForTest(t)
			ctx := context.Background()
			sessionRepo.On("FindByCode", ctx, "AB12CD").Return(waitingSession(42, 1), nil).Once()
			storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MaxPlayers: 8}, nil).Once()
			sessionRepo.On("AddPlayer", ctx, uint(42), uint(9), 8, mock.Anything).
				Return(nil, false, tc.repoErr).Once()

			_, _, err := svc.JoinSession(ctx, 9, "AB12CD", "")

			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "仓库错误应映射为对应的业务错误")
		})
	}
}

// --- LeaveSession ---

func TestSessionService_LeaveSession_HostCannotLeave(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()

	// Act: 主持人 (user 1) 尝试离开自己的会话
	err := svc.LeaveSession(ctx, 1, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHostCannotLeave))
	sessionRepo.AssertNotCalled(t, "RemovePlayer", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_LeaveSession_Success(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()
	sessionRepo.On("RemovePlayer", ctx, uint(42), uint(9)).Return(nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventPlayerLeft && e.ActorID == 9
	})).Return(nil).Once()

	// Act
	err := svc.LeaveSession(ctx, 9, 42)

	// Assert
	assert.NoError(t, err)
	sessionRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
}

// --- StartSession ---

func TestSessionService_StartSession_NotHost(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()

	// Act: user 9 不是主持人
	_, err := svc.StartSession(ctx, 9, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotHost))
	sessionRepo.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_StartSession_NotEnoughPlayers(t *testing.T) {
	// Arrange: 故事要求至少 3 人，只有 2 人加入
	svc, sessionRepo, playerRepo, storyRepo, _, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()
	storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MinPlayers: 3, MaxPlayers: 8}, nil).Once()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(testPlayers(42, 1, 9), nil).Once()

	// Act
	_, err := svc.StartSession(ctx, 1, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotEnoughPlayers), "人数不足时应拒绝开局")
	sessionRepo.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_StartSession_PicksMurdererUniformly(t *testing.T) {
	// Arrange: 固定随机源，凶手应恰好是被选中下标对应的玩家
	svc, sessionRepo, playerRepo, storyRepo, stateRepo, _ := newSessionServiceForTest(t)
	svc.intn = func(n int) int {
		assert.Equal(t, 4, n, "随机范围应等于玩家数")
		return 2
	}
	ctx := context.Background()
	players := testPlayers(42, 1, 9, 12, 15)

	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()
	storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MinPlayers: 3, MaxPlayers: 8}, nil).Once()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(players, nil).Once()

	started := waitingSession(42, 1)
	started.Status = domain.StatusInProgress
	started.CurrentRound = 1
	// 凶手必须是 players[2] (user 12)
	sessionRepo.On("StartSession", ctx, uint(42), uint(12)).Return(started, nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventSessionStarted && e.Status == domain.StatusInProgress
	})).Return(nil).Once()

	// Act
	got, err := svc.StartSession(ctx, 1, 42)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	sessionRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
}

func TestSessionService_StartSession_StateConflict(t *testing.T) {
	// Arrange: 存储层裁决会话已不在 waiting
	svc, sessionRepo, playerRepo, storyRepo, _, _ := newSessionServiceForTest(t)
	svc.intn = func(n int) int { return 0 }
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()
	storyRepo.On("FindByID", ctx, uint(7)).Return(&domain.Story{ID: 7, MinPlayers: 3, MaxPlayers: 8}, nil).Once()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(testPlayers(42, 1, 9, 12), nil).Once()
	sessionRepo.On("StartSession", ctx, uint(42), uint(1)).Return(nil, repository.ErrStateConflict).Once()

	// Act
	_, err := svc.StartSession(ctx, 1, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

// --- AdvanceRound / EndVoting ---

func TestSessionService_AdvanceRound_PublishesRoundAdvanced(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	current := waitingSession(42, 1)
	current.Status = domain.StatusInProgress
	current.CurrentRound = 1
	sessionRepo.On("FindByID", ctx, uint(42)).Return(current, nil).Once()

	advanced := waitingSession(42, 1)
	advanced.Status = domain.StatusInProgress
	advanced.CurrentRound = 2
	sessionRepo.On("AdvanceRound", ctx, uint(42)).Return(advanced, nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventRoundAdvanced && e.Round == 2
	})).Return(nil).Once()

	// Act
	got, err := svc.AdvanceRound(ctx, 1, 42)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 2, got.CurrentRound)
	stateRepo.AssertExpectations(t)
}

func TestSessionService_AdvanceRound_FinalRoundEntersVoting(t *testing.T) {
	// Arrange: 推进到回合上限时状态自动变为 voting，事件类型随之变化
	svc, sessionRepo, _, _, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	current := waitingSession(42, 1)
	current.Status = domain.StatusInProgress
	current.CurrentRound = 2
	sessionRepo.On("FindByID", ctx, uint(42)).Return(current, nil).Once()

	voting := waitingSession(42, 1)
	voting.Status = domain.StatusVoting
	voting.CurrentRound = 3
	sessionRepo.On("AdvanceRound", ctx, uint(42)).Return(voting, nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventVotingStarted && e.Status == domain.StatusVoting
	})).Return(nil).Once()

	// Act
	got, err := svc.AdvanceRound(ctx, 1, 42)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusVoting, got.Status)
	stateRepo.AssertExpectations(t)
}

func TestSessionService_EndVoting_EnqueuesArchive(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, stateRepo, archiver := newSessionServiceForTest(t)
	ctx := context.Background()
	current := waitingSession(42, 1)
	current.Status = domain.StatusVoting
	current.CurrentRound = 3
	sessionRepo.On("FindByID", ctx, uint(42)).Return(current, nil).Once()

	completed := waitingSession(42, 1)
	completed.Status = domain.StatusCompleted
	completed.CurrentRound = 3
	sessionRepo.On("CompleteVoting", ctx, uint(42)).Return(completed, nil).Once()
	archiver.On("EnqueueSessionArchive", ctx, uint(42)).Return(nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		return e.Type == domain.EventSessionCompleted && e.Status == domain.StatusCompleted
	})).Return(nil).Once()

	// Act
	got, err := svc.EndVoting(ctx, 1, 42)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	archiver.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
}

// --- GetSessionState ---

func TestSessionService_GetSessionState_HidesRolesBeforeStart(t *testing.T) {
	// Arrange: waiting 状态下任何人都看不到身份
	svc, sessionRepo, playerRepo, _, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	sessionRepo.On("FindByID", ctx, uint(42)).Return(waitingSession(42, 1), nil).Once()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(testPlayers(42, 1, 9), nil).Once()
	stateRepo.On("ListPresence", ctx, uint(42)).Return([]uint{1, 9}, nil).Once()

	// Act
	state, err := svc.GetSessionState(ctx, 1, 42)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, state.YourRole, "开局前不应披露任何身份")
	assert.Len(t, state.Players, 2)
	assert.ElementsMatch(t, []uint{1, 9}, state.Online)
}

func TestSessionService_GetSessionState_RevealsOnlyOwnRole(t *testing.T) {
	// Arrange: 开局后只返回请求者本人的身份，成员列表不含任何身份
	svc, sessionRepo, playerRepo, _, stateRepo, _ := newSessionServiceForTest(t)
	ctx := context.Background()
	session := waitingSession(42, 1)
	session.Status = domain.StatusInProgress
	session.CurrentRound = 1
	players := testPlayers(42, 1, 9, 12)
	players[1].Role = domain.RoleMurderer // user 9 是凶手

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Twice()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(players, nil).Twice()
	stateRepo.On("ListPresence", ctx, uint(42)).Return([]uint{}, nil).Twice()

	// Act: 凶手本人与一名侦探分别拉取快照
	murdererView, err := svc.GetSessionState(ctx, 9, 42)
	require.NoError(t, err)
	detectiveView, err := svc.GetSessionState(ctx, 12, 42)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, domain.RoleMurderer, murdererView.YourRole, "凶手应看到自己的身份")
	assert.Equal(t, domain.RoleDetective, detectiveView.YourRole, "侦探应看到自己的身份")
	// PlayerSummary 类型本身不含身份字段，成员列表无从泄露他人身份
	assert.Len(t, murdererView.Players, 3)
	assert.Len(t, detectiveView.Players, 3)
}

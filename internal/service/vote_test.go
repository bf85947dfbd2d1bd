package service_test

import (
	"context"
	"errors"
	"testing"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"
	"mystery-night/internal/repository/mocks"
	"mystery-night/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newVoteServiceForTest(t *testing.T) (*service.VoteService, *mocks.SessionRepository, *mocks.PlayerRepository, *mocks.VoteRepository, *mocks.ResultRepository, *mocks.StateRepository) {
	t.Helper()
	sessionRepo := new(mocks.SessionRepository)
	playerRepo := new(mocks.PlayerRepository)
	voteRepo := new(mocks.VoteRepository)
	resultRepo := new(mocks.ResultRepository)
	stateRepo := new(mocks.StateRepository)
	svc := service.NewVoteService(sessionRepo, playerRepo, voteRepo, resultRepo, stateRepo)
	return svc, sessionRepo, playerRepo, voteRepo, resultRepo, stateRepo
}

// playersWithMurderer 构造按加入顺序排列的玩家列表，murdererIdx 指定凶手下标
func playersWithMurderer(murdererIdx int, userIDs ...uint) []domain.Player {
	players := make([]domain.Player, 0, len(userIDs))
	for i, uid := range userIDs {
		role := domain.RoleDetective
		if i == murdererIdx {
			role = domain.RoleMurderer
		}
		players = append(players, domain.Player{ID: uint(i + 1), SessionID: 42, UserID: uid, Role: role})
	}
	return players
}

func votesFor(pairs ...[2]uint) []domain.Vote {
	votes := make([]domain.Vote, 0, len(pairs))
	for i, p := range pairs {
		votes = append(votes, domain.Vote{ID: uint(i + 1), SessionID: 42, VoterID: p[0], AccusedID: p[1]})
	}
	return votes
}

// --- 纯函数：票数统计与结果判定 ---

func TestComputeOutcome_MajorityOnMurderer_DetectivesWin(t *testing.T) {
	// 4 人局，user 12 是凶手，3 票投给 12
	players := playersWithMurderer(2, 1, 9, 12, 15)
	votes := votesFor([2]uint{1, 12}, [2]uint{9, 12}, [2]uint{15, 12}, [2]uint{12, 1})

	outcome := service.ComputeOutcome(players, votes)

	assert.Equal(t, uint(12), outcome.MurdererID)
	assert.True(t, outcome.DetectivesWin, "真凶得票最多时侦探阵营应获胜")
	assert.Equal(t, uint(12), outcome.Tally[0].UserID)
	assert.Equal(t, 3, outcome.Tally[0].VoteCount)
}

func TestComputeOutcome_MajorityOnDetective_MurdererWins(t *testing.T) {
	// 凶手是 user 12，但多数票落在侦探 user 9 身上
	players := playersWithMurderer(2, 1, 9, 12, 15)
	votes := votesFor([2]uint{1, 9}, [2]uint{12, 9}, [2]uint{15, 9}, [2]uint{9, 12})

	outcome := service.ComputeOutcome(players, votes)

	assert.False(t, outcome.DetectivesWin, "首位不是真凶时凶手应获胜")
	assert.Equal(t, uint(9), outcome.Tally[0].UserID)
}

func TestComputeOutcome_NoVotes_MurdererWins(t *testing.T) {
	// 无人投票：统计表全零，凶手获胜
	players := playersWithMurderer(0, 5, 6, 7)

	outcome := service.ComputeOutcome(players, nil)

	assert.False(t, outcome.DetectivesWin, "零票时不应判侦探获胜")
	assert.Len(t, outcome.Tally, 3, "零票的玩家也应出现在统计表中")
	for _, entry := range outcome.Tally {
		assert.Equal(t, 0, entry.VoteCount)
	}
}

func TestTallyVotes_TieBreakByJoinOrder(t *testing.T) {
	// user 9 与 user 12 各得 2 票；user 9 先加入，平票时应排在前面
	players := playersWithMurderer(0, 1, 9, 12, 15)
	votes := votesFor([2]uint{1, 9}, [2]uint{15, 9}, [2]uint{9, 12}, [2]uint{12, 12})

	tally := service.TallyVotes(players, votes)

	require.Len(t, tally, 4)
	assert.Equal(t, uint(9), tally[0].UserID, "平票时先加入者应排在前面")
	assert.Equal(t, 2, tally[0].VoteCount)
	assert.Equal(t, uint(12), tally[1].UserID)
	assert.Equal(t, 2, tally[1].VoteCount)
}

// --- CastVote ---

func TestVoteService_CastVote_Success(t *testing.T) {
	// Arrange
	svc, sessionRepo, playerRepo, voteRepo, _, stateRepo := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, HostID: 1, Status: domain.StatusVoting, CurrentRound: 3}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9}, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(12)).
		Return(&domain.Player{SessionID: 42, UserID: 12}, nil).Once()
	voteRepo.On("Cast", ctx, mock.MatchedBy(func(v *domain.Vote) bool {
		return v.SessionID == 42 && v.VoterID == 9 && v.AccusedID == 12
	})).Return(nil).Once()
	stateRepo.On("PublishSessionEvent", ctx, mock.MatchedBy(func(e domain.SessionEvent) bool {
		// 投票事件不携带投票者身份
		return e.Type == domain.EventVoteCast && e.ActorID == 0
	})).Return(nil).Once()

	// Act
	err := svc.CastVote(ctx, 9, 42, 12)

	// Assert
	assert.NoError(t, err)
	voteRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
}

func TestVoteService_CastVote_Duplicate(t *testing.T) {
	// Arrange: 存储层的唯一索引拒绝第二票
	svc, sessionRepo, playerRepo, voteRepo, _, stateRepo := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusVoting}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9}, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(12)).
		Return(&domain.Player{SessionID: 42, UserID: 12}, nil).Once()
	voteRepo.On("Cast", ctx, mock.AnythingOfType("*domain.Vote")).Return(repository.ErrDuplicateEntry).Once()

	// Act
	err := svc.CastVote(ctx, 9, 42, 12)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrAlreadyVoted), "重复投票应返回 ErrAlreadyVoted")
	stateRepo.AssertNotCalled(t, "PublishSessionEvent", mock.Anything, mock.Anything)
}

func TestVoteService_CastVote_NotVotingPhase(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, voteRepo, _, _ := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusInProgress}
	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()

	// Act
	err := svc.CastVote(ctx, 9, 42, 12)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrVotingClosed))
	voteRepo.AssertNotCalled(t, "Cast", mock.Anything, mock.Anything)
}

func TestVoteService_CastVote_AccusedNotMember(t *testing.T) {
	// Arrange
	svc, sessionRepo, playerRepo, voteRepo, _, _ := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusVoting}
	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9}, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(99)).
		Return(nil, repository.ErrPlayerNotFound).Once()

	// Act
	err := svc.CastVote(ctx, 9, 42, 99)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPlayerNotFound), "指控非成员应被拒绝")
	voteRepo.AssertNotCalled(t, "Cast", mock.Anything, mock.Anything)
}

// --- Results ---

func TestVoteService_Results_NotCompleted(t *testing.T) {
	// Arrange
	svc, sessionRepo, _, _, _, _ := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusVoting}
	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()

	// Act
	_, err := svc.Results(ctx, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrSessionNotCompleted), "投票结束前不应能查看结果")
}

func TestVoteService_Results_RecomputesWhenArchiveMissing(t *testing.T) {
	// Arrange: 存档任务尚未落库，结果现场重算
	svc, sessionRepo, playerRepo, voteRepo, resultRepo, _ := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusCompleted}
	players := playersWithMurderer(1, 1, 9, 12)
	votes := votesFor([2]uint{1, 9}, [2]uint{12, 9})

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	resultRepo.On("FindBySession", ctx, uint(42)).Return(nil, repository.ErrResultNotFound).Once()
	playerRepo.On("ListBySession", ctx, uint(42)).Return(players, nil).Once()
	voteRepo.On("ListBySession", ctx, uint(42)).Return(votes, nil).Once()

	// Act
	outcome, err := svc.Results(ctx, 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(9), outcome.MurdererID)
	assert.True(t, outcome.DetectivesWin, "多数票落在真凶身上时侦探获胜")
}

func TestVoteService_Results_PrefersArchivedResult(t *testing.T) {
	// Arrange: 已有存档时直接返回存档，不再查成员与票面
	svc, sessionRepo, playerRepo, voteRepo, resultRepo, _ := newVoteServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, Status: domain.StatusCompleted}
	archived := &domain.SessionResult{
		SessionID:     42,
		MurdererID:    9,
		DetectivesWin: true,
		TallyJSON:     `[{"user_id":9,"vote_count":2},{"user_id":1,"vote_count":0},{"user_id":12,"vote_count":0}]`,
	}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	resultRepo.On("FindBySession", ctx, uint(42)).Return(archived, nil).Once()

	// Act
	outcome, err := svc.Results(ctx, 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(9), outcome.MurdererID)
	assert.True(t, outcome.DetectivesWin)
	require.Len(t, outcome.Tally, 3)
	assert.Equal(t, uint(9), outcome.Tally[0].UserID)
	playerRepo.AssertNotCalled(t, "ListBySession", mock.Anything, mock.Anything)
	voteRepo.AssertNotCalled(t, "ListBySession", mock.Anything, mock.Anything)
}

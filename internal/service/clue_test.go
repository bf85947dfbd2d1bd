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

func newClueServiceForTest(t *testing.T) (*service.ClueService, *mocks.SessionRepository, *mocks.PlayerRepository, *mocks.StoryRepository) {
	t.Helper()
	sessionRepo := new(mocks.SessionRepository)
	playerRepo := new(mocks.PlayerRepository)
	storyRepo := new(mocks.StoryRepository)
	svc := service.NewClueService(sessionRepo, playerRepo, storyRepo)
	return svc, sessionRepo, playerRepo, storyRepo
}

// storyClues 构造一套 3 回合的双流线索：每回合各一条侦探线索和凶手线索
func storyClues(storyID uint) []domain.Clue {
	return []domain.Clue{
		{ID: 1, StoryID: storyID, RoundNumber: 1, Title: "d1", IsForMurderer: false},
		{ID: 2, StoryID: storyID, RoundNumber: 1, Title: "m1", IsForMurderer: true},
		{ID: 3, StoryID: storyID, RoundNumber: 2, Title: "d2", IsForMurderer: false},
		{ID: 4, StoryID: storyID, RoundNumber: 2, Title: "m2", IsForMurderer: true},
		{ID: 5, StoryID: storyID, RoundNumber: 3, Title: "d3", IsForMurderer: false},
		{ID: 6, StoryID: storyID, RoundNumber: 3, Title: "m3", IsForMurderer: true},
	}
}

func TestClueService_VisibleClues_FiltersByRoundAndRole(t *testing.T) {
	// Arrange: 第 2 回合的侦探应看到 d1、d2，看不到任何凶手线索和第 3 回合线索
	svc, sessionRepo, playerRepo, storyRepo := newClueServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, StoryID: 7, Status: domain.StatusInProgress, CurrentRound: 2}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9, Role: domain.RoleDetective}, nil).Once()
	storyRepo.On("ListClues", ctx, uint(7)).Return(storyClues(7), nil).Once()

	// Act
	clues, err := svc.VisibleClues(ctx, 9, 42)

	// Assert
	require.NoError(t, err)
	require.Len(t, clues, 2)
	titles := []string{clues[0].Title, clues[1].Title}
	assert.ElementsMatch(t, []string{"d1", "d2"}, titles)
}

func TestClueService_VisibleClues_StreamsAreDisjoint(t *testing.T) {
	// Arrange: 同一会话同一回合，凶手与侦探看到的线索集合不相交
	svc, sessionRepo, playerRepo, storyRepo := newClueServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, StoryID: 7, Status: domain.StatusInProgress, CurrentRound: 3}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Twice()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9, Role: domain.RoleDetective}, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(12)).
		Return(&domain.Player{SessionID: 42, UserID: 12, Role: domain.RoleMurderer}, nil).Once()
	storyRepo.On("ListClues", ctx, uint(7)).Return(storyClues(7), nil).Twice()

	// Act
	detectiveClues, err := svc.VisibleClues(ctx, 9, 42)
	require.NoError(t, err)
	murdererClues, err := svc.VisibleClues(ctx, 12, 42)
	require.NoError(t, err)

	// Assert
	assert.Len(t, detectiveClues, 3)
	assert.Len(t, murdererClues, 3)
	seen := make(map[uint]bool)
	for _, c := range detectiveClues {
		seen[c.ID] = true
	}
	for _, c := range murdererClues {
		assert.False(t, seen[c.ID], "两条线索流不应有交集")
	}
}

func TestClueService_VisibleClues_NoneBeforeStart(t *testing.T) {
	// Arrange: waiting 状态下没有任何线索可见
	svc, sessionRepo, playerRepo, storyRepo := newClueServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, StoryID: 7, Status: domain.StatusWaiting, CurrentRound: 0}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(9)).
		Return(&domain.Player{SessionID: 42, UserID: 9}, nil).Once()

	// Act
	clues, err := svc.VisibleClues(ctx, 9, 42)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, clues)
	storyRepo.AssertNotCalled(t, "ListClues", mock.Anything, mock.Anything)
}

func TestClueService_VisibleClues_NotMember(t *testing.T) {
	// Arrange
	svc, sessionRepo, playerRepo, _ := newClueServiceForTest(t)
	ctx := context.Background()
	session := &domain.Session{ID: 42, StoryID: 7, Status: domain.StatusInProgress, CurrentRound: 1}

	sessionRepo.On("FindByID", ctx, uint(42)).Return(session, nil).Once()
	playerRepo.On("FindBySessionAndUser", ctx, uint(42), uint(99)).
		Return(nil, repository.ErrPlayerNotFound).Once()

	// Act
	_, err := svc.VisibleClues(ctx, 99, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNotMember), "非成员不应看到任何线索")
}

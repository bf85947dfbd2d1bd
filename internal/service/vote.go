package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"mystery-night/internal/domain"
	"mystery-night/internal/repository"

	"github.com/sirupsen/logrus"
)

// TallyEntry 是票数统计表中的一行。
type TallyEntry struct {
	UserID    uint `json:"user_id"`
	VoteCount int  `json:"vote_count"`
}

// VoteOutcome 是一局游戏的揭晓结果。
type VoteOutcome struct {
	Tally         []TallyEntry `json:"tally"`
	MurdererID    uint         `json:"murderer_id"`
	DetectivesWin bool         `json:"detectives_win"`
}

// VoteService 负责投票与结果揭晓的业务逻辑。
type VoteService struct {
	sessionRepo repository.SessionRepository
	playerRepo  repository.PlayerRepository
	voteRepo    repository.VoteRepository
	resultRepo  repository.ResultRepository
	stateRepo   repository.StateRepository
}

// NewVoteService 创建 VoteService 实例。
func NewVoteService(
	sessionRepo repository.SessionRepository,
	playerRepo repository.PlayerRepository,
	voteRepo repository.VoteRepository,
	resultRepo repository.ResultRepository,
	stateRepo repository.StateRepository,
) *VoteService {
	if sessionRepo == nil {
		panic("SessionRepository cannot be nil for VoteService")
	}
	if playerRepo == nil {
		panic("PlayerRepository cannot be nil for VoteService")
	}
	if voteRepo == nil {
		panic("VoteRepository cannot be nil for VoteService")
	}
	if resultRepo == nil {
		panic("ResultRepository cannot be nil for VoteService")
	}
	return &VoteService{
		sessionRepo: sessionRepo,
		playerRepo:  playerRepo,
		voteRepo:    voteRepo,
		resultRepo:  resultRepo,
		stateRepo:   stateRepo,
	}
}

// CastVote 处理一名玩家对另一名玩家的指控。
// 投票者与被指控者都必须是会话成员；允许投给自己。
// 首票即终票：重复投票得到 ErrAlreadyVoted，已有的一票不变。
func (s *VoteService) CastVote(ctx context.Context, voterID, sessionID, accusedID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{
		"voter_id":   voterID,
		"session_id": sessionID,
		"accused_id": accusedID,
	})

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Cast failed: repository error finding session")
		return ErrInternalServer
	}
	if session.Status != domain.StatusVoting {
		logCtx.Warn("Cast rejected: session not in voting phase")
		return ErrVotingClosed
	}

	if _, err := s.playerRepo.FindBySessionAndUser(ctx, sessionID, voterID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			logCtx.Warn("Cast rejected: voter is not a member of the session")
			return ErrNotMember
		}
		logCtx.WithError(err).Error("Cast failed: repository error finding voter")
		return ErrInternalServer
	}
	if _, err := s.playerRepo.FindBySessionAndUser(ctx, sessionID, accusedID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			logCtx.Warn("Cast rejected: accused is not a member of the session")
			return ErrPlayerNotFound
		}
		logCtx.WithError(err).Error("Cast failed: repository error finding accused")
		return ErrInternalServer
	}

	vote := &domain.Vote{
		SessionID: sessionID,
		VoterID:   voterID,
		AccusedID: accusedID,
	}
	if err := s.voteRepo.Cast(ctx, vote); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEntry):
			logCtx.Warn("Cast rejected: voter already voted")
			return ErrAlreadyVoted
		case errors.Is(err, repository.ErrStateConflict):
			// 校验与写入之间状态被主持人推进了
			logCtx.Warn("Cast rejected: voting closed between check and write")
			return ErrVotingClosed
		default:
			logCtx.WithError(err).Error("Cast failed: repository error inserting vote")
			return ErrInternalServer
		}
	}

	// 投票进度事件不携带投票者身份，只告知“有人投了一票”
	if s.stateRepo != nil {
		event := domain.SessionEvent{
			Type:      domain.EventVoteCast,
			SessionID: sessionID,
			Status:    session.Status,
			Round:     session.CurrentRound,
		}
		if err := s.stateRepo.PublishSessionEvent(ctx, event); err != nil {
			logCtx.WithError(err).Error("Failed to publish vote cast event")
		}
	}
	logCtx.Info("Vote cast")
	return nil
}

// Results 返回已完成会话的揭晓结果。
// 会话进入 completed 前拒绝访问；优先返回已存档的结果，
// 存档尚未写入时现场重算 (两者必然一致，统计是纯函数)。
func (s *VoteService) Results(ctx context.Context, sessionID uint) (*VoteOutcome, error) {
	logCtx := logrus.WithField("session_id", sessionID)

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		logCtx.WithError(err).Error("Results failed: repository error finding session")
		return nil, ErrInternalServer
	}
	if session.Status != domain.StatusCompleted {
		logCtx.Warn("Results rejected: session not completed")
		return nil, ErrSessionNotCompleted
	}

	archived, err := s.resultRepo.FindBySession(ctx, sessionID)
	switch {
	case err == nil:
		var tally []TallyEntry
		unmarshalErr := json.Unmarshal([]byte(archived.TallyJSON), &tally)
		if unmarshalErr == nil {
			return &VoteOutcome{
				Tally:         tally,
				MurdererID:    archived.MurdererID,
				DetectivesWin: archived.DetectivesWin,
			}, nil
		}
		logCtx.WithError(unmarshalErr).Error("Archived tally is corrupt, recomputing")
	case !errors.Is(err, repository.ErrResultNotFound):
		logCtx.WithError(err).Error("Results: repository error reading archive, recomputing")
	}

	players, err := s.playerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("Results failed: could not list players")
		return nil, ErrInternalServer
	}
	votes, err := s.voteRepo.ListBySession(ctx, sessionID)
	if err != nil {
		logCtx.WithError(err).Error("Results failed: could not list votes")
		return nil, ErrInternalServer
	}

	outcome := ComputeOutcome(players, votes)
	return &outcome, nil
}

// TallyVotes 统计每名玩家获得的票数，按票数降序排列；
// 平票按加入顺序 (players 切片的顺序) 排列。
// 零票的玩家也出现在统计表中。纯函数，供服务与存档任务共用。
func TallyVotes(players []domain.Player, votes []domain.Vote) []TallyEntry {
	counts := make(map[uint]int, len(players))
	for _, v := range votes {
		counts[v.AccusedID]++
	}

	tally := make([]TallyEntry, 0, len(players))
	for _, p := range players {
		tally = append(tally, TallyEntry{UserID: p.UserID, VoteCount: counts[p.UserID]})
	}
	// 稳定排序保留 players 的加入顺序作为平票顺序
	sort.SliceStable(tally, func(i, j int) bool {
		return tally[i].VoteCount > tally[j].VoteCount
	})
	return tally
}

// ComputeOutcome 由成员与票面计算揭晓结果。
// 侦探获胜当且仅当统计表首位是真凶且至少得到一票；
// 无人投票或首位不是真凶时凶手获胜。纯函数。
func ComputeOutcome(players []domain.Player, votes []domain.Vote) VoteOutcome {
	var murdererID uint
	for _, p := range players {
		if p.Role == domain.RoleMurderer {
			murdererID = p.UserID
			break
		}
	}

	tally := TallyVotes(players, votes)
	detectivesWin := len(tally) > 0 &&
		tally[0].VoteCount > 0 &&
		tally[0].UserID == murdererID

	return VoteOutcome{
		Tally:         tally,
		MurdererID:    murdererID,
		DetectivesWin: detectivesWin,
	}
}

package service

import "errors"

// 业务错误。Handler 层据此决定 HTTP 状态码：
// NotFound / Unauthorized / Conflict / ValidationFailure / Internal。
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrStoryNotFound        = errors.New("story not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrPlayerNotFound       = errors.New("player not found in this session")
	ErrResultNotFound       = errors.New("session result not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")

	// Unauthorized 类：调用者无权执行该操作
	ErrNotHost      = errors.New("only the host may perform this action")
	ErrNotMember    = errors.New("user is not a player of this session")
	ErrAlreadyVoted = errors.New("vote already cast for this session")

	// Conflict 类：操作与会话当前状态冲突
	ErrWrongPassword       = errors.New("session password mismatch")
	ErrSessionFull         = errors.New("session is full")
	ErrSessionNotJoinable  = errors.New("session is not in a joinable status")
	ErrNoCharactersLeft    = errors.New("no characters left in this session")
	ErrHostCannotLeave     = errors.New("the host cannot leave their own session")
	ErrInvalidTransition   = errors.New("session is not in the required status for this transition")
	ErrVotingClosed        = errors.New("session is not in the voting phase")
	ErrSessionNotCompleted = errors.New("session results are not available until voting has ended")

	// ValidationFailure 类
	ErrNotEnoughPlayers = errors.New("not enough players to start the session")

	ErrInternalServer = errors.New("internal server error")
)

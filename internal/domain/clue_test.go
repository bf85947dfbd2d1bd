package domain_test

import (
	"testing"

	"mystery-night/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestClue_VisibleTo(t *testing.T) {
	detectiveClue := domain.Clue{RoundNumber: 2, IsForMurderer: false}
	murdererClue := domain.Clue{RoundNumber: 2, IsForMurderer: true}

	// 回合门控：未到解锁回合时对任何身份都不可见
	assert.False(t, detectiveClue.VisibleTo(1, domain.RoleDetective))
	assert.False(t, murdererClue.VisibleTo(1, domain.RoleMurderer))

	// 身份门控：到达回合后只对匹配的身份可见
	assert.True(t, detectiveClue.VisibleTo(2, domain.RoleDetective))
	assert.False(t, detectiveClue.VisibleTo(2, domain.RoleMurderer))
	assert.True(t, murdererClue.VisibleTo(2, domain.RoleMurderer))
	assert.False(t, murdererClue.VisibleTo(2, domain.RoleDetective))

	// 已解锁的线索在后续回合保持可见
	assert.True(t, detectiveClue.VisibleTo(3, domain.RoleDetective))
}

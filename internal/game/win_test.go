package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kazerdira/lupustabula/internal/models"
)

func newPlayer(role models.Role, alive bool) *models.Player {
	return &models.Player{ID: uuid.New(), Role: role, OriginalRole: role, IsAlive: alive}
}

func TestCheckWin_VillageWinsWhenNoWolvesLeft(t *testing.T) {
	players := []*models.Player{
		newPlayer(models.RoleLupo, false),
		newPlayer(models.RoleVillico, true),
		newPlayer(models.RoleVeggente, true),
	}
	result := checkWin(players)
	assert.True(t, result.Winner)
	assert.Equal(t, models.WinnerVillage, result.Label)
}

func TestCheckWin_NoWinnerWhileBothSidesOutnumbered(t *testing.T) {
	players := []*models.Player{
		newPlayer(models.RoleLupo, true),
		newPlayer(models.RoleVillico, true),
		newPlayer(models.RoleVillico, true),
		newPlayer(models.RoleVillico, true),
	}
	result := checkWin(players)
	assert.False(t, result.Winner)
}

func TestCheckWin_IndemoniatoDoesNotCountTowardWolfPower(t *testing.T) {
	// One Lupo, one Indemoniato (evil but not wolf-power), three village:
	// evil_alive (wolf power only) = {Lupo} = 1, non_evil_alive = Indemoniato + 3 village = 4.
	// 1 < 4, so no winner yet even though Indemoniato is evil-aligned.
	players := []*models.Player{
		newPlayer(models.RoleLupo, true),
		newPlayer(models.RoleIndemoniato, true),
		newPlayer(models.RoleVillico, true),
		newPlayer(models.RoleVillico, true),
		newPlayer(models.RoleVillico, true),
	}
	result := checkWin(players)
	assert.False(t, result.Winner)
}

func TestCheckWin_IsMonotoneInDeaths(t *testing.T) {
	players := []*models.Player{
		newPlayer(models.RoleLupo, true),
		newPlayer(models.RoleVillico, true),
	}
	before := checkWin(players)
	beforeWinner := before.Winner

	players[1].IsAlive = false // one more village death, wolves now strictly ahead
	after := checkWin(players)

	if beforeWinner {
		assert.True(t, after.Winner, "a win condition must not revert to no-winner after an additional death")
	}
}

func TestPerPlayerWon_HamsterOnlyCountsLivingCriceto(t *testing.T) {
	alive := newPlayer(models.RoleCriceto, true)
	dead := newPlayer(models.RoleCriceto, false)
	assert.True(t, perPlayerWon(alive, models.WinnerHamster))
	assert.False(t, perPlayerWon(dead, models.WinnerHamster))
}
